package txbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"

	"github.com/babylonlabs-io/btc-staking-builder/btcstaking"
	"github.com/babylonlabs-io/btc-staking-builder/types"
)

// StakingOutputBuilder abstracts the construction of the Taproot staking
// output, so the underlying primitive library can be substituted without
// touching the transaction builder's logic.
type StakingOutputBuilder interface {
	// BuildStakingOutput returns the Taproot output committing to the
	// staking script tree derived from the given key material, quorum and
	// timelock.
	BuildStakingOutput(
		stakerKey *btcec.PublicKey,
		fpKeys []*btcec.PublicKey,
		covenantKeys []*btcec.PublicKey,
		covenantQuorum uint32,
		stakingTime uint16,
		stakingAmount btcutil.Amount,
		net *chaincfg.Params,
	) (*wire.TxOut, error)
}

type stakingOutputBuilder struct{}

// NewStakingOutputBuilder returns the default output builder backed by the
// btcstaking script engine.
func NewStakingOutputBuilder() StakingOutputBuilder {
	return &stakingOutputBuilder{}
}

func (b *stakingOutputBuilder) BuildStakingOutput(
	stakerKey *btcec.PublicKey,
	fpKeys []*btcec.PublicKey,
	covenantKeys []*btcec.PublicKey,
	covenantQuorum uint32,
	stakingTime uint16,
	stakingAmount btcutil.Amount,
	net *chaincfg.Params,
) (*wire.TxOut, error) {
	info, err := btcstaking.BuildStakingInfo(
		stakerKey,
		fpKeys,
		covenantKeys,
		covenantQuorum,
		stakingTime,
		stakingAmount,
		net,
	)
	if err != nil {
		return nil, err
	}

	return info.StakingOutput, nil
}

// StakingTxResult is the outcome of building a staking transaction: the
// unsigned transaction, the fee it pays and the value of its change output
// (zero when the residual was folded into the fee).
type StakingTxResult struct {
	Tx           *wire.MsgTx
	Fee          btcutil.Amount
	ChangeAmount btcutil.Amount
}

// TxBuilder assembles unsigned staking transactions for a fixed network.
// It is stateless apart from its configuration and safe for concurrent use.
type TxBuilder struct {
	outputBuilder StakingOutputBuilder
	net           *chaincfg.Params
}

// NewTxBuilder returns a transaction builder using the default staking
// output builder.
func NewTxBuilder(net *chaincfg.Params) *TxBuilder {
	return NewTxBuilderWithOutputBuilder(NewStakingOutputBuilder(), net)
}

// NewTxBuilderWithOutputBuilder returns a transaction builder with a custom
// staking output builder. Used mainly to substitute the Taproot primitive
// implementation in tests.
func NewTxBuilderWithOutputBuilder(
	outputBuilder StakingOutputBuilder,
	net *chaincfg.Params,
) *TxBuilder {
	return &TxBuilder{
		outputBuilder: outputBuilder,
		net:           net,
	}
}

// changeScriptSize returns the expected pk script size for the change
// address type. Only Taproot and native segwit change addresses are
// supported.
func changeScriptSize(changeAddress btcutil.Address) (int, error) {
	switch changeAddress.(type) {
	case *btcutil.AddressTaproot:
		return txsizes.P2TRPkScriptSize, nil
	case *btcutil.AddressWitnessPubKeyHash:
		return txsizes.P2WPKHPkScriptSize, nil
	default:
		return 0, fmt.Errorf("unsupported change address type: %T", changeAddress)
	}
}

// BuildStakingTransaction validates the request against the staking
// parameters, derives the Taproot staking output, selects funding UTXOs and
// assembles the unsigned staking transaction. Input order follows selection
// order; a change output back to the staker address is added only when the
// residual stays above the dust threshold, otherwise the residual is folded
// into the fee.
//
// The following always holds for a successful result:
//
//	sum(inputs) == stakingAmount + Fee + ChangeAmount
func (b *TxBuilder) BuildStakingTransaction(
	params *types.StakingParams,
	stakerInfo *types.StakerInfo,
	stakerKey *btcec.PublicKey,
	fpKeys []*btcec.PublicKey,
	stakingTime uint16,
	stakingAmount btcutil.Amount,
	utxos []types.UTXO,
	feeRateSatPerVByte uint64,
) (*StakingTxResult, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: staking parameters are nil", types.ErrInvalidStakingParams)
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	if err := params.ValidateStakingTime(stakingTime); err != nil {
		return nil, err
	}

	if stakingAmount < params.MinStakingValueSat || stakingAmount > params.MaxStakingValueSat {
		return nil, fmt.Errorf(
			"%w: amount %d outside of [%d, %d]",
			ErrAmountOutOfRange, stakingAmount,
			params.MinStakingValueSat, params.MaxStakingValueSat,
		)
	}

	if stakerInfo == nil || stakerInfo.Address == nil {
		return nil, fmt.Errorf("staker info with a change address must be provided")
	}

	if feeRateSatPerVByte == 0 {
		return nil, fmt.Errorf("fee rate must be positive")
	}

	stakingOutput, err := b.outputBuilder.BuildStakingOutput(
		stakerKey,
		fpKeys,
		params.CovenantPks,
		params.CovenantQuorum,
		stakingTime,
		stakingAmount,
		b.net,
	)
	if err != nil {
		return nil, err
	}

	changeScript, err := txscript.PayToAddrScript(stakerInfo.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to build change script: %w", err)
	}

	scriptSize, err := changeScriptSize(stakerInfo.Address)
	if err != nil {
		return nil, err
	}

	selection, err := selectUTXOsForAmount(
		utxos,
		stakingAmount,
		[]*wire.TxOut{stakingOutput},
		scriptSize,
		feeRateSatPerVByte,
	)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(btcstaking.MaxTxVersion)
	for i := range selection.selected {
		outpoint, err := selection.selected[i].OutPoint()
		if err != nil {
			return nil, err
		}
		tx.AddTxIn(wire.NewTxIn(outpoint, nil, nil))
	}
	tx.AddTxOut(stakingOutput)

	fee := selection.fee
	change := selection.total - stakingAmount - fee

	dustThreshold := txrules.GetDustThreshold(len(changeScript), txrules.DefaultRelayFeePerKb)
	if change >= dustThreshold {
		tx.AddTxOut(wire.NewTxOut(int64(change), changeScript))
	} else {
		// A sub-dust residual cannot become an output, fold it into the fee.
		fee += change
		change = 0
	}

	return &StakingTxResult{
		Tx:           tx,
		Fee:          fee,
		ChangeAmount: change,
	}, nil
}
