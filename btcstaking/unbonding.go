package btcstaking

import (
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

const (
	// MaxTxVersion is the maximum transaction version allowed in the
	// staking system.
	MaxTxVersion = 2

	// MaxStandardTxWeight is the maximum weight allowed for a pre-signed
	// transaction to remain standard.
	MaxStandardTxWeight = 400000
)

// BuildUnbondingTx builds the unsigned unbonding transaction: a single
// input spending the staking output and a single output paying
// stakingOutputValue - unbondingFee into the provided unbonding Taproot
// output.
func BuildUnbondingTx(
	stakingTx *wire.MsgTx,
	stakingOutputIdx uint32,
	unbondingFee btcutil.Amount,
	unbondingInfo *UnbondingInfo,
) (*wire.MsgTx, error) {
	stakingOutput, err := getPossibleStakingOutput(stakingTx, stakingOutputIdx)
	if err != nil {
		return nil, err
	}

	if unbondingInfo == nil || unbondingInfo.UnbondingOutput == nil {
		return nil, fmt.Errorf("unbonding output must not be nil")
	}

	expectedValue := stakingOutput.Value - int64(unbondingFee)
	if expectedValue != unbondingInfo.UnbondingOutput.Value {
		return nil, fmt.Errorf(
			"unbonding output value must be staking output value minus the unbonding fee, expected %d, got %d",
			expectedValue, unbondingInfo.UnbondingOutput.Value,
		)
	}

	stakingTxHash := stakingTx.TxHash()
	stakingOutpoint := wire.NewOutPoint(&stakingTxHash, stakingOutputIdx)

	tx := wire.NewMsgTx(MaxTxVersion)
	tx.AddTxIn(wire.NewTxIn(stakingOutpoint, nil, nil))
	tx.AddTxOut(unbondingInfo.UnbondingOutput)

	if err := CheckPreSignedUnbondingTxSanity(tx); err != nil {
		return nil, err
	}

	return tx, nil
}

// CheckPreSignedTxSanity performs basic checks on a pre-signed transaction:
// - the transaction is not nil.
// - the transaction obeys basic BTC rules.
// - the transaction has exactly numInputs inputs.
// - the transaction has exactly numOutputs outputs.
// - the transaction lock time is 0.
// - the transaction version is between minTxVersion and maxTxVersion.
// - each input has a sequence number equal to MaxTxInSequenceNum.
// - each input has an empty signature script.
func CheckPreSignedTxSanity(
	tx *wire.MsgTx,
	numInputs, numOutputs uint32,
	minTxVersion, maxTxVersion int32,
) error {
	if tx == nil {
		return fmt.Errorf("tx must not be nil")
	}

	transaction := btcutil.NewTx(tx)

	if err := blockchain.CheckTransactionSanity(transaction); err != nil {
		return fmt.Errorf("btc transaction does not obey BTC rules: %w", err)
	}

	if len(tx.TxIn) != int(numInputs) {
		return fmt.Errorf("tx must have exactly %d inputs", numInputs)
	}

	if len(tx.TxOut) != int(numOutputs) {
		return fmt.Errorf("tx must have exactly %d outputs", numOutputs)
	}

	// this requirement makes every pre-signed tx final
	if tx.LockTime != 0 {
		return fmt.Errorf("pre-signed tx must not have locktime")
	}

	if tx.Version > maxTxVersion || tx.Version < minTxVersion {
		return fmt.Errorf("tx version must be between %d and %d", minTxVersion, maxTxVersion)
	}

	txWeight := blockchain.GetTransactionWeight(transaction)
	if txWeight > MaxStandardTxWeight {
		return fmt.Errorf("tx weight must not exceed %d", MaxStandardTxWeight)
	}

	for _, in := range tx.TxIn {
		if in.Sequence != wire.MaxTxInSequenceNum {
			return fmt.Errorf("pre-signed tx must not be replaceable")
		}

		// All pre-signed transactions of the staking system spend taproot
		// outputs, so signature data goes into the witness.
		if len(in.SignatureScript) != 0 {
			return fmt.Errorf("pre-signed tx must not have signature script")
		}
	}

	return nil
}

func CheckPreSignedUnbondingTxSanity(tx *wire.MsgTx) error {
	return CheckPreSignedTxSanity(
		tx,
		1,
		1,
		// Unbonding tx is always version 2
		MaxTxVersion,
		MaxTxVersion,
	)
}

func CheckPreSignedSlashingTxSanity(tx *wire.MsgTx) error {
	return CheckPreSignedTxSanity(
		tx,
		1,
		2,
		// Slashing tx version can be between 1 and 2
		1,
		MaxTxVersion,
	)
}
