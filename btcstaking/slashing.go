package btcstaking

import (
	"bytes"
	"encoding/hex"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/mempool"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// IsSlashingRateValid reports whether the rate lies strictly between 0 and 1.
func IsSlashingRateValid(slashingRate sdkmath.LegacyDec) bool {
	return !slashingRate.IsNil() &&
		slashingRate.GT(sdkmath.LegacyZeroDec()) &&
		slashingRate.LT(sdkmath.LegacyOneDec())
}

func isOPReturn(script []byte) bool {
	return len(script) > 0 && script[0] == txscript.OP_RETURN
}

// buildSlashingTxFromOutpoint builds the unsigned slashing transaction
// spending the given staking outpoint. The first output pays
// stakingAmount * slashingRate to the slashing pk script; the second output
// returns the remainder, minus the fee, to the change address.
func buildSlashingTxFromOutpoint(
	stakingOutput wire.OutPoint,
	stakingAmount, fee int64,
	slashingPkScript []byte,
	changeAddress btcutil.Address,
	slashingRate sdkmath.LegacyDec,
) (*wire.MsgTx, error) {
	if stakingAmount <= 0 {
		return nil, fmt.Errorf("staking amount must be larger than 0")
	}

	if !IsSlashingRateValid(slashingRate) {
		return nil, ErrInvalidSlashingRate
	}

	if len(slashingPkScript) == 0 {
		return nil, fmt.Errorf("slashing pk script must not be empty")
	}

	slashingRateFloat64, err := slashingRate.Float64()
	if err != nil {
		return nil, fmt.Errorf("error converting slashing rate to float64: %w", err)
	}
	slashingAmount := btcutil.Amount(stakingAmount).MulF64(slashingRateFloat64)
	if slashingAmount <= 0 {
		return nil, ErrInsufficientSlashingAmount
	}

	changeAmount := btcutil.Amount(stakingAmount) - slashingAmount - btcutil.Amount(fee)
	if changeAmount <= 0 {
		return nil, ErrInsufficientChangeAmount
	}

	changeAddrScript, err := txscript.PayToAddrScript(changeAddress)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(&stakingOutput, nil, nil))
	tx.AddTxOut(wire.NewTxOut(int64(slashingAmount), slashingPkScript))
	tx.AddTxOut(wire.NewTxOut(int64(changeAmount), changeAddrScript))

	for _, out := range tx.TxOut {
		// OP_RETURN outputs can be dust and are still standard.
		if isOPReturn(out.PkScript) {
			continue
		}

		if mempool.IsDust(out, mempool.DefaultMinRelayTxFee) {
			return nil, ErrDustOutputFound
		}
	}

	return tx, nil
}

func getPossibleStakingOutput(
	stakingTx *wire.MsgTx,
	stakingOutputIdx uint32,
) (*wire.TxOut, error) {
	if stakingTx == nil {
		return nil, fmt.Errorf("provided staking transaction must not be nil")
	}

	if int(stakingOutputIdx) >= len(stakingTx.TxOut) {
		return nil, fmt.Errorf(
			"invalid staking output index %d, tx has %d outputs",
			stakingOutputIdx, len(stakingTx.TxOut),
		)
	}

	stakingOutput := stakingTx.TxOut[stakingOutputIdx]

	if !txscript.IsPayToTaproot(stakingOutput.PkScript) {
		return nil, fmt.Errorf("must be pay to taproot output")
	}

	return stakingOutput, nil
}

// BuildSlashingTxFromStakingTxStrict builds the unsigned slashing
// transaction for the staking output at the given index. The change output
// is locked under a single-key relative timelock of slashChangeLockTime
// blocks, so slashed stakers cannot immediately move the remainder.
func BuildSlashingTxFromStakingTxStrict(
	stakingTx *wire.MsgTx,
	stakingOutputIdx uint32,
	slashingPkScript []byte,
	stakerPk *btcec.PublicKey,
	slashChangeLockTime uint16,
	fee int64,
	slashingRate sdkmath.LegacyDec,
	net *chaincfg.Params,
) (*wire.MsgTx, error) {
	stakingOutput, err := getPossibleStakingOutput(stakingTx, stakingOutputIdx)
	if err != nil {
		return nil, err
	}

	stakingTxHash := stakingTx.TxHash()
	stakingOutpoint := wire.NewOutPoint(&stakingTxHash, stakingOutputIdx)

	// Taproot address committing to the change timelock script.
	si, err := BuildRelativeTimelockTaprootScript(
		stakerPk,
		slashChangeLockTime,
		net,
	)
	if err != nil {
		return nil, err
	}

	return buildSlashingTxFromOutpoint(
		*stakingOutpoint,
		stakingOutput.Value, fee,
		slashingPkScript, si.TapAddress,
		slashingRate)
}

// ValidateSlashingTx performs the structural checks over a slashing
// transaction:
//   - it passes the pre-signed sanity checks;
//   - the first output pays at least stakingOutputValue * slashingRate to
//     the expected slashing pk script;
//   - the second output pays to the staker timelock script;
//   - no output is dust;
//   - the fee is positive and at least slashingTxMinFee.
func ValidateSlashingTx(
	slashingTx *wire.MsgTx,
	slashingPkScript []byte,
	slashingRate sdkmath.LegacyDec,
	slashingTxMinFee, stakingOutputValue int64,
	stakerPk *btcec.PublicKey,
	slashingChangeLockTime uint16,
	net *chaincfg.Params,
) error {
	if err := CheckPreSignedSlashingTxSanity(slashingTx); err != nil {
		return fmt.Errorf("invalid slashing tx: %w", err)
	}

	slashingRateFloat64, err := slashingRate.Float64()
	if err != nil {
		return fmt.Errorf("error converting slashing rate to float64: %w", err)
	}
	minSlashingAmount := btcutil.Amount(stakingOutputValue).MulF64(slashingRateFloat64)
	if btcutil.Amount(slashingTx.TxOut[0].Value) < minSlashingAmount {
		return fmt.Errorf("slashing transaction must slash at least staking output value * slashing rate")
	}

	if !bytes.Equal(slashingTx.TxOut[0].PkScript, slashingPkScript) {
		return fmt.Errorf("slashing transaction must pay to the provided slashing pk script")
	}

	// The second output must lock the change for slashingChangeLockTime.
	si, err := BuildRelativeTimelockTaprootScript(
		stakerPk,
		slashingChangeLockTime,
		net,
	)
	if err != nil {
		return fmt.Errorf("error creating change timelock script: %w", err)
	}

	if !bytes.Equal(slashingTx.TxOut[1].PkScript, si.PkScript) {
		return fmt.Errorf(
			"invalid slashing tx change output pkscript, expected: %s, got: %s",
			hex.EncodeToString(si.PkScript),
			hex.EncodeToString(slashingTx.TxOut[1].PkScript),
		)
	}

	for _, out := range slashingTx.TxOut {
		if isOPReturn(out.PkScript) {
			continue
		}

		if mempool.IsDust(out, mempool.DefaultMinRelayTxFee) {
			return ErrDustOutputFound
		}
	}

	if slashingTx.TxOut[0].Value <= 0 || stakingOutputValue <= 0 {
		return fmt.Errorf("values of slashing and staking transaction must be larger than 0")
	}

	slashingTxOutSum := int64(0)
	for _, out := range slashingTx.TxOut {
		slashingTxOutSum += out.Value
	}

	if stakingOutputValue <= slashingTxOutSum {
		return fmt.Errorf("slashing transaction must not spend more than the staking output")
	}

	if stakingOutputValue-slashingTxOutSum < slashingTxMinFee {
		return fmt.Errorf("slashing transaction fee must be larger than %d", slashingTxMinFee)
	}

	return nil
}

// CheckSlashingTxMatchFundingTx validates a slashing transaction against
// the funding (staking) transaction it is supposed to spend:
//   - both transactions obey basic BTC rules;
//   - the slashing transaction itself is valid;
//   - its single input points at the funding output committing to the
//     staking script.
func CheckSlashingTxMatchFundingTx(
	slashingTx *wire.MsgTx,
	fundingTransaction *wire.MsgTx,
	fundingOutputIdx uint32,
	slashingTxMinFee int64,
	slashingRate sdkmath.LegacyDec,
	slashingPkScript []byte,
	stakerPk *btcec.PublicKey,
	slashingChangeLockTime uint16,
	net *chaincfg.Params,
) error {
	if slashingTx == nil || fundingTransaction == nil {
		return fmt.Errorf("slashing and funding transactions must not be nil")
	}

	if err := blockchain.CheckTransactionSanity(btcutil.NewTx(fundingTransaction)); err != nil {
		return fmt.Errorf("funding transaction does not obey BTC rules: %w", err)
	}

	if slashingTxMinFee <= 0 {
		return fmt.Errorf("slashing transaction min fee must be larger than 0")
	}

	if !IsSlashingRateValid(slashingRate) {
		return ErrInvalidSlashingRate
	}

	if int(fundingOutputIdx) >= len(fundingTransaction.TxOut) {
		return fmt.Errorf(
			"invalid funding output index %d, tx has %d outputs",
			fundingOutputIdx, len(fundingTransaction.TxOut),
		)
	}

	stakingOutput := fundingTransaction.TxOut[fundingOutputIdx]

	if err := ValidateSlashingTx(
		slashingTx,
		slashingPkScript,
		slashingRate,
		slashingTxMinFee,
		stakingOutput.Value,
		stakerPk,
		slashingChangeLockTime,
		net); err != nil {
		return err
	}

	stakingTxHash := fundingTransaction.TxHash()
	if !slashingTx.TxIn[0].PreviousOutPoint.Hash.IsEqual(&stakingTxHash) {
		return fmt.Errorf("slashing transaction must spend the staking output")
	}

	if slashingTx.TxIn[0].PreviousOutPoint.Index != fundingOutputIdx {
		return fmt.Errorf("slashing transaction input must spend the staking output")
	}

	return nil
}
