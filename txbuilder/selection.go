package txbuilder

import (
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/babylonlabs-io/btc-staking-builder/types"
)

// selectionResult is the outcome of a successful UTXO selection: the chosen
// inputs in selection order, their total value and the estimated fee for a
// transaction spending exactly those inputs.
type selectionResult struct {
	selected []types.UTXO
	total    btcutil.Amount
	fee      btcutil.Amount
}

// selectUTXOsForAmount greedily accumulates candidate UTXOs, largest first,
// until their total covers amount plus the fee estimated for the
// accumulated input set. The fee is re-estimated after every added input;
// since the fee grows monotonically with the input count this fixed-point
// iteration terminates as soon as the residual is non-negative.
//
// changeScriptSize is always included in the estimate. When the final
// residual ends up below the dust threshold the caller folds it into the
// fee instead of creating a change output, so the estimate errs on the
// safe side.
func selectUTXOsForAmount(
	utxos []types.UTXO,
	amount btcutil.Amount,
	outputs []*wire.TxOut,
	changeScriptSize int,
	feeRateSatPerVByte uint64,
) (*selectionResult, error) {
	candidates := make([]types.UTXO, len(utxos))
	copy(candidates, utxos)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Value > candidates[j].Value
	})

	// Base fee covering the outputs of an inputless transaction, so the
	// shortfall reported for an empty candidate list is meaningful.
	fee, err := EstimateTransactionFee(nil, outputs, changeScriptSize, feeRateSatPerVByte)
	if err != nil {
		return nil, err
	}

	var (
		selected []types.UTXO
		total    btcutil.Amount
	)

	for _, utxo := range candidates {
		selected = append(selected, utxo)
		total += utxo.Value

		fee, err = EstimateTransactionFee(selected, outputs, changeScriptSize, feeRateSatPerVByte)
		if err != nil {
			return nil, err
		}

		if total >= amount+fee {
			return &selectionResult{
				selected: selected,
				total:    total,
				fee:      fee,
			}, nil
		}
	}

	return nil, &InsufficientFundsError{
		Shortfall: amount + fee - total,
	}
}
