package txbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txsizes"

	"github.com/babylonlabs-io/btc-staking-builder/types"
)

// inputCounts tallies the candidate inputs per script type, as witness size
// estimates differ per type.
type inputCounts struct {
	numP2PKH        int
	numP2TR         int
	numP2WPKH       int
	numNestedP2WPKH int
}

func countInputTypes(utxos []types.UTXO) (*inputCounts, error) {
	var counts inputCounts
	for i := range utxos {
		pkScript, err := utxos[i].PkScript()
		if err != nil {
			return nil, err
		}

		switch txscript.GetScriptClass(pkScript) {
		case txscript.WitnessV1TaprootTy:
			counts.numP2TR++
		case txscript.WitnessV0PubKeyHashTy:
			counts.numP2WPKH++
		case txscript.ScriptHashTy:
			// A P2SH input is assumed to wrap a witness pubkey hash, the
			// only nested type the wallet ecosystem still produces.
			counts.numNestedP2WPKH++
		case txscript.PubKeyHashTy:
			counts.numP2PKH++
		default:
			return nil, fmt.Errorf(
				"unsupported script type in utxo %s:%d", utxos[i].Txid, utxos[i].Vout,
			)
		}
	}

	return &counts, nil
}

// estimateTxVirtualSize estimates the virtual size of a transaction
// spending the given inputs into the given outputs plus a change output of
// changeScriptSize bytes.
func estimateTxVirtualSize(
	inputs []types.UTXO,
	outputs []*wire.TxOut,
	changeScriptSize int,
) (int, error) {
	counts, err := countInputTypes(inputs)
	if err != nil {
		return 0, err
	}

	return txsizes.EstimateVirtualSize(
		counts.numP2PKH,
		counts.numP2TR,
		counts.numP2WPKH,
		counts.numNestedP2WPKH,
		outputs,
		changeScriptSize,
	), nil
}

// EstimateTransactionFee estimates the fee of a transaction with the given
// input and output set at feeRateSatPerVByte. The estimate is monotone in
// the number of inputs: adding an input never lowers the fee.
func EstimateTransactionFee(
	inputs []types.UTXO,
	outputs []*wire.TxOut,
	changeScriptSize int,
	feeRateSatPerVByte uint64,
) (btcutil.Amount, error) {
	vsize, err := estimateTxVirtualSize(inputs, outputs, changeScriptSize)
	if err != nil {
		return 0, err
	}

	return btcutil.Amount(uint64(vsize) * feeRateSatPerVByte), nil
}
