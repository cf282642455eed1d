package txbuilder

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/btc-staking-builder/testutil"
	"github.com/babylonlabs-io/btc-staking-builder/types"
)

func dummyOutputs(value int64) []*wire.TxOut {
	return []*wire.TxOut{wire.NewTxOut(value, make([]byte, txsizes.P2TRPkScriptSize))}
}

func TestEstimateTransactionFeeMonotoneInInputs(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(time.Now().Unix()))

	utxos := testutil.GenRandomUTXOs(r, t, 10, 1000000)
	outputs := dummyOutputs(100000)

	var prevFee btcutil.Amount
	for i := 1; i <= len(utxos); i++ {
		fee, err := EstimateTransactionFee(utxos[:i], outputs, txsizes.P2TRPkScriptSize, 2)
		require.NoError(t, err)
		require.Greater(t, fee, prevFee)
		prevFee = fee
	}
}

func TestEstimateTransactionFeeScalesWithRate(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(time.Now().Unix()))

	utxos := testutil.GenRandomUTXOs(r, t, 3, 1000000)
	outputs := dummyOutputs(100000)

	feeAtOne, err := EstimateTransactionFee(utxos, outputs, txsizes.P2TRPkScriptSize, 1)
	require.NoError(t, err)
	feeAtFive, err := EstimateTransactionFee(utxos, outputs, txsizes.P2TRPkScriptSize, 5)
	require.NoError(t, err)
	require.Equal(t, feeAtOne*5, feeAtFive)
}

func TestCountInputTypesRejectsUnsupportedScript(t *testing.T) {
	t.Parallel()

	utxos := []types.UTXO{{
		Txid:         "aa",
		Vout:         0,
		ScriptPubKey: "6a", // OP_RETURN is not spendable
		Value:        1000,
	}}

	_, err := EstimateTransactionFee(utxos, dummyOutputs(100), txsizes.P2TRPkScriptSize, 1)
	require.Error(t, err)
}

func TestSelectUTXOsLargestFirst(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(time.Now().Unix()))

	utxos := []types.UTXO{
		testutil.GenRandomUTXO(r, t, 5000),
		testutil.GenRandomUTXO(r, t, 100000),
		testutil.GenRandomUTXO(r, t, 20000),
	}

	result, err := selectUTXOsForAmount(utxos, 50000, dummyOutputs(50000), txsizes.P2TRPkScriptSize, 2)
	require.NoError(t, err)
	require.Len(t, result.selected, 1)
	require.Equal(t, btcutil.Amount(100000), result.selected[0].Value)
	require.Equal(t, btcutil.Amount(100000), result.total)
	require.Positive(t, result.fee)
	require.GreaterOrEqual(t, result.total, 50000+result.fee)
}

func TestSelectUTXOsAccumulatesUntilCovered(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(time.Now().Unix()))

	utxos := testutil.GenRandomUTXOs(r, t, 5, 100000)

	result, err := selectUTXOsForAmount(utxos, 90000, dummyOutputs(90000), txsizes.P2TRPkScriptSize, 1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, result.total, 90000+result.fee)
	// The fee recorded must match the estimate for exactly the selected set.
	fee, err := EstimateTransactionFee(result.selected, dummyOutputs(90000), txsizes.P2TRPkScriptSize, 1)
	require.NoError(t, err)
	require.Equal(t, fee, result.fee)
}

func TestSelectUTXOsInsufficientFunds(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(time.Now().Unix()))

	utxos := testutil.GenRandomUTXOs(r, t, 3, 30000)

	_, err := selectUTXOsForAmount(utxos, 100000, dummyOutputs(100000), txsizes.P2TRPkScriptSize, 2)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	var insufficientErr *InsufficientFundsError
	require.ErrorAs(t, err, &insufficientErr)
	// Shortfall covers the missing amount plus the fee of the full set.
	require.Greater(t, insufficientErr.Shortfall, btcutil.Amount(100000-30000))

	// An empty candidate list reports the full amount plus the base fee.
	_, err = selectUTXOsForAmount(nil, 100000, dummyOutputs(100000), txsizes.P2TRPkScriptSize, 2)
	require.ErrorAs(t, err, &insufficientErr)
	require.Greater(t, insufficientErr.Shortfall, btcutil.Amount(100000))
	require.True(t, errors.Is(err, ErrInsufficientFunds))
}
