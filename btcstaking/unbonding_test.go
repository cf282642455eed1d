package btcstaking_test

import (
	"math/rand"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/btc-staking-builder/btcstaking"
	"github.com/babylonlabs-io/btc-staking-builder/testutil"
)

func FuzzBuildUnbondingTx(f *testing.F) {
	testutil.AddRandomSeedsToFuzzer(f, 10)

	f.Fuzz(func(t *testing.T, seed int64) {
		r := rand.New(rand.NewSource(seed))

		stakerKey := testutil.GenRandomPubKey(r, t)
		fpKeys := testutil.GenRandomPubKeys(r, t, 1)
		covenantKeys := testutil.GenRandomPubKeys(r, t, 3)

		stakingAmount := btcutil.Amount(100000 + r.Int63n(1000000))
		unbondingFee := btcutil.Amount(1000 + r.Int63n(1000))
		unbondingTime := uint16(100)

		fundingTx := genFundingTx(
			r, t, stakerKey, fpKeys, covenantKeys, 2, 1000, stakingAmount,
		)

		unbondingInfo, err := btcstaking.BuildUnbondingInfo(
			stakerKey, fpKeys, covenantKeys, 2, unbondingTime,
			stakingAmount-unbondingFee, &chaincfg.SimNetParams,
		)
		require.NoError(t, err)

		unbondingTx, err := btcstaking.BuildUnbondingTx(
			fundingTx, 0, unbondingFee, unbondingInfo,
		)
		require.NoError(t, err)
		require.Len(t, unbondingTx.TxIn, 1)
		require.Len(t, unbondingTx.TxOut, 1)
		require.Equal(t, int64(stakingAmount-unbondingFee), unbondingTx.TxOut[0].Value)

		fundingHash := fundingTx.TxHash()
		require.True(t, unbondingTx.TxIn[0].PreviousOutPoint.Hash.IsEqual(&fundingHash))
		require.NoError(t, btcstaking.CheckPreSignedUnbondingTxSanity(unbondingTx))
	})
}

func TestBuildUnbondingTxRejectsWrongValue(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(20))

	stakerKey := testutil.GenRandomPubKey(r, t)
	fpKeys := testutil.GenRandomPubKeys(r, t, 1)
	covenantKeys := testutil.GenRandomPubKeys(r, t, 3)

	fundingTx := genFundingTx(
		r, t, stakerKey, fpKeys, covenantKeys, 2, 1000, 100000,
	)

	// Output value does not account for the unbonding fee.
	unbondingInfo, err := btcstaking.BuildUnbondingInfo(
		stakerKey, fpKeys, covenantKeys, 2, 100, 100000, &chaincfg.SimNetParams,
	)
	require.NoError(t, err)

	_, err = btcstaking.BuildUnbondingTx(fundingTx, 0, 2000, unbondingInfo)
	require.Error(t, err)

	_, err = btcstaking.BuildUnbondingTx(fundingTx, 0, 2000, nil)
	require.Error(t, err)
}

func TestCheckPreSignedTxSanity(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(21))

	stakerKey := testutil.GenRandomPubKey(r, t)
	fpKeys := testutil.GenRandomPubKeys(r, t, 1)
	covenantKeys := testutil.GenRandomPubKeys(r, t, 3)

	fundingTx := genFundingTx(
		r, t, stakerKey, fpKeys, covenantKeys, 2, 1000, 100000,
	)

	unbondingInfo, err := btcstaking.BuildUnbondingInfo(
		stakerKey, fpKeys, covenantKeys, 2, 100, 98000, &chaincfg.SimNetParams,
	)
	require.NoError(t, err)

	unbondingTx, err := btcstaking.BuildUnbondingTx(fundingTx, 0, 2000, unbondingInfo)
	require.NoError(t, err)

	// Pre-signed transactions must be final.
	withLockTime := unbondingTx.Copy()
	withLockTime.LockTime = 100
	require.Error(t, btcstaking.CheckPreSignedUnbondingTxSanity(withLockTime))

	// And non-replaceable.
	replaceable := unbondingTx.Copy()
	replaceable.TxIn[0].Sequence = wire.MaxTxInSequenceNum - 1
	require.Error(t, btcstaking.CheckPreSignedUnbondingTxSanity(replaceable))

	// Unbonding transactions are always version 2.
	v1 := unbondingTx.Copy()
	v1.Version = 1
	require.Error(t, btcstaking.CheckPreSignedUnbondingTxSanity(v1))

	// Signature data belongs in the witness, not the signature script.
	withSigScript := unbondingTx.Copy()
	withSigScript.TxIn[0].SignatureScript = []byte{0x01}
	require.Error(t, btcstaking.CheckPreSignedUnbondingTxSanity(withSigScript))

	require.Error(t, btcstaking.CheckPreSignedUnbondingTxSanity(nil))
}
