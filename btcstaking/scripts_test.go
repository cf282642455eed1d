package btcstaking_test

import (
	"bytes"
	"encoding/hex"
	"math/rand"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/btc-staking-builder/btcstaking"
	"github.com/babylonlabs-io/btc-staking-builder/testutil"
)

func buildScripts(
	t *testing.T,
	stakerKey *btcec.PublicKey,
	fpKeys, covenantKeys []*btcec.PublicKey,
	covenantQuorum uint32,
	stakingTime, unbondingTime uint16,
) *btcstaking.StakingScripts {
	scripts, err := btcstaking.BuildStakingScripts(
		stakerKey, fpKeys, covenantKeys, covenantQuorum, stakingTime, unbondingTime,
	)
	require.NoError(t, err)
	require.NotNil(t, scripts)

	return scripts
}

// TestTimeLockScriptEncoding pins the exact byte layout of the timelock
// branch so any encoding change is caught:
// OP_DATA_32 <pk> OP_CHECKSIGVERIFY <T> OP_CHECKSEQUENCEVERIFY
func TestTimeLockScriptEncoding(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(time.Now().Unix()))

	stakerKey := testutil.GenRandomPubKey(r, t)
	fpKeys := testutil.GenRandomPubKeys(r, t, 1)
	covenantKeys := testutil.GenRandomPubKeys(r, t, 1)

	scripts := buildScripts(t, stakerKey, fpKeys, covenantKeys, 1, 144, 100)

	pkHex := hex.EncodeToString(schnorr.SerializePubKey(stakerKey))
	// 144 encodes as the minimal two-byte script number 0x9000.
	expected := "20" + pkHex + "ad" + "029000" + "b2"
	require.Equal(t, expected, hex.EncodeToString(scripts.TimeLockScript))

	// The unbonding timelock branch uses the same layout with its own T.
	// 100 fits a single byte.
	expectedUnbonding := "20" + pkHex + "ad" + "0164" + "b2"
	require.Equal(t, expectedUnbonding, hex.EncodeToString(scripts.UnbondingTimeLockScript))
}

// TestSingleCovenantKeyDegeneratesToSingleSig checks that a committee of one
// is encoded as a plain signature check instead of a 1-of-1 threshold.
func TestSingleCovenantKeyDegeneratesToSingleSig(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(time.Now().Unix()))

	stakerKey := testutil.GenRandomPubKey(r, t)
	fpKeys := testutil.GenRandomPubKeys(r, t, 1)
	covenantKeys := testutil.GenRandomPubKeys(r, t, 1)

	scripts := buildScripts(t, stakerKey, fpKeys, covenantKeys, 1, 1000, 100)

	// Last check of the unbonding path is the covenant script, which for a
	// single key ends with a bare OP_CHECKSIG.
	require.Equal(t, byte(txscript.OP_CHECKSIG), scripts.UnbondingScript[len(scripts.UnbondingScript)-1])
	require.NotEqual(t, byte(txscript.OP_NUMEQUAL), scripts.UnbondingScript[len(scripts.UnbondingScript)-1])
}

func TestMultiSigScriptEncoding(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(time.Now().Unix()))

	stakerKey := testutil.GenRandomPubKey(r, t)
	fpKeys := testutil.GenRandomPubKeys(r, t, 1)
	covenantKeys := testutil.GenRandomPubKeys(r, t, 3)

	scripts := buildScripts(t, stakerKey, fpKeys, covenantKeys, 2, 1000, 100)

	// Unbonding path is <staker sig check> <covenant 2-of-3>, terminated by
	// OP_NUMEQUAL as the covenant check is last.
	require.Equal(t, byte(txscript.OP_NUMEQUAL), scripts.UnbondingScript[len(scripts.UnbondingScript)-1])

	// Committee keys must appear in canonical sorted order.
	sorted := btcstaking.SortKeys(covenantKeys)
	var lastIdx = -1
	for _, key := range sorted {
		idx := bytes.Index(scripts.UnbondingScript, schnorr.SerializePubKey(key))
		require.GreaterOrEqual(t, idx, 0)
		require.Greater(t, idx, lastIdx)
		lastIdx = idx
	}
}

func FuzzScriptsDeterministicUnderKeyPermutation(f *testing.F) {
	testutil.AddRandomSeedsToFuzzer(f, 10)

	f.Fuzz(func(t *testing.T, seed int64) {
		r := rand.New(rand.NewSource(seed))

		stakerKey := testutil.GenRandomPubKey(r, t)
		fpKeys := testutil.GenRandomPubKeys(r, t, 1+r.Intn(3))
		covenantKeys := testutil.GenRandomPubKeys(r, t, 2+r.Intn(4))
		quorum := uint32(1 + r.Intn(len(covenantKeys)))

		scripts := buildScripts(t, stakerKey, fpKeys, covenantKeys, quorum, 1000, 100)

		shuffledCovenant := make([]*btcec.PublicKey, len(covenantKeys))
		copy(shuffledCovenant, covenantKeys)
		r.Shuffle(len(shuffledCovenant), func(i, j int) {
			shuffledCovenant[i], shuffledCovenant[j] = shuffledCovenant[j], shuffledCovenant[i]
		})

		shuffledFp := make([]*btcec.PublicKey, len(fpKeys))
		copy(shuffledFp, fpKeys)
		r.Shuffle(len(shuffledFp), func(i, j int) {
			shuffledFp[i], shuffledFp[j] = shuffledFp[j], shuffledFp[i]
		})

		permuted := buildScripts(t, stakerKey, shuffledFp, shuffledCovenant, quorum, 1000, 100)

		require.Equal(t, scripts.TimeLockScript, permuted.TimeLockScript)
		require.Equal(t, scripts.UnbondingScript, permuted.UnbondingScript)
		require.Equal(t, scripts.SlashingScript, permuted.SlashingScript)
		require.Equal(t, scripts.UnbondingTimeLockScript, permuted.UnbondingTimeLockScript)
	})
}

func TestBuildStakingScriptsErrors(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(time.Now().Unix()))

	stakerKey := testutil.GenRandomPubKey(r, t)
	fpKeys := testutil.GenRandomPubKeys(r, t, 1)
	covenantKeys := testutil.GenRandomPubKeys(r, t, 3)

	testCases := []struct {
		name  string
		build func() (*btcstaking.StakingScripts, error)
	}{
		{
			"nil staker key",
			func() (*btcstaking.StakingScripts, error) {
				return btcstaking.BuildStakingScripts(nil, fpKeys, covenantKeys, 2, 1000, 100)
			},
		},
		{
			"no finality provider keys",
			func() (*btcstaking.StakingScripts, error) {
				return btcstaking.BuildStakingScripts(stakerKey, nil, covenantKeys, 2, 1000, 100)
			},
		},
		{
			"no covenant keys",
			func() (*btcstaking.StakingScripts, error) {
				return btcstaking.BuildStakingScripts(stakerKey, fpKeys, nil, 2, 1000, 100)
			},
		},
		{
			"zero quorum",
			func() (*btcstaking.StakingScripts, error) {
				return btcstaking.BuildStakingScripts(stakerKey, fpKeys, covenantKeys, 0, 1000, 100)
			},
		},
		{
			"quorum above committee size",
			func() (*btcstaking.StakingScripts, error) {
				return btcstaking.BuildStakingScripts(stakerKey, fpKeys, covenantKeys, 4, 1000, 100)
			},
		},
		{
			"duplicate covenant keys",
			func() (*btcstaking.StakingScripts, error) {
				dup := []*btcec.PublicKey{covenantKeys[0], covenantKeys[0], covenantKeys[1]}
				return btcstaking.BuildStakingScripts(stakerKey, fpKeys, dup, 2, 1000, 100)
			},
		},
		{
			"nil covenant committee member",
			func() (*btcstaking.StakingScripts, error) {
				withNil := []*btcec.PublicKey{covenantKeys[0], nil, covenantKeys[1]}
				return btcstaking.BuildStakingScripts(stakerKey, fpKeys, withNil, 2, 1000, 100)
			},
		},
		{
			"nil finality provider key",
			func() (*btcstaking.StakingScripts, error) {
				return btcstaking.BuildStakingScripts(stakerKey, []*btcec.PublicKey{nil}, covenantKeys, 2, 1000, 100)
			},
		},
		{
			"zero staking time",
			func() (*btcstaking.StakingScripts, error) {
				return btcstaking.BuildStakingScripts(stakerKey, fpKeys, covenantKeys, 2, 0, 100)
			},
		},
		{
			"unbonding time not below staking time",
			func() (*btcstaking.StakingScripts, error) {
				return btcstaking.BuildStakingScripts(stakerKey, fpKeys, covenantKeys, 2, 100, 100)
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := tc.build()
			require.ErrorIs(t, err, btcstaking.ErrScriptBuild)
		})
	}
}

func TestSortKeysDoesNotMutateInput(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(time.Now().Unix()))

	keys := testutil.GenRandomPubKeys(r, t, 5)
	original := make([]*btcec.PublicKey, len(keys))
	copy(original, keys)

	sorted := btcstaking.SortKeys(keys)

	require.Equal(t, original, keys)
	for i := 0; i < len(sorted)-1; i++ {
		require.Negative(t, bytes.Compare(
			schnorr.SerializePubKey(sorted[i]),
			schnorr.SerializePubKey(sorted[i+1]),
		))
	}
}
