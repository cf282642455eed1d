package testutil

import (
	"encoding/hex"
	"math/rand"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/btc-staking-builder/types"
	"github.com/babylonlabs-io/btc-staking-builder/util"
)

func GenRandomByteArray(r *rand.Rand, length uint64) []byte {
	newHeaderBytes := make([]byte, length)
	r.Read(newHeaderBytes)

	return newHeaderBytes
}

func GenRandomHexStr(r *rand.Rand, length uint64) string {
	randBytes := GenRandomByteArray(r, length)

	return hex.EncodeToString(randBytes)
}

func AddRandomSeedsToFuzzer(f *testing.F, num uint) {
	// Seed based on the current time
	r := rand.New(rand.NewSource(time.Now().Unix()))
	var idx uint
	for idx = 0; idx < num; idx++ {
		f.Add(r.Int63())
	}
}

// GenRandomKeyPair generates a valid secp256k1 key pair from the given
// randomness source.
func GenRandomKeyPair(r *rand.Rand, t *testing.T) (*btcec.PrivateKey, *btcec.PublicKey) {
	for {
		privKeyBytes := GenRandomByteArray(r, 32)
		if err := util.ValidatePrivKeyBytes(privKeyBytes); err != nil {
			continue
		}
		sk, pk := btcec.PrivKeyFromBytes(privKeyBytes)
		require.NotNil(t, sk)
		require.NotNil(t, pk)

		return sk, pk
	}
}

func GenRandomPubKey(r *rand.Rand, t *testing.T) *btcec.PublicKey {
	_, pk := GenRandomKeyPair(r, t)

	return pk
}

func GenRandomPubKeys(r *rand.Rand, t *testing.T, num int) []*btcec.PublicKey {
	pks := make([]*btcec.PublicKey, num)
	for i := 0; i < num; i++ {
		pks[i] = GenRandomPubKey(r, t)
	}

	return pks
}

// GenValidSlashingRate generates a random slashing rate in [0.10, 0.50].
func GenValidSlashingRate(r *rand.Rand) sdkmath.LegacyDec {
	return sdkmath.LegacyNewDecWithPrec(int64(r.Intn(41)+10), 2)
}

// GenStakingParams generates a valid parameter set with a random covenant
// committee of the given size and quorum.
func GenStakingParams(r *rand.Rand, t *testing.T, covenantSize int, quorum uint32) *types.StakingParams {
	slashingAddr, err := btcutil.NewAddressWitnessPubKeyHash(
		GenRandomByteArray(r, 20), &chaincfg.SimNetParams,
	)
	require.NoError(t, err)
	slashingPkScript, err := txscript.PayToAddrScript(slashingAddr)
	require.NoError(t, err)

	params := &types.StakingParams{
		CovenantPks:          GenRandomPubKeys(r, t, covenantSize),
		CovenantQuorum:       quorum,
		MinStakingValueSat:   btcutil.Amount(20000),
		MaxStakingValueSat:   btcutil.Amount(10 * btcutil.SatoshiPerBitcoin),
		MinStakingTimeBlocks: 100,
		MaxStakingTimeBlocks: 60000,
		UnbondingTimeBlocks:  50,
		UnbondingFeeSat:      btcutil.Amount(2000),
		SlashingPkScript:     slashingPkScript,
		SlashingRate:         GenValidSlashingRate(r),
		MinSlashingTxFeeSat:  btcutil.Amount(1000),
	}
	require.NoError(t, params.Validate())

	return params
}

// GenRandomUTXO generates a native segwit UTXO with the given value.
func GenRandomUTXO(r *rand.Rand, t *testing.T, value btcutil.Amount) types.UTXO {
	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		GenRandomByteArray(r, 20), &chaincfg.SimNetParams,
	)
	require.NoError(t, err)
	pkScript, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)

	return types.UTXO{
		Txid:         GenRandomHexStr(r, 32),
		Vout:         uint32(r.Intn(10)),
		ScriptPubKey: hex.EncodeToString(pkScript),
		Value:        value,
	}
}

// GenRandomUTXOs generates UTXOs whose values sum up to totalValue exactly.
func GenRandomUTXOs(r *rand.Rand, t *testing.T, num int, totalValue btcutil.Amount) []types.UTXO {
	require.Positive(t, num)
	utxos := make([]types.UTXO, num)
	remaining := totalValue
	for i := 0; i < num; i++ {
		value := remaining / btcutil.Amount(num-i)
		if i == num-1 {
			value = remaining
		}
		utxos[i] = GenRandomUTXO(r, t, value)
		remaining -= value
	}

	return utxos
}
