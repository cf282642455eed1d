package types_test

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/btc-staking-builder/testutil"
	"github.com/babylonlabs-io/btc-staking-builder/types"
)

func TestStakingParamsValidate(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(time.Now().Unix()))

	testCases := []struct {
		name   string
		mutate func(p *types.StakingParams)
	}{
		{
			"empty committee",
			func(p *types.StakingParams) { p.CovenantPks = nil },
		},
		{
			"duplicate committee member",
			func(p *types.StakingParams) { p.CovenantPks[1] = p.CovenantPks[0] },
		},
		{
			"nil committee member",
			func(p *types.StakingParams) { p.CovenantPks[2] = nil },
		},
		{
			"zero quorum",
			func(p *types.StakingParams) { p.CovenantQuorum = 0 },
		},
		{
			"quorum above committee size",
			func(p *types.StakingParams) { p.CovenantQuorum = uint32(len(p.CovenantPks) + 1) },
		},
		{
			"min staking value not above unbonding fee plus dust",
			func(p *types.StakingParams) { p.MinStakingValueSat = p.UnbondingFeeSat + types.MinDustOutputValueSat },
		},
		{
			"min staking value above max",
			func(p *types.StakingParams) { p.MinStakingValueSat = p.MaxStakingValueSat + 1 },
		},
		{
			"zero min staking time",
			func(p *types.StakingParams) { p.MinStakingTimeBlocks = 0 },
		},
		{
			"min staking time above max",
			func(p *types.StakingParams) { p.MinStakingTimeBlocks = p.MaxStakingTimeBlocks + 1 },
		},
		{
			"zero unbonding time",
			func(p *types.StakingParams) { p.UnbondingTimeBlocks = 0 },
		},
		{
			"nil slashing rate",
			func(p *types.StakingParams) { p.SlashingRate = sdkmath.LegacyDec{} },
		},
		{
			"zero slashing rate",
			func(p *types.StakingParams) { p.SlashingRate = sdkmath.LegacyZeroDec() },
		},
		{
			"slashing rate of one",
			func(p *types.StakingParams) { p.SlashingRate = sdkmath.LegacyOneDec() },
		},
		{
			"empty slashing pk script",
			func(p *types.StakingParams) { p.SlashingPkScript = nil },
		},
		{
			"zero min slashing tx fee",
			func(p *types.StakingParams) { p.MinSlashingTxFeeSat = 0 },
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			params := testutil.GenStakingParams(r, t, 5, 3)
			tc.mutate(params)
			require.ErrorIs(t, params.Validate(), types.ErrInvalidStakingParams)
		})
	}
}

func TestValidateStakingTime(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(time.Now().Unix()))

	params := testutil.GenStakingParams(r, t, 5, 3)

	require.NoError(t, params.ValidateStakingTime(params.MinStakingTimeBlocks))
	require.NoError(t, params.ValidateStakingTime(params.MaxStakingTimeBlocks))

	require.ErrorIs(
		t,
		params.ValidateStakingTime(params.MinStakingTimeBlocks-1),
		types.ErrInvalidStakingParams,
	)
	require.ErrorIs(
		t,
		params.ValidateStakingTime(params.MaxStakingTimeBlocks+1),
		types.ErrInvalidStakingParams,
	)

	// The staking timelock must strictly exceed the unbonding timelock.
	params.MinStakingTimeBlocks = 1
	require.ErrorIs(
		t,
		params.ValidateStakingTime(params.UnbondingTimeBlocks),
		types.ErrInvalidStakingParams,
	)
}

func TestStakingParamsJSONRoundTrip(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(time.Now().Unix()))

	params := testutil.GenStakingParams(r, t, 5, 3)

	data, err := json.Marshal(params)
	require.NoError(t, err)

	var decoded types.StakingParams
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NoError(t, decoded.Validate())

	require.Len(t, decoded.CovenantPks, len(params.CovenantPks))
	for i := range params.CovenantPks {
		require.Equal(
			t,
			schnorr.SerializePubKey(params.CovenantPks[i]),
			schnorr.SerializePubKey(decoded.CovenantPks[i]),
		)
	}
	require.Equal(t, params.CovenantQuorum, decoded.CovenantQuorum)
	require.Equal(t, params.MinStakingValueSat, decoded.MinStakingValueSat)
	require.Equal(t, params.MaxStakingValueSat, decoded.MaxStakingValueSat)
	require.Equal(t, params.UnbondingFeeSat, decoded.UnbondingFeeSat)
	require.Equal(t, params.SlashingPkScript, decoded.SlashingPkScript)
	require.True(t, params.SlashingRate.Equal(decoded.SlashingRate))
}

func TestStakingParamsFromPublishedJSON(t *testing.T) {
	t.Parallel()

	// Layout of the published global parameters files.
	paramsJSON := `{
		"covenant_pks": [
			"50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0",
			"79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
		],
		"covenant_quorum": 2,
		"min_staking_value_sat": 50000,
		"max_staking_value_sat": 5000000000,
		"min_staking_time_blocks": 64000,
		"max_staking_time_blocks": 64000,
		"unbonding_time_blocks": 1008,
		"unbonding_fee_sat": 10000,
		"slashing_pk_script": "ag==",
		"slashing_rate": "0.1",
		"min_slashing_tx_fee_sat": 1000
	}`

	var params types.StakingParams
	require.NoError(t, json.Unmarshal([]byte(paramsJSON), &params))
	require.NoError(t, params.Validate())

	require.Len(t, params.CovenantPks, 2)
	require.Equal(t, uint32(2), params.CovenantQuorum)
	require.Equal(t, btcutil.Amount(50000), params.MinStakingValueSat)
	require.Equal(t, uint16(1008), params.UnbondingTimeBlocks)
	require.Equal(t, []byte{0x6a}, params.SlashingPkScript)
	require.True(t, params.SlashingRate.Equal(sdkmath.LegacyNewDecWithPrec(1, 1)))
}
