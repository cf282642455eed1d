package types

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/babylonlabs-io/btc-staking-builder/util"
)

// MinDustOutputValueSat is the protocol dust floor. Any output of a staking,
// unbonding or slashing transaction must carry at least this value. It is a
// pinned protocol constant shared by all implementations, independent of the
// relay-fee derived dust threshold used for change outputs.
const MinDustOutputValueSat = btcutil.Amount(546)

// ErrInvalidStakingParams is returned when the joint invariants over the
// staking parameters are violated. The wrapped message identifies the
// specific invariant.
var ErrInvalidStakingParams = errors.New("invalid staking parameters")

// StakingParams holds the protocol-wide configuration of the staking system.
// A StakingParams value is constructed once per staking context and treated
// as immutable afterwards; all derived scripts and transactions reference it
// by value.
type StakingParams struct {
	// Bitcoin public keys of the covenant committee
	CovenantPks []*btcec.PublicKey

	// Minimum number of signatures needed for the covenant multisignature
	CovenantQuorum uint32

	// Minimum and maximum staking amount in satoshis
	MinStakingValueSat btcutil.Amount
	MaxStakingValueSat btcutil.Amount

	// Minimum and maximum staking time in BTC blocks
	MinStakingTimeBlocks uint16
	MaxStakingTimeBlocks uint16

	// The exact block count for the unbonding transaction timelock
	UnbondingTimeBlocks uint16

	// Fee deducted from the staking output when building the unbonding
	// transaction
	UnbondingFeeSat btcutil.Amount

	// The pk_script expected in the first output of the slashing transaction
	SlashingPkScript []byte

	// The staked portion to be slashed, expressed as a decimal
	// (e.g., 0.5 for 50%)
	SlashingRate sdkmath.LegacyDec

	// Minimum amount of tx fee (quantified in satoshi) needed for the
	// pre-signed slashing tx
	MinSlashingTxFeeSat btcutil.Amount
}

// Validate checks the joint invariants over the parameter set, failing fast
// on the first violation. It must be called before any script or transaction
// construction uses the parameters.
func (p *StakingParams) Validate() error {
	if len(p.CovenantPks) == 0 {
		return fmt.Errorf("%w: covenant committee is empty", ErrInvalidStakingParams)
	}

	for i, pk := range p.CovenantPks {
		if pk == nil {
			return fmt.Errorf("%w: covenant committee member at index %d is nil", ErrInvalidStakingParams, i)
		}
	}

	if dup, idx := util.HasDuplicateKeys(p.CovenantPks); dup {
		return fmt.Errorf("%w: duplicate covenant committee member at index %d", ErrInvalidStakingParams, idx)
	}

	if p.CovenantQuorum == 0 || p.CovenantQuorum > uint32(len(p.CovenantPks)) {
		return fmt.Errorf(
			"%w: covenant quorum %d outside of [1, %d]",
			ErrInvalidStakingParams, p.CovenantQuorum, len(p.CovenantPks),
		)
	}

	// The unbonding transaction spends the staking output paying
	// UnbondingFeeSat, so the smallest permitted stake must still leave an
	// unbonding output above the dust floor.
	if p.MinStakingValueSat <= p.UnbondingFeeSat+MinDustOutputValueSat {
		return fmt.Errorf(
			"%w: minimum staking value %d must exceed unbonding fee %d plus dust floor %d",
			ErrInvalidStakingParams, p.MinStakingValueSat, p.UnbondingFeeSat, MinDustOutputValueSat,
		)
	}

	if p.MinStakingValueSat > p.MaxStakingValueSat {
		return fmt.Errorf(
			"%w: minimum staking value %d is larger than maximum %d",
			ErrInvalidStakingParams, p.MinStakingValueSat, p.MaxStakingValueSat,
		)
	}

	if p.MinStakingTimeBlocks == 0 {
		return fmt.Errorf("%w: minimum staking time must be positive", ErrInvalidStakingParams)
	}

	if p.MinStakingTimeBlocks > p.MaxStakingTimeBlocks {
		return fmt.Errorf(
			"%w: minimum staking time %d is larger than maximum %d",
			ErrInvalidStakingParams, p.MinStakingTimeBlocks, p.MaxStakingTimeBlocks,
		)
	}

	if p.UnbondingTimeBlocks == 0 {
		return fmt.Errorf("%w: unbonding time must be positive", ErrInvalidStakingParams)
	}

	if p.SlashingRate.IsNil() ||
		!p.SlashingRate.GT(sdkmath.LegacyZeroDec()) ||
		!p.SlashingRate.LT(sdkmath.LegacyOneDec()) {
		return fmt.Errorf("%w: slashing rate must be in the open range (0, 1)", ErrInvalidStakingParams)
	}

	if len(p.SlashingPkScript) == 0 {
		return fmt.Errorf("%w: slashing pk script is empty", ErrInvalidStakingParams)
	}

	if p.MinSlashingTxFeeSat <= 0 {
		return fmt.Errorf("%w: minimum slashing tx fee must be positive", ErrInvalidStakingParams)
	}

	return nil
}

// ValidateStakingTime checks the per-request invariants between the chosen
// staking timelock and the parameter set. It is a separate check from
// Validate as the timelock is chosen per staking request, not fixed in the
// parameters.
func (p *StakingParams) ValidateStakingTime(stakingTime uint16) error {
	if stakingTime < p.MinStakingTimeBlocks || stakingTime > p.MaxStakingTimeBlocks {
		return fmt.Errorf(
			"%w: staking time %d outside of [%d, %d]",
			ErrInvalidStakingParams, stakingTime, p.MinStakingTimeBlocks, p.MaxStakingTimeBlocks,
		)
	}

	if p.UnbondingTimeBlocks >= stakingTime {
		return fmt.Errorf(
			"%w: unbonding time %d must be lower than the staking time %d",
			ErrInvalidStakingParams, p.UnbondingTimeBlocks, stakingTime,
		)
	}

	return nil
}

// stakingParamsJSON mirrors the published global-parameters JSON layout:
// covenant keys as 32-byte x-only hex, the slashing pk script as base64 and
// the slashing rate as a decimal string.
type stakingParamsJSON struct {
	CovenantPks          []string `json:"covenant_pks"`
	CovenantQuorum       uint32   `json:"covenant_quorum"`
	MinStakingValueSat   int64    `json:"min_staking_value_sat"`
	MaxStakingValueSat   int64    `json:"max_staking_value_sat"`
	MinStakingTimeBlocks uint16   `json:"min_staking_time_blocks"`
	MaxStakingTimeBlocks uint16   `json:"max_staking_time_blocks"`
	UnbondingTimeBlocks  uint16   `json:"unbonding_time_blocks"`
	UnbondingFeeSat      int64    `json:"unbonding_fee_sat"`
	SlashingPkScript     string   `json:"slashing_pk_script"`
	SlashingRate         string   `json:"slashing_rate"`
	MinSlashingTxFeeSat  int64    `json:"min_slashing_tx_fee_sat"`
}

func (p StakingParams) MarshalJSON() ([]byte, error) {
	covenantPks := make([]string, len(p.CovenantPks))
	for i, pk := range p.CovenantPks {
		covenantPks[i] = hex.EncodeToString(schnorr.SerializePubKey(pk))
	}

	return json.Marshal(stakingParamsJSON{
		CovenantPks:          covenantPks,
		CovenantQuorum:       p.CovenantQuorum,
		MinStakingValueSat:   int64(p.MinStakingValueSat),
		MaxStakingValueSat:   int64(p.MaxStakingValueSat),
		MinStakingTimeBlocks: p.MinStakingTimeBlocks,
		MaxStakingTimeBlocks: p.MaxStakingTimeBlocks,
		UnbondingTimeBlocks:  p.UnbondingTimeBlocks,
		UnbondingFeeSat:      int64(p.UnbondingFeeSat),
		SlashingPkScript:     base64.StdEncoding.EncodeToString(p.SlashingPkScript),
		SlashingRate:         p.SlashingRate.String(),
		MinSlashingTxFeeSat:  int64(p.MinSlashingTxFeeSat),
	})
}

func (p *StakingParams) UnmarshalJSON(data []byte) error {
	var pj stakingParamsJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}

	covenantPks := make([]*btcec.PublicKey, len(pj.CovenantPks))
	for i, pkHex := range pj.CovenantPks {
		pkBytes, err := hex.DecodeString(pkHex)
		if err != nil {
			return fmt.Errorf("invalid covenant public key %s: %w", pkHex, err)
		}
		pk, err := schnorr.ParsePubKey(pkBytes)
		if err != nil {
			return fmt.Errorf("invalid covenant public key %s: %w", pkHex, err)
		}
		covenantPks[i] = pk
	}

	slashingPkScript, err := base64.StdEncoding.DecodeString(pj.SlashingPkScript)
	if err != nil {
		return fmt.Errorf("invalid slashing pk script: %w", err)
	}

	slashingRate, err := sdkmath.LegacyNewDecFromStr(pj.SlashingRate)
	if err != nil {
		return fmt.Errorf("invalid slashing rate: %w", err)
	}

	p.CovenantPks = covenantPks
	p.CovenantQuorum = pj.CovenantQuorum
	p.MinStakingValueSat = btcutil.Amount(pj.MinStakingValueSat)
	p.MaxStakingValueSat = btcutil.Amount(pj.MaxStakingValueSat)
	p.MinStakingTimeBlocks = pj.MinStakingTimeBlocks
	p.MaxStakingTimeBlocks = pj.MaxStakingTimeBlocks
	p.UnbondingTimeBlocks = pj.UnbondingTimeBlocks
	p.UnbondingFeeSat = btcutil.Amount(pj.UnbondingFeeSat)
	p.SlashingPkScript = slashingPkScript
	p.SlashingRate = slashingRate
	p.MinSlashingTxFeeSat = btcutil.Amount(pj.MinSlashingTxFeeSat)

	return nil
}
