package btcstaking

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"

	"github.com/babylonlabs-io/btc-staking-builder/util"
)

// StakingScripts holds the raw spending scripts committed to by the staking
// output script tree. Two script sets are semantically equal iff every
// script is byte-identical, which the builder guarantees for identical
// inputs regardless of the order in which covenant keys were supplied.
type StakingScripts struct {
	// Spendable by the staker alone after the staking timelock
	TimeLockScript []byte

	// Spendable by the staker together with the covenant quorum at any time
	UnbondingScript []byte

	// Spendable by the staker, a finality provider and the covenant quorum
	// at any time
	SlashingScript []byte

	// Spendable by the staker alone after the unbonding timelock; committed
	// to by the unbonding output, not the staking output
	UnbondingTimeLockScript []byte
}

// SortKeys returns a copy of the provided keys sorted in the canonical
// protocol order: ascending lexicographic order over their 32-byte x-only
// serialization. Every threshold check embeds keys in this order so that
// independent implementations produce byte-identical scripts.
func SortKeys(keys []*btcec.PublicKey) []*btcec.PublicKey {
	sortedKeys := make([]*btcec.PublicKey, len(keys))
	copy(sortedKeys, keys)
	sort.SliceStable(sortedKeys, func(i, j int) bool {
		keyIBytes := schnorr.SerializePubKey(sortedKeys[i])
		keyJBytes := schnorr.SerializePubKey(sortedKeys[j])

		return bytes.Compare(keyIBytes, keyJBytes) == -1
	})

	return sortedKeys
}

// buildTimeLockScript builds a script requiring the key holder's signature
// after a relative timelock:
// <pubKey> OP_CHECKSIGVERIFY <lockTime> OP_CHECKSEQUENCEVERIFY
// lockTime is uint16 as Bitcoin's relative timelock field is 16 bits wide.
func buildTimeLockScript(pubKey *btcec.PublicKey, lockTime uint16) ([]byte, error) {
	if pubKey == nil {
		return nil, fmt.Errorf("%w: timelock key is nil", ErrScriptBuild)
	}
	if lockTime == 0 {
		return nil, fmt.Errorf("%w: timelock must be positive", ErrScriptBuild)
	}

	return txscript.NewScriptBuilder().
		AddData(schnorr.SerializePubKey(pubKey)).
		AddOp(txscript.OP_CHECKSIGVERIFY).
		AddInt64(int64(lockTime)).
		AddOp(txscript.OP_CHECKSEQUENCEVERIFY).
		Script()
}

// buildSingleKeySigScript builds:
// <pubKey> OP_CHECKSIGVERIFY (withVerify) or <pubKey> OP_CHECKSIG
func buildSingleKeySigScript(pubKey *btcec.PublicKey, withVerify bool) ([]byte, error) {
	if pubKey == nil {
		return nil, fmt.Errorf("%w: signing key is nil", ErrScriptBuild)
	}

	builder := txscript.NewScriptBuilder().
		AddData(schnorr.SerializePubKey(pubKey))

	if withVerify {
		builder.AddOp(txscript.OP_CHECKSIGVERIFY)
	} else {
		builder.AddOp(txscript.OP_CHECKSIG)
	}

	return builder.Script()
}

// assembleMultiSigScript encodes an M-of-N threshold check over the already
// sorted keys:
// <pk_0> OP_CHECKSIG <pk_1> OP_CHECKSIGADD ... <M> OP_NUMEQUAL[VERIFY]
func assembleMultiSigScript(
	pubKeys []*btcec.PublicKey,
	threshold uint32,
	withVerify bool,
) ([]byte, error) {
	builder := txscript.NewScriptBuilder()
	for i, key := range pubKeys {
		builder.AddData(schnorr.SerializePubKey(key))
		if i == 0 {
			builder.AddOp(txscript.OP_CHECKSIG)
		} else {
			builder.AddOp(txscript.OP_CHECKSIGADD)
		}
	}
	builder.AddInt64(int64(threshold))

	if withVerify {
		builder.AddOp(txscript.OP_NUMEQUALVERIFY)
	} else {
		builder.AddOp(txscript.OP_NUMEQUAL)
	}

	return builder.Script()
}

// buildMultiSigScript builds a threshold script requiring signatures from at
// least threshold of the given keys. Keys are canonicalized via SortKeys
// before encoding. A single-key set degenerates to the single-sig script as
// a threshold check over one key is equivalent and cheaper.
func buildMultiSigScript(
	keys []*btcec.PublicKey,
	threshold uint32,
	withVerify bool,
) ([]byte, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keys provided", ErrScriptBuild)
	}

	for i, key := range keys {
		if key == nil {
			return nil, fmt.Errorf("%w: key at index %d is nil", ErrScriptBuild, i)
		}
	}

	if threshold == 0 || threshold > uint32(len(keys)) {
		return nil, fmt.Errorf(
			"%w: required number of signers %d outside of [1, %d]",
			ErrScriptBuild, threshold, len(keys),
		)
	}

	if err := util.ValidateNoDuplicateKeys(keys); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrScriptBuild, err.Error())
	}

	if len(keys) == 1 {
		return buildSingleKeySigScript(keys[0], withVerify)
	}

	return assembleMultiSigScript(SortKeys(keys), threshold, withVerify)
}

// aggregateScripts concatenates scripts into a single conjunctive script.
// Every sub-script except the last must end with a *VERIFY opcode.
func aggregateScripts(scripts ...[]byte) []byte {
	var finalScript []byte
	for _, script := range scripts {
		finalScript = append(finalScript, script...)
	}

	return finalScript
}

// scriptPaths holds the three spending scripts committed to by the staking
// output.
type scriptPaths struct {
	timeLockPathScript  []byte
	unbondingPathScript []byte
	slashingPathScript  []byte
}

func newScriptPaths(
	stakerKey *btcec.PublicKey,
	fpKeys []*btcec.PublicKey,
	covenantKeys []*btcec.PublicKey,
	covenantQuorum uint32,
	lockTime uint16,
) (*scriptPaths, error) {
	if stakerKey == nil {
		return nil, fmt.Errorf("%w: staker key is nil", ErrScriptBuild)
	}
	if len(fpKeys) == 0 {
		return nil, fmt.Errorf("%w: no finality provider keys provided", ErrScriptBuild)
	}

	timeLockPathScript, err := buildTimeLockScript(stakerKey, lockTime)
	if err != nil {
		return nil, err
	}

	stakerSigScript, err := buildSingleKeySigScript(stakerKey, true)
	if err != nil {
		return nil, err
	}

	// Any single finality provider of the delegation can be slashed, hence
	// the 1-of-n threshold.
	fpSigScript, err := buildMultiSigScript(fpKeys, 1, true)
	if err != nil {
		return nil, err
	}

	// Covenant multisig is the last check in both paths, so no verify.
	covenantSigScript, err := buildMultiSigScript(covenantKeys, covenantQuorum, false)
	if err != nil {
		return nil, err
	}

	return &scriptPaths{
		timeLockPathScript:  timeLockPathScript,
		unbondingPathScript: aggregateScripts(stakerSigScript, covenantSigScript),
		slashingPathScript:  aggregateScripts(stakerSigScript, fpSigScript, covenantSigScript),
	}, nil
}

// BuildStakingScripts derives the canonical script set from key material and
// the two request timelocks. For identical inputs the result is
// byte-identical on every invocation, for any permutation of the covenant
// committee or the finality provider keys.
func BuildStakingScripts(
	stakerKey *btcec.PublicKey,
	fpKeys []*btcec.PublicKey,
	covenantKeys []*btcec.PublicKey,
	covenantQuorum uint32,
	stakingTime uint16,
	unbondingTime uint16,
) (*StakingScripts, error) {
	if unbondingTime >= stakingTime {
		return nil, fmt.Errorf(
			"%w: unbonding time %d must be lower than staking time %d",
			ErrScriptBuild, unbondingTime, stakingTime,
		)
	}

	paths, err := newScriptPaths(stakerKey, fpKeys, covenantKeys, covenantQuorum, stakingTime)
	if err != nil {
		return nil, err
	}

	unbondingTimeLockScript, err := buildTimeLockScript(stakerKey, unbondingTime)
	if err != nil {
		return nil, err
	}

	return &StakingScripts{
		TimeLockScript:          paths.timeLockPathScript,
		UnbondingScript:         paths.unbondingPathScript,
		SlashingScript:          paths.slashingPathScript,
		UnbondingTimeLockScript: unbondingTimeLockScript,
	}, nil
}
