package btcstaking

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// unspendableKeyPath is the internal public key of every staking system
// Taproot output. It is a NUMS point with provably unknown discrete log
// (the BIP341 suggested point H), so the key spending path can never be
// used and all spends go through the committed script tree. Pinned protocol
// constant.
const unspendableKeyPath = "0250929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0"

var unspendableKeyPathKey = unspendableKeyPathInternalPubKeyInternal(unspendableKeyPath)

func unspendableKeyPathInternalPubKeyInternal(keyHex string) btcec.PublicKey {
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		panic(fmt.Errorf("unexpected error decoding unspendable key path: %w", err))
	}

	// We are using btcec here, as key is 33 byte compressed format.
	pubKey, err := btcec.ParsePubKey(keyBytes)
	if err != nil {
		panic(fmt.Errorf("unexpected error parsing unspendable key path: %w", err))
	}

	return *pubKey
}

// UnspendableKeyPathInternalPubKey returns the fixed internal public key of
// all staking system Taproot outputs.
func UnspendableKeyPathInternalPubKey() btcec.PublicKey {
	return unspendableKeyPathKey
}

// SpendInfo contains the control block and the revealed leaf script needed
// to spend a Taproot output through a specific script path.
type SpendInfo struct {
	ControlBlock txscript.ControlBlock
	RevealedLeaf txscript.TapLeaf
}

// GetPkScriptPath returns the raw script of the revealed leaf.
func (i *SpendInfo) GetPkScriptPath() []byte {
	return i.RevealedLeaf.Script
}

// taprootScriptHolder keeps the indexed script tree of a Taproot output
// together with its internal key, and produces pk scripts and per-leaf
// spend info from it.
type taprootScriptHolder struct {
	internalPubKey *btcec.PublicKey
	scriptTree     *txscript.IndexedTapScriptTree
}

func newTaprootScriptHolder(
	internalPubKey *btcec.PublicKey,
	scripts [][]byte,
) (*taprootScriptHolder, error) {
	if internalPubKey == nil {
		return nil, fmt.Errorf("%w: internal public key is nil", ErrScriptBuild)
	}

	if len(scripts) == 0 {
		return &taprootScriptHolder{
			internalPubKey: internalPubKey,
			scriptTree:     txscript.AssembleTaprootScriptTree(),
		}, nil
	}

	createdLeafs := make(map[chainhash.Hash]bool)
	tapLeafs := make([]txscript.TapLeaf, len(scripts))

	for i, s := range scripts {
		script := s
		if len(script) == 0 {
			return nil, fmt.Errorf("%w: cannot build tree with empty script", ErrScriptBuild)
		}

		tapLeaf := txscript.NewBaseTapLeaf(script)
		leafHash := tapLeaf.TapHash()

		if createdLeafs[leafHash] {
			return nil, fmt.Errorf("%w: duplicate script in the tree", ErrScriptBuild)
		}

		createdLeafs[leafHash] = true
		tapLeafs[i] = tapLeaf
	}

	return &taprootScriptHolder{
		internalPubKey: internalPubKey,
		scriptTree:     txscript.AssembleTaprootScriptTree(tapLeafs...),
	}, nil
}

// taprootPkScript returns the pk script of the Taproot output committing to
// the whole script tree.
func (t *taprootScriptHolder) taprootPkScript(net *chaincfg.Params) ([]byte, error) {
	rootHash := t.scriptTree.RootNode.TapHash()
	taprootKey := txscript.ComputeTaprootOutputKey(
		t.internalPubKey,
		rootHash[:],
	)

	taprootAddress, err := btcutil.NewAddressTaproot(
		schnorr.SerializePubKey(taprootKey),
		net,
	)
	if err != nil {
		return nil, err
	}

	return txscript.PayToAddrScript(taprootAddress)
}

// scriptSpendInfoByLeafHash recovers the control block and leaf script of
// the leaf with the given hash.
func (t *taprootScriptHolder) scriptSpendInfoByLeafHash(
	leafHash chainhash.Hash,
) (*SpendInfo, error) {
	scriptIdx, ok := t.scriptTree.LeafProofIndex[leafHash]
	if !ok {
		return nil, fmt.Errorf("spend path not found in the script tree")
	}

	merkleProof := t.scriptTree.LeafMerkleProofs[scriptIdx]

	return &SpendInfo{
		ControlBlock: merkleProof.ToControlBlock(t.internalPubKey),
		RevealedLeaf: merkleProof.TapLeaf,
	}, nil
}

// StakingInfo couples the Taproot staking output with the script tree data
// needed to spend it through each path. It is built once per request and
// never mutated.
type StakingInfo struct {
	StakingOutput         *wire.TxOut
	scriptHolder          *taprootScriptHolder
	timeLockPathLeafHash  chainhash.Hash
	unbondingPathLeafHash chainhash.Hash
	slashingPathLeafHash  chainhash.Hash
}

func (i *StakingInfo) TimeLockPathSpendInfo() (*SpendInfo, error) {
	return i.scriptHolder.scriptSpendInfoByLeafHash(i.timeLockPathLeafHash)
}

func (i *StakingInfo) UnbondingPathSpendInfo() (*SpendInfo, error) {
	return i.scriptHolder.scriptSpendInfoByLeafHash(i.unbondingPathLeafHash)
}

func (i *StakingInfo) SlashingPathSpendInfo() (*SpendInfo, error) {
	return i.scriptHolder.scriptSpendInfoByLeafHash(i.slashingPathLeafHash)
}

// BuildStakingInfo builds the Taproot staking output committing to the
// timelock, unbonding and slashing paths. Leaves are assembled in the pinned
// order [timelock, unbonding, slashing]; together with the canonical key
// ordering inside each threshold check this makes the resulting output, and
// therefore the staking address, reproducible across implementations.
func BuildStakingInfo(
	stakerKey *btcec.PublicKey,
	fpKeys []*btcec.PublicKey,
	covenantKeys []*btcec.PublicKey,
	covenantQuorum uint32,
	stakingTime uint16,
	stakingAmount btcutil.Amount,
	net *chaincfg.Params,
) (*StakingInfo, error) {
	internalPubKey := UnspendableKeyPathInternalPubKey()

	paths, err := newScriptPaths(stakerKey, fpKeys, covenantKeys, covenantQuorum, stakingTime)
	if err != nil {
		return nil, err
	}

	var stakingPaths [][]byte
	stakingPaths = append(stakingPaths, paths.timeLockPathScript)
	stakingPaths = append(stakingPaths, paths.unbondingPathScript)
	stakingPaths = append(stakingPaths, paths.slashingPathScript)

	timeLockLeafHash := txscript.NewBaseTapLeaf(paths.timeLockPathScript).TapHash()
	unbondingPathLeafHash := txscript.NewBaseTapLeaf(paths.unbondingPathScript).TapHash()
	slashingLeafHash := txscript.NewBaseTapLeaf(paths.slashingPathScript).TapHash()

	scriptHolder, err := newTaprootScriptHolder(&internalPubKey, stakingPaths)
	if err != nil {
		return nil, err
	}

	taprootPkScript, err := scriptHolder.taprootPkScript(net)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrScriptBuild, err.Error())
	}

	stakingOutput := wire.NewTxOut(int64(stakingAmount), taprootPkScript)

	return &StakingInfo{
		StakingOutput:         stakingOutput,
		scriptHolder:          scriptHolder,
		timeLockPathLeafHash:  timeLockLeafHash,
		unbondingPathLeafHash: unbondingPathLeafHash,
		slashingPathLeafHash:  slashingLeafHash,
	}, nil
}

// UnbondingInfo couples the Taproot unbonding output with the script tree
// data needed to spend it. The unbonding output commits to two paths: the
// staker timelock over the unbonding time and the slashing path.
type UnbondingInfo struct {
	UnbondingOutput      *wire.TxOut
	scriptHolder         *taprootScriptHolder
	timeLockPathLeafHash chainhash.Hash
	slashingPathLeafHash chainhash.Hash
}

func (i *UnbondingInfo) TimeLockPathSpendInfo() (*SpendInfo, error) {
	return i.scriptHolder.scriptSpendInfoByLeafHash(i.timeLockPathLeafHash)
}

func (i *UnbondingInfo) SlashingPathSpendInfo() (*SpendInfo, error) {
	return i.scriptHolder.scriptSpendInfoByLeafHash(i.slashingPathLeafHash)
}

// BuildUnbondingInfo builds the Taproot unbonding output. Leaf order is
// pinned to [timelock, slashing].
func BuildUnbondingInfo(
	stakerKey *btcec.PublicKey,
	fpKeys []*btcec.PublicKey,
	covenantKeys []*btcec.PublicKey,
	covenantQuorum uint32,
	unbondingTime uint16,
	unbondingAmount btcutil.Amount,
	net *chaincfg.Params,
) (*UnbondingInfo, error) {
	internalPubKey := UnspendableKeyPathInternalPubKey()

	paths, err := newScriptPaths(stakerKey, fpKeys, covenantKeys, covenantQuorum, unbondingTime)
	if err != nil {
		return nil, err
	}

	var unbondingPaths [][]byte
	unbondingPaths = append(unbondingPaths, paths.timeLockPathScript)
	unbondingPaths = append(unbondingPaths, paths.slashingPathScript)

	timeLockLeafHash := txscript.NewBaseTapLeaf(paths.timeLockPathScript).TapHash()
	slashingLeafHash := txscript.NewBaseTapLeaf(paths.slashingPathScript).TapHash()

	scriptHolder, err := newTaprootScriptHolder(&internalPubKey, unbondingPaths)
	if err != nil {
		return nil, err
	}

	taprootPkScript, err := scriptHolder.taprootPkScript(net)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrScriptBuild, err.Error())
	}

	unbondingOutput := wire.NewTxOut(int64(unbondingAmount), taprootPkScript)

	return &UnbondingInfo{
		UnbondingOutput:      unbondingOutput,
		scriptHolder:         scriptHolder,
		timeLockPathLeafHash: timeLockLeafHash,
		slashingPathLeafHash: slashingLeafHash,
	}, nil
}

// RelativeTimeLockTapScriptInfo is the result of building a Taproot output
// committing to a single relative-timelock script. It is used for the change
// output of the slashing transaction, which locks the remaining funds for
// the unbonding time.
type RelativeTimeLockTapScriptInfo struct {
	// Script spendable by the key holder after the lock time
	TimeLockScript []byte

	LockTime uint16

	// Taproot address committing to the script
	TapAddress btcutil.Address

	// Pk script of the Taproot output, ready to be used in a transaction
	PkScript []byte
}

// BuildRelativeTimelockTaprootScript builds a Taproot output with a single
// script path requiring the key holder's signature after lockTime blocks.
func BuildRelativeTimelockTaprootScript(
	pk *btcec.PublicKey,
	lockTime uint16,
	net *chaincfg.Params,
) (*RelativeTimeLockTapScriptInfo, error) {
	internalPubKey := UnspendableKeyPathInternalPubKey()

	script, err := buildTimeLockScript(pk, lockTime)
	if err != nil {
		return nil, err
	}

	scriptHolder, err := newTaprootScriptHolder(&internalPubKey, [][]byte{script})
	if err != nil {
		return nil, err
	}

	rootHash := scriptHolder.scriptTree.RootNode.TapHash()
	taprootKey := txscript.ComputeTaprootOutputKey(
		scriptHolder.internalPubKey,
		rootHash[:],
	)

	taprootAddress, err := btcutil.NewAddressTaproot(
		schnorr.SerializePubKey(taprootKey),
		net,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrScriptBuild, err.Error())
	}

	taprootPkScript, err := txscript.PayToAddrScript(taprootAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrScriptBuild, err.Error())
	}

	return &RelativeTimeLockTapScriptInfo{
		TimeLockScript: script,
		LockTime:       lockTime,
		TapAddress:     taprootAddress,
		PkScript:       taprootPkScript,
	}, nil
}
