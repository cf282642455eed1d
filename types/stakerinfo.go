package types

import (
	"github.com/btcsuite/btcd/btcutil"
)

// StakerInfo bundles the staker's funding address with both encodings of the
// staker public key. It is derived once from a key and reused read-only.
type StakerInfo struct {
	// Address receiving the change output of the staking transaction
	Address btcutil.Address

	// 33-byte compressed public key encoding
	PublicKeyHex string

	// 32-byte x-only public key encoding, the only form valid inside scripts
	PublicKeyNoCoordHex string
}
