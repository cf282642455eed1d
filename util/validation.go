//nolint:revive
package util

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// HasDuplicateKeys checks if the provided slice of public keys contains any
// duplicates, compared by their 32-byte x-only serialization. Returns
// (true, index-of-duplicate) if a duplicate is found, (false, 0) otherwise.
// Uses a map for O(n) time complexity.
//
// Duplicate committee members would silently lower the effective quorum of a
// threshold check, so every key set embedded in a script must be checked.
func HasDuplicateKeys(keys []*btcec.PublicKey) (bool, int) {
	seen := make(map[string]struct{}, len(keys))
	for i, key := range keys {
		if key == nil {
			continue
		}
		serialized := hex.EncodeToString(schnorr.SerializePubKey(key))
		if _, exists := seen[serialized]; exists {
			return true, i
		}
		seen[serialized] = struct{}{}
	}

	return false, 0
}

// ValidateNoDuplicateKeys returns an error if duplicate public keys are found
// in the slice.
func ValidateNoDuplicateKeys(keys []*btcec.PublicKey) error {
	if hasDup, dupIdx := HasDuplicateKeys(keys); hasDup {
		return fmt.Errorf("duplicate public key detected at index %d", dupIdx)
	}

	return nil
}
