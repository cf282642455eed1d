package btcutils

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// ErrInvalidPublicKey is returned for any key input that does not decode to
// a recognized public key form. It is always a local input validation
// failure and is never retried.
var ErrInvalidPublicKey = errors.New("invalid public key")

// ParsePublicKeyNoCoord is the single parsing entry point for key material
// supplied as hex. It accepts either a 32-byte x-only ("no coordinate") key
// or a 33-byte compressed key, whose parity prefix is stripped. The returned
// key always carries the even-Y interpretation of the x coordinate, the only
// form valid inside scripts.
func ParsePublicKeyNoCoord(pkHex string) (*btcec.PublicKey, error) {
	pkBytes, err := hex.DecodeString(pkHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, err.Error())
	}

	switch len(pkBytes) {
	case schnorr.PubKeyBytesLen:
		pk, err := schnorr.ParsePubKey(pkBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, err.Error())
		}

		return pk, nil
	case btcec.PubKeyBytesLenCompressed:
		// Validate the full compressed encoding before dropping the
		// parity byte, so a bogus prefix is rejected rather than ignored.
		if _, err := btcec.ParsePubKey(pkBytes); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, err.Error())
		}
		pk, err := schnorr.ParsePubKey(pkBytes[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, err.Error())
		}

		return pk, nil
	default:
		return nil, fmt.Errorf(
			"%w: expected 32 or 33 byte public key, got %d bytes",
			ErrInvalidPublicKey, len(pkBytes),
		)
	}
}

// GetPublicKeyNoCoord normalizes a hex encoded public key to its 32-byte
// x-only form. A key already in x-only form is returned unchanged, so the
// normalization is idempotent.
func GetPublicKeyNoCoord(pkHex string) (string, error) {
	pk, err := ParsePublicKeyNoCoord(pkHex)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(schnorr.SerializePubKey(pk)), nil
}

// IsValidNoCoordPublicKey reports whether the string decodes to exactly 32
// bytes of hex representing a valid x-only curve point. A key carrying its
// parity prefix is not accepted.
func IsValidNoCoordPublicKey(pkHex string) bool {
	pkBytes, err := hex.DecodeString(pkHex)
	if err != nil || len(pkBytes) != schnorr.PubKeyBytesLen {
		return false
	}

	_, err = schnorr.ParsePubKey(pkBytes)

	return err == nil
}
