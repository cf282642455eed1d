package btcutils

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/babylonlabs-io/btc-staking-builder/types"
)

// IsTaproot reports whether the address decodes under the given network as a
// witness version 1 output with a 32-byte program. It returns false, never
// an error, for malformed addresses, wrong networks or other address types.
func IsTaproot(address string, net *chaincfg.Params) bool {
	decoded, err := btcutil.DecodeAddress(address, net)
	if err != nil {
		return false
	}

	if _, ok := decoded.(*btcutil.AddressTaproot); !ok {
		return false
	}

	return decoded.IsForNet(net)
}

// IsNativeSegwit reports whether the address decodes under the given network
// as a witness version 0 pay-to-witness-pubkey-hash output.
func IsNativeSegwit(address string, net *chaincfg.Params) bool {
	decoded, err := btcutil.DecodeAddress(address, net)
	if err != nil {
		return false
	}

	if _, ok := decoded.(*btcutil.AddressWitnessPubKeyHash); !ok {
		return false
	}

	return decoded.IsForNet(net)
}

// IsSupportedAddress reports whether the address can receive the change
// output of a staking transaction, i.e. is either Taproot or native segwit.
func IsSupportedAddress(address string, net *chaincfg.Params) bool {
	return IsTaproot(address, net) || IsNativeSegwit(address, net)
}

// NewStakerInfo derives the staker's Taproot key-spend address together with
// both encodings of the staker public key. The result is read-only and can
// be reused across staking requests.
func NewStakerInfo(stakerPk *btcec.PublicKey, net *chaincfg.Params) (*types.StakerInfo, error) {
	if stakerPk == nil {
		return nil, fmt.Errorf("%w: staker public key is nil", ErrInvalidPublicKey)
	}

	tapKey := txscript.ComputeTaprootKeyNoScript(stakerPk)
	address, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(tapKey), net)
	if err != nil {
		return nil, fmt.Errorf("failed to derive staker address: %w", err)
	}

	return &types.StakerInfo{
		Address:             address,
		PublicKeyHex:        hex.EncodeToString(stakerPk.SerializeCompressed()),
		PublicKeyNoCoordHex: hex.EncodeToString(schnorr.SerializePubKey(stakerPk)),
	}, nil
}
