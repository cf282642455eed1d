package types

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// UTXO is a candidate input supplied by a chain data source. The engine never
// mutates a UTXO, it only selects subsets of them.
//
// Txid uses the display convention (reversed byte order), i.e. the hex string
// returned by bitcoind and block explorers.
type UTXO struct {
	Txid         string         `json:"txid"`
	Vout         uint32         `json:"vout"`
	ScriptPubKey string         `json:"scriptPubKey"`
	Value        btcutil.Amount `json:"value"`
}

// OutPoint converts the UTXO reference into a wire outpoint.
func (u *UTXO) OutPoint() (*wire.OutPoint, error) {
	// NewHashFromStr zero-pads short input, so the exact length must be
	// checked first. A txid is always 32 bytes of hex.
	if len(u.Txid) != chainhash.MaxHashStringSize {
		return nil, fmt.Errorf(
			"invalid utxo txid %s: expected %d hex characters, got %d",
			u.Txid, chainhash.MaxHashStringSize, len(u.Txid),
		)
	}

	txHash, err := chainhash.NewHashFromStr(u.Txid)
	if err != nil {
		return nil, fmt.Errorf("invalid utxo txid %s: %w", u.Txid, err)
	}

	return wire.NewOutPoint(txHash, u.Vout), nil
}

// PkScript decodes the scriptPubKey of the UTXO.
func (u *UTXO) PkScript() ([]byte, error) {
	pkScript, err := hex.DecodeString(u.ScriptPubKey)
	if err != nil {
		return nil, fmt.Errorf("invalid utxo pk script: %w", err)
	}
	if len(pkScript) == 0 {
		return nil, fmt.Errorf("utxo pk script is empty")
	}

	return pkScript, nil
}
