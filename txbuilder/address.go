package txbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

// StakingAddress re-derives the Taproot address of the staking output
// independently of any transaction, for display and verification. Both a
// builder that errors and a builder that yields no output surface as
// ErrAddressDerivation, with the original cause text preserved.
func (b *TxBuilder) StakingAddress(
	stakerKey *btcec.PublicKey,
	fpKeys []*btcec.PublicKey,
	covenantKeys []*btcec.PublicKey,
	covenantQuorum uint32,
	stakingTime uint16,
) (btcutil.Address, error) {
	// The committed script tree, and therefore the address, is independent
	// of the output amount.
	stakingOutput, err := b.outputBuilder.BuildStakingOutput(
		stakerKey,
		fpKeys,
		covenantKeys,
		covenantQuorum,
		stakingTime,
		0,
		b.net,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAddressDerivation, err.Error())
	}

	if stakingOutput == nil {
		return nil, fmt.Errorf("%w: output builder produced no staking output", ErrAddressDerivation)
	}

	_, addresses, _, err := txscript.ExtractPkScriptAddrs(stakingOutput.PkScript, b.net)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAddressDerivation, err.Error())
	}

	if len(addresses) != 1 {
		return nil, fmt.Errorf(
			"%w: expected a single address from the staking output, got %d",
			ErrAddressDerivation, len(addresses),
		)
	}

	return addresses[0], nil
}
