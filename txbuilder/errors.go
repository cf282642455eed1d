package txbuilder

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

var (
	// ErrInsufficientFunds is returned when the candidate UTXO set cannot
	// cover the staking amount plus fees. The caller may retry with a
	// larger UTXO set or a smaller amount; the engine performs no retries.
	ErrInsufficientFunds = errors.New("insufficient funds to cover staking amount and fees")

	// ErrAmountOutOfRange is returned when the requested staking amount
	// falls outside of the bounds set by the staking parameters.
	ErrAmountOutOfRange = errors.New("staking amount outside of parameter bounds")

	// ErrAddressDerivation is returned when the Taproot staking output or
	// its address cannot be derived. The underlying cause message is
	// preserved unmodified.
	ErrAddressDerivation = errors.New("failed to derive staking address")
)

// InsufficientFundsError reports by how much the candidate UTXO set falls
// short of the staking amount plus the estimated fee.
type InsufficientFundsError struct {
	Shortfall btcutil.Amount
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s: short by %d satoshi", ErrInsufficientFunds, e.Shortfall)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
