package btcstaking

import "errors"

var (
	// ErrScriptBuild is returned when spending scripts or the Taproot
	// script tree cannot be constructed from the provided key material and
	// timelocks. It is fatal for the current request.
	ErrScriptBuild = errors.New("failed to build staking scripts")

	// ErrInvalidSlashingRate is returned when the slashing rate is outside
	// of the open range (0, 1).
	ErrInvalidSlashingRate = errors.New("invalid slashing rate")

	// ErrInsufficientSlashingAmount is returned when the amount calculated
	// from the staking output value and the slashing rate is not positive.
	ErrInsufficientSlashingAmount = errors.New("insufficient slashing amount calculated from staking output value and slashing rate")

	// ErrInsufficientChangeAmount is returned when the slashing change
	// output would not be positive.
	ErrInsufficientChangeAmount = errors.New("insufficient change amount calculated from staking output value")

	// ErrDustOutputFound is returned when a built or validated transaction
	// contains a dust output.
	ErrDustOutputFound = errors.New("transaction contains a dust output")
)
