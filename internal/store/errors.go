package store

import (
	"errors"
	"fmt"

	"github.com/roach88/nucmass/internal/nuclide"
)

var (
	// ErrFrozen is returned by writes after Freeze.
	ErrFrozen = errors.New("store is frozen")

	// ErrInvalidSign is returned when a binding energy >= 0 reaches Put.
	ErrInvalidSign = errors.New("binding energy must be negative")

	// ErrInvalidKey is returned for negative nucleon counts or an unknown
	// source.
	ErrInvalidKey = errors.New("invalid key")

	// ErrConflictingDeformation is returned when a key already holds a
	// different deformation.
	ErrConflictingDeformation = errors.New("conflicting deformation")
)

// DuplicateKeyError reports two different values for the same
// (quantity, N, Z, source).
type DuplicateKeyError struct {
	Quantity nuclide.Quantity
	Key      Key
	Existing float64
	Incoming float64

	// Uncertainty is set when the values agree but their uncertainties
	// do not.
	Uncertainty bool
}

// Error implements the error interface.
func (e *DuplicateKeyError) Error() string {
	what := "value"
	if e.Uncertainty {
		what = "uncertainty"
	}
	return fmt.Sprintf("duplicate %s %s for %s: have %v, got %v",
		e.Quantity, what, e.Key, e.Existing, e.Incoming)
}

// IsDuplicateKey reports whether err wraps a *DuplicateKeyError.
func IsDuplicateKey(err error) bool {
	var de *DuplicateKeyError
	return errors.As(err, &de)
}
