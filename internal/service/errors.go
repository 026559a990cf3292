// Package service holds the multi-step flows that span several stores:
// checkout, order cancellation and status changes, and cart mutation.
// Each flow runs in one transaction and reports failures with the
// sentinel errors below or the repository sentinels.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart is returned by checkout when the caller has no cart lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInsufficientStock is returned when a requested quantity exceeds
	// the product's current stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransition is returned when an order cannot move to the
	// requested status from its current one.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnauthenticated is returned when a flow needs a caller and has none.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
)

// ValidationError describes a rejected input.  Its message is safe to
// return to the client.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// insufficient wraps ErrInsufficientStock with the product that ran out.
func insufficient(name string, available int) error {
	return fmt.Errorf("%w for %s (available: %d)", ErrInsufficientStock, name, available)
}
