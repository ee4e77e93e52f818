package payment

import (
	"context"
	"fmt"
)

// Error is a classified failure from the payment network. Transient errors
// may be retried with the same order id; definitive ones must not be.
type Error struct {
	Code      string
	Message   string
	Transient bool
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("payment: %s", e.Code)
	}
	return fmt.Sprintf("payment: %s: %s", e.Code, e.Message)
}

// Declined builds a definitive failure.
func Declined(msg string) *Error {
	return &Error{Code: "declined", Message: msg}
}

// Unavailable builds a transient failure.
func Unavailable(msg string) *Error {
	return &Error{Code: "unavailable", Message: msg, Transient: true}
}

// Charger captures a payment against the external network. The order id
// doubles as the idempotency key for retried attempts.
type Charger interface {
	Charge(ctx context.Context, orderID string, amount float64) error
}

// Refunder reverses a prior charge.
type Refunder interface {
	Refund(ctx context.Context, orderID string, amount float64) error
}
