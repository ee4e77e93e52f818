package loyalty

import (
	"context"
	"errors"
)

var (
	ErrInvalidPoints = errors.New("loyalty: points must be greater than zero")
	// ErrInsufficientPoints rejects a redemption larger than the balance.
	ErrInsufficientPoints = errors.New("loyalty: not enough points to redeem")
)

// CreditPerPoint converts redeemed points into a monetary credit.
const CreditPerPoint = 0.01

// Ledger owns per-account point balances. Mutations on the same account are
// serialized by the implementation. Restore and Clawback are not idempotent:
// invoking either twice for one event double-applies it, so single
// invocation is the caller's responsibility.
type Ledger interface {
	// Redeem decrements the balance and returns the monetary credit
	// (points * CreditPerPoint). Fails with ErrInsufficientPoints and no
	// mutation when the balance is too small.
	Redeem(ctx context.Context, accountID string, points int) (float64, error)

	// Restore re-credits a prior successful redemption after the owning
	// order fails.
	Restore(ctx context.Context, accountID string, points int) error

	// Accrue awards floor(amount) points once a fulfillment is finalized
	// and returns the points awarded.
	Accrue(ctx context.Context, accountID string, amount float64) (int, error)

	// Clawback removes points earned on a returned order. The balance is
	// clamped at zero; the unclawed shortfall is returned rather than an
	// error, since clawback is a best-effort correction.
	Clawback(ctx context.Context, accountID string, points int) (shortfall int, err error)

	// Balance reads the current balance. Zero for unknown accounts.
	Balance(ctx context.Context, accountID string) int
}
