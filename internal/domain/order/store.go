package order

import "context"

// Store persists orders and their terminal results. FindByIdempotency backs
// replay protection: a caller-supplied key maps to the order it created, so
// re-submitting the same key returns the stored result with no new effects.
type Store interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	FindByIdempotency(ctx context.Context, accountID, key string) (*Order, error)
}
