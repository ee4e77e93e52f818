package inventory

import "context"

// Ledger owns per-SKU stock counts. Mutations on the same SKU are serialized
// by the implementation; each check-then-write pair is one critical section.
//
// A reservation taken for an order attempt must be Released or Consumed
// exactly once. The workflow, not the ledger, tracks which attempt holds it.
type Ledger interface {
	// HasEnough reports whether Physical-Reserved >= quantity. The safety
	// buffer is not considered.
	HasEnough(ctx context.Context, sku string, quantity int) bool

	// ReserveWithBuffer increments Reserved by quantity only if
	// Physical-Reserved-quantity >= safetyBuffer; otherwise it fails with
	// ErrInsufficientStockWithBuffer and mutates nothing. A zero buffer
	// degenerates to a plain reservation.
	ReserveWithBuffer(ctx context.Context, sku string, quantity, safetyBuffer int) error

	// Release undoes a prior reservation. Releasing more than is reserved
	// returns ErrReleaseWithoutReservation with no mutation.
	Release(ctx context.Context, sku string, quantity int) error

	// Consume converts a reservation into a permanent stock decrement:
	// both Physical and Reserved drop by quantity.
	Consume(ctx context.Context, sku string, quantity int) error

	// Remove decrements Physical directly (the unbuffered order path).
	Remove(ctx context.Context, sku string, quantity int) error

	// AddItem increases Physical. Used by returns to restock; always
	// succeeds for a positive quantity.
	AddItem(ctx context.Context, sku string, quantity int) error

	// Get returns a copy of the ledger row for the SKU.
	Get(ctx context.Context, sku string) (Record, error)
}
