package inventory

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("inventory: sku not found")
	ErrInvalidQuantity = errors.New("inventory: quantity must be greater than zero")
	// ErrInsufficientStock signals the plain availability gate failed.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInsufficientStockWithBuffer signals a buffered reservation would
	// eat into the safety-stock buffer. Reason string: ReasonBufferViolated.
	ErrInsufficientStockWithBuffer = errors.New("inventory: insufficient stock with buffer")
	// ErrReleaseWithoutReservation flags a release with no matching prior
	// reservation. A programming-contract violation, never absorbed silently.
	ErrReleaseWithoutReservation = errors.New("inventory: release exceeds reserved quantity")
)

// Stable reason codes carried on terminal order outcomes.
const (
	ReasonOutOfStock     = "not_enough_inventory"
	ReasonBufferViolated = "not_enough_inventory_with_buffer"
)

// Record is the per-SKU ledger row. Invariants after every committed
// mutation: Reserved >= 0, and Physical-Reserved >= buffer for every
// buffered reservation accepted against the SKU.
type Record struct {
	SKU       string
	Physical  int
	Reserved  int
	UpdatedAt time.Time
}

// Available is the quantity sellable right now, ignoring any buffer.
func (r Record) Available() int { return r.Physical - r.Reserved }
