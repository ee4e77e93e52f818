package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/lumashop/orderflow/internal/domain/inventory"
)

// InventoryLedger is the lock-guarded in-memory stock store. Every
// check-then-write pair runs under the ledger mutex, so concurrent workflows
// touching the same SKU cannot over-reserve.
type InventoryLedger struct {
	mu      sync.Mutex
	records map[string]*domain.Record
}

func NewInventoryLedger() *InventoryLedger {
	return &InventoryLedger{
		records: make(map[string]*domain.Record),
	}
}

func (l *InventoryLedger) HasEnough(ctx context.Context, sku string, quantity int) bool {
	_ = ctx
	if quantity <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[sku]
	return ok && rec.Available() >= quantity
}

func (l *InventoryLedger) ReserveWithBuffer(ctx context.Context, sku string, quantity, safetyBuffer int) error {
	_ = ctx
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if safetyBuffer < 0 {
		safetyBuffer = 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[sku]
	if !ok || rec.Available()-quantity < safetyBuffer {
		return domain.ErrInsufficientStockWithBuffer
	}
	rec.Reserved += quantity
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *InventoryLedger) Release(ctx context.Context, sku string, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[sku]
	if !ok || rec.Reserved < quantity {
		return domain.ErrReleaseWithoutReservation
	}
	rec.Reserved -= quantity
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *InventoryLedger) Consume(ctx context.Context, sku string, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[sku]
	if !ok || rec.Reserved < quantity {
		return domain.ErrReleaseWithoutReservation
	}
	rec.Reserved -= quantity
	rec.Physical -= quantity
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *InventoryLedger) Remove(ctx context.Context, sku string, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[sku]
	if !ok || rec.Available() < quantity {
		return domain.ErrInsufficientStock
	}
	rec.Physical -= quantity
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *InventoryLedger) AddItem(ctx context.Context, sku string, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[sku]
	if !ok {
		rec = &domain.Record{SKU: sku}
		l.records[sku] = rec
	}
	rec.Physical += quantity
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *InventoryLedger) Get(ctx context.Context, sku string) (domain.Record, error) {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[sku]
	if !ok {
		return domain.Record{}, domain.ErrNotFound
	}
	return *rec, nil
}
