package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/lumashop/orderflow/internal/domain/order"
)

// OrderStore keeps orders and their terminal results, with an
// idempotency-key index for replay lookups. Clone-on-read and clone-on-write
// so callers never share state with the store.
type OrderStore struct {
	mu          sync.RWMutex
	orders      map[string]*domain.Order
	idempotency map[string]string
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:      make(map[string]*domain.Order),
		idempotency: make(map[string]string),
	}
}

func (s *OrderStore) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order store: id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return domain.ErrConflict
	}

	if key := o.IdempotencyKey; key != "" {
		if existingID, exists := s.idempotency[key]; exists {
			if _, ok := s.orders[existingID]; ok {
				return domain.ErrConflict
			}
		}
	}

	s.orders[o.ID] = o.Clone()
	if key := o.IdempotencyKey; key != "" {
		s.idempotency[key] = o.ID
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (s *OrderStore) Update(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order store: id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; !exists {
		return domain.ErrNotFound
	}
	s.orders[o.ID] = o.Clone()
	return nil
}

func (s *OrderStore) FindByIdempotency(ctx context.Context, accountID, key string) (*domain.Order, error) {
	_ = ctx
	_ = accountID
	if key == "" {
		return nil, domain.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	orderID, ok := s.idempotency[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o, found := s.orders[orderID]
	if !found {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}
