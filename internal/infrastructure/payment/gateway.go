package payment

import (
	"context"
	"sync"

	domain "github.com/lumashop/orderflow/internal/domain/payment"
)

// Gateway simulates an external payment network. Charges are idempotent per
// order id: replaying a charge for an already-captured order is a no-op, so
// retried attempts after a transient failure never double-bill.
type Gateway struct {
	mu          sync.Mutex
	charges     map[string]float64
	refunds     map[string]float64
	declineOver float64
}

// NewGateway builds a gateway declining any charge above declineOver.
// Zero disables the limit.
func NewGateway(declineOver float64) *Gateway {
	return &Gateway{
		charges:     make(map[string]float64),
		refunds:     make(map[string]float64),
		declineOver: declineOver,
	}
}

func (g *Gateway) Charge(ctx context.Context, orderID string, amount float64) error {
	_ = ctx
	if amount <= 0 {
		return domain.Declined("non-positive amount")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, done := g.charges[orderID]; done {
		return nil
	}
	if g.declineOver > 0 && amount > g.declineOver {
		return domain.Declined("amount over limit")
	}
	g.charges[orderID] = amount
	return nil
}

func (g *Gateway) Refund(ctx context.Context, orderID string, amount float64) error {
	_ = ctx
	if amount <= 0 {
		return domain.Declined("non-positive amount")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.refunds[orderID] += amount
	return nil
}

// Charged returns the captured amount for an order, if any.
func (g *Gateway) Charged(orderID string) (float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	amount, ok := g.charges[orderID]
	return amount, ok
}

// Refunded returns the total refunded against an order.
func (g *Gateway) Refunded(orderID string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refunds[orderID]
}
