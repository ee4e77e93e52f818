package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/lumashop/orderflow/internal/domain/payment"
)

func TestGateway_ChargeIsIdempotentPerOrder(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(0)

	require.NoError(t, g.Charge(ctx, "ord-1", 100))
	require.NoError(t, g.Charge(ctx, "ord-1", 100)) // replay, no double bill

	amount, ok := g.Charged("ord-1")
	require.True(t, ok)
	require.InDelta(t, 100.0, amount, 1e-9)
}

func TestGateway_DeclinesOverLimit(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(50)

	err := g.Charge(ctx, "ord-1", 51)
	var perr *domain.Error
	require.ErrorAs(t, err, &perr)
	require.False(t, perr.Transient)

	_, ok := g.Charged("ord-1")
	require.False(t, ok)
}

func TestGateway_RefundsAccumulate(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(0)

	require.NoError(t, g.Refund(ctx, "ord-1", 30))
	require.NoError(t, g.Refund(ctx, "ord-1", 20))
	require.InDelta(t, 50.0, g.Refunded("ord-1"), 1e-9)

	err := g.Refund(ctx, "ord-1", 0)
	require.Error(t, err)
}
