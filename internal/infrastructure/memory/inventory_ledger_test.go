package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/lumashop/orderflow/internal/domain/inventory"
)

func TestInventoryLedger_AddAndGet(t *testing.T) {
	ctx := context.Background()
	ledger := NewInventoryLedger()

	require.NoError(t, ledger.AddItem(ctx, "widget-basic", 10))
	require.NoError(t, ledger.AddItem(ctx, "widget-basic", 5))

	rec, err := ledger.Get(ctx, "widget-basic")
	require.NoError(t, err)
	require.Equal(t, 15, rec.Physical)
	require.Equal(t, 0, rec.Reserved)
	require.Equal(t, 15, rec.Available())

	_, err = ledger.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInventoryLedger_HasEnough(t *testing.T) {
	ctx := context.Background()
	ledger := NewInventoryLedger()
	require.NoError(t, ledger.AddItem(ctx, "widget-basic", 5))

	require.True(t, ledger.HasEnough(ctx, "widget-basic", 5))
	require.False(t, ledger.HasEnough(ctx, "widget-basic", 6))
	require.False(t, ledger.HasEnough(ctx, "widget-basic", 0))
	require.False(t, ledger.HasEnough(ctx, "missing", 1))
}

func TestInventoryLedger_ReserveWithBuffer(t *testing.T) {
	ctx := context.Background()
	ledger := NewInventoryLedger()
	require.NoError(t, ledger.AddItem(ctx, "widget-basic", 5))

	// 5 available, buffer 3: reserving 3 would leave only 2 above the floor
	err := ledger.ReserveWithBuffer(ctx, "widget-basic", 3, 3)
	require.ErrorIs(t, err, domain.ErrInsufficientStockWithBuffer)

	require.NoError(t, ledger.ReserveWithBuffer(ctx, "widget-basic", 2, 3))

	rec, err := ledger.Get(ctx, "widget-basic")
	require.NoError(t, err)
	require.Equal(t, 5, rec.Physical)
	require.Equal(t, 2, rec.Reserved)
	require.Equal(t, 3, rec.Available())

	// the remaining availability is exactly the buffer
	err = ledger.ReserveWithBuffer(ctx, "widget-basic", 1, 3)
	require.ErrorIs(t, err, domain.ErrInsufficientStockWithBuffer)
}

func TestInventoryLedger_ReleaseRequiresReservation(t *testing.T) {
	ctx := context.Background()
	ledger := NewInventoryLedger()
	require.NoError(t, ledger.AddItem(ctx, "widget-basic", 5))

	require.ErrorIs(t, ledger.Release(ctx, "widget-basic", 1), domain.ErrReleaseWithoutReservation)

	require.NoError(t, ledger.ReserveWithBuffer(ctx, "widget-basic", 2, 0))
	require.ErrorIs(t, ledger.Release(ctx, "widget-basic", 3), domain.ErrReleaseWithoutReservation)

	require.NoError(t, ledger.Release(ctx, "widget-basic", 2))
	rec, err := ledger.Get(ctx, "widget-basic")
	require.NoError(t, err)
	require.Equal(t, 5, rec.Physical)
	require.Equal(t, 0, rec.Reserved)
}

func TestInventoryLedger_ConsumeDecrementsPhysicalAndReserved(t *testing.T) {
	ctx := context.Background()
	ledger := NewInventoryLedger()
	require.NoError(t, ledger.AddItem(ctx, "widget-basic", 5))
	require.NoError(t, ledger.ReserveWithBuffer(ctx, "widget-basic", 2, 0))

	require.NoError(t, ledger.Consume(ctx, "widget-basic", 2))

	rec, err := ledger.Get(ctx, "widget-basic")
	require.NoError(t, err)
	require.Equal(t, 3, rec.Physical)
	require.Equal(t, 0, rec.Reserved)

	require.ErrorIs(t, ledger.Consume(ctx, "widget-basic", 1), domain.ErrReleaseWithoutReservation)
}

func TestInventoryLedger_Remove(t *testing.T) {
	ctx := context.Background()
	ledger := NewInventoryLedger()
	require.NoError(t, ledger.AddItem(ctx, "widget-basic", 5))

	require.NoError(t, ledger.Remove(ctx, "widget-basic", 3))
	require.ErrorIs(t, ledger.Remove(ctx, "widget-basic", 3), domain.ErrInsufficientStock)
	require.ErrorIs(t, ledger.Remove(ctx, "missing", 1), domain.ErrInsufficientStock)
	require.ErrorIs(t, ledger.Remove(ctx, "widget-basic", 0), domain.ErrInvalidQuantity)
}

func TestInventoryLedger_ConcurrentReservationsRespectBuffer(t *testing.T) {
	ctx := context.Background()
	ledger := NewInventoryLedger()
	require.NoError(t, ledger.AddItem(ctx, "widget-basic", 50))

	const buffer = 10
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ledger.ReserveWithBuffer(ctx, "widget-basic", 1, buffer)
		}()
	}
	wg.Wait()

	rec, err := ledger.Get(ctx, "widget-basic")
	require.NoError(t, err)
	require.Equal(t, 40, rec.Reserved)
	require.Equal(t, buffer, rec.Available())
}
