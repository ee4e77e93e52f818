package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/lumashop/orderflow/internal/domain/audit"
)

func TestAuditLog_AssignsIncreasingSeq(t *testing.T) {
	ctx := context.Background()
	log := NewAuditLog()

	log.Log(ctx, domain.Entry{Kind: domain.KindOrderFulfilled, OrderID: "ord-1"})
	log.Log(ctx, domain.Entry{Kind: domain.KindReturnCompleted, OrderID: "ord-1"})

	entries := log.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, uint64(1), entries[0].Seq)
	require.Equal(t, uint64(2), entries[1].Seq)
	require.False(t, entries[0].At.IsZero())
	require.Equal(t, []string{domain.KindOrderFulfilled, domain.KindReturnCompleted}, log.Kinds())
}

func TestAuditLog_ConcurrentAppendsKeepUniqueSeq(t *testing.T) {
	ctx := context.Background()
	log := NewAuditLog()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Log(ctx, domain.Entry{Kind: domain.KindPaymentFailed})
		}()
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	for _, e := range log.Entries() {
		require.False(t, seen[e.Seq])
		seen[e.Seq] = true
	}
	require.Len(t, seen, 50)
}
