package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domoutbox "github.com/lumashop/orderflow/internal/domain/outbox"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestBus_DeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	got := make([]string, 0, 2)
	done := make(chan struct{}, 2)

	handler := func(tag string) domoutbox.Handler {
		return func(ctx context.Context, e domoutbox.Event) error {
			mu.Lock()
			got = append(got, tag+":"+e.EventName())
			mu.Unlock()
			done <- struct{}{}
			return nil
		}
	}
	bus.Subscribe("order.fulfilled", handler("a"))
	bus.Subscribe("order.fulfilled", handler("b"))

	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "order.fulfilled"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("handler was not invoked")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, []string{"a:order.fulfilled", "b:order.fulfilled"}, got)
}

func TestBus_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(nil)

	delivered := make(chan struct{}, 1)
	bus.Subscribe("return.completed", func(ctx context.Context, e domoutbox.Event) error {
		panic("handler exploded")
	})
	bus.Subscribe("return.completed", func(ctx context.Context, e domoutbox.Event) error {
		delivered <- struct{}{}
		return nil
	})

	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "return.completed"}))

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler was not invoked after the first panicked")
	}

	// the dispatch loop survived; a second publish still delivers
	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "return.completed"}))
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("bus stopped dispatching after a panic")
	}
}

func TestBus_PublishWithCanceledContext(t *testing.T) {
	bus := NewBus(nil)
	// fill the queue so enqueue must block, forcing the ctx branch
	for i := 0; i < cap(bus.queue); i++ {
		require.NoError(t, bus.Publish(context.Background(), testEvent{name: "noop"}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, bus.Publish(ctx, testEvent{name: "noop"}), context.Canceled)
}
