package notification

import (
	"context"
	"fmt"

	domorder "github.com/lumashop/orderflow/internal/domain/order"
	domoutbox "github.com/lumashop/orderflow/internal/domain/outbox"
	domreturns "github.com/lumashop/orderflow/internal/domain/returns"
	"github.com/lumashop/orderflow/internal/observability"
)

const defaultSender = "noreply@lumashop.example"

// Worker sends receipt notifications for fulfilled orders and completed
// returns. Demo transport: the "send" is a structured log line.
type Worker struct {
	bus    domoutbox.Subscriber
	log    observability.Logger
	sender string
}

func New(bus domoutbox.Subscriber, logger observability.Logger) *Worker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Worker{
		bus:    bus,
		log:    logger.With(observability.F("component", "notification_worker")),
		sender: defaultSender,
	}
}

func (w *Worker) Start() {
	w.bus.Subscribe(domorder.OrderFulfilledEvent{}.EventName(), w.onOrderFulfilled)
	w.bus.Subscribe(domreturns.ReturnCompletedEvent{}.EventName(), w.onReturnCompleted)
}

func (w *Worker) onOrderFulfilled(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderFulfilledEvent)
	if !ok {
		return fmt.Errorf("notification: unexpected event %T", e)
	}
	_ = ctx
	w.log.Info("order_receipt_sent",
		observability.F("sender", w.sender),
		observability.F("order_id", evt.OrderID),
		observability.F("account_id", evt.AccountID),
		observability.F("total", evt.Total),
		observability.F("points_awarded", evt.PointsAwarded),
	)
	return nil
}

func (w *Worker) onReturnCompleted(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domreturns.ReturnCompletedEvent)
	if !ok {
		return fmt.Errorf("notification: unexpected event %T", e)
	}
	_ = ctx
	w.log.Info("return_receipt_sent",
		observability.F("sender", w.sender),
		observability.F("return_id", evt.ReturnID),
		observability.F("order_id", evt.OrderID),
		observability.F("account_id", evt.AccountID),
		observability.F("refunded", evt.Refunded),
	)
	return nil
}
