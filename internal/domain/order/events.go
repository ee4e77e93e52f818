package order

import "time"

// OrderFulfilledEvent is emitted after an attempt reaches the fulfilled
// outcome. Handled outside the workflow (receipts, downstream sync).
type OrderFulfilledEvent struct {
	OrderID       string
	AccountID     string
	Total         float64
	PointsAwarded int
	OccurredAt    time.Time
}

func (OrderFulfilledEvent) EventName() string { return "order.fulfilled" }

func NewOrderFulfilledEvent(o *Order) OrderFulfilledEvent {
	e := OrderFulfilledEvent{
		OrderID:    o.ID,
		AccountID:  o.AccountID,
		OccurredAt: time.Now().UTC(),
	}
	if o.Result != nil {
		e.PointsAwarded = o.Result.PointsAwarded
		if o.Result.Pricing != nil {
			e.Total = o.Result.Pricing.Total
		}
	}
	return e
}

// OrderRejectedEvent is emitted for every non-fulfilled terminal outcome.
type OrderRejectedEvent struct {
	OrderID    string
	AccountID  string
	Outcome    Outcome
	Reason     string
	OccurredAt time.Time
}

func (OrderRejectedEvent) EventName() string { return "order.rejected" }

func NewOrderRejectedEvent(o *Order, outcome Outcome, reason string) OrderRejectedEvent {
	return OrderRejectedEvent{
		OrderID:    o.ID,
		AccountID:  o.AccountID,
		Outcome:    outcome,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
