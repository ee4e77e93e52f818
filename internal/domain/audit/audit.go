package audit

import (
	"context"
	"time"
)

// Event kinds recorded by the workflows. One entry per terminal outcome.
const (
	KindOrderFulfilled    = "order_fulfilled"
	KindInsufficientStock = "insufficient_stock"
	KindFraudBlocked      = "fraud_blocked"
	KindFraudReview       = "fraud_review"
	KindPaymentFailed     = "payment_failed"
	KindShippingFailed    = "shipping_failed"
	KindReturnCompleted   = "return_completed"
	KindReturnRejected    = "return_rejected"
	KindRefundFailed      = "refund_failed"
)

// Entry is an append-only audit record. Seq is assigned by the sink and
// establishes the ordering position; entries are never mutated after append.
type Entry struct {
	Kind      string
	OrderID   string
	AccountID string
	SKU       string
	Details   string
	Seq       uint64
	At        time.Time
}

// Sink appends entries. Best-effort from the workflow's perspective: a sink
// failure must never roll back business state, so Log returns nothing.
type Sink interface {
	Log(ctx context.Context, e Entry)
}
