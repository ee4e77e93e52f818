package returns

import (
	"errors"
	"time"

	"github.com/lumashop/orderflow/internal/domain/pricing"
	"github.com/lumashop/orderflow/internal/domain/shipping"
)

var (
	ErrOrderRequired   = errors.New("returns: original order id is required")
	ErrNoLines         = errors.New("returns: at least one line is required")
	ErrRefundFailed    = errors.New("returns: refund failed")
	ErrInvalidQuantity = errors.New("returns: quantity exceeds purchased quantity")
)

// Outcome is the terminal state of one return attempt.
type Outcome string

const (
	OutcomeCompleted       Outcome = "completed"
	OutcomeInvalidQuantity Outcome = "invalid_quantity"
	OutcomeRefundFailed    Outcome = "refund_failed"
	OutcomeShippingFailed  Outcome = "shipping_failed"
)

// Stable reason codes for rejected returns.
const (
	ReasonInvalidQuantity = "invalid_quantity"
)

// Request asks for a refund/restock of part of a previously fulfilled order.
type Request struct {
	ReturnID string
	OrderID  string
	Lines    map[string]int
	Reason   string
	Address  *shipping.Address
	Method   string
}

// Result mirrors order.Result for the reverse flow. Restock and clawback are
// not rolled back when label issuance fails: the physical return happened, so
// the shipping error is reported alongside the applied effects.
type Result struct {
	Outcome           Outcome            `json:"outcome"`
	Reason            string             `json:"reason,omitempty"`
	Refund            *pricing.Breakdown `json:"refund,omitempty"`
	Label             *shipping.Label    `json:"label,omitempty"`
	PointsClawedBack  int                `json:"points_clawed_back"`
	ClawbackShortfall int                `json:"clawback_shortfall,omitempty"`
}

// Completed reports whether the return ran the full sequence.
func (r *Result) Completed() bool { return r != nil && r.Outcome == OutcomeCompleted }

// ReturnCompletedEvent is emitted once a return finishes, including the
// shipping-failed case where restock and clawback stand.
type ReturnCompletedEvent struct {
	ReturnID   string
	OrderID    string
	AccountID  string
	Refunded   float64
	OccurredAt time.Time
}

func (ReturnCompletedEvent) EventName() string { return "return.completed" }

func NewReturnCompletedEvent(returnID, orderID, accountID string, refunded float64) ReturnCompletedEvent {
	return ReturnCompletedEvent{
		ReturnID:   returnID,
		OrderID:    orderID,
		AccountID:  accountID,
		Refunded:   refunded,
		OccurredAt: time.Now().UTC(),
	}
}
