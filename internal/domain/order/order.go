package order

import (
	"errors"
	"time"

	"github.com/lumashop/orderflow/internal/domain/pricing"
	"github.com/lumashop/orderflow/internal/domain/risk"
	"github.com/lumashop/orderflow/internal/domain/shipping"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrConflict        = errors.New("order: already exists")
	ErrNoLines         = errors.New("order: at least one line is required")
	ErrInvalidQuantity = errors.New("order: line quantity must be greater than zero")
	ErrAccountRequired = errors.New("order: account id is required")
)

// Outcome is the terminal state of one order attempt. Exactly one outcome is
// reached per attempt; no further steps execute after it.
type Outcome string

const (
	OutcomeFulfilled         Outcome = "fulfilled"
	OutcomeInsufficientStock Outcome = "insufficient_stock"
	OutcomeFraudBlocked      Outcome = "fraud_blocked"
	OutcomeFraudReview       Outcome = "fraud_review"
	OutcomePaymentFailed     Outcome = "payment_failed"
	OutcomeShippingFailed    Outcome = "shipping_failed"
)

type Status string

const (
	StatusStarted  Status = "started"
	StatusCanceled Status = "canceled"
)

// StatusFor maps a terminal outcome onto the persisted order status.
func StatusFor(o Outcome) Status { return Status(o) }

// Order is a placement request. Immutable once submitted to the workflow
// except for Status and Result, which the workflow owns.
type Order struct {
	ID             string
	AccountID      string
	Lines          map[string]int
	Region         string
	ShippingMethod string
	Address        *shipping.Address
	CouponCode     string
	RedeemPoints   int
	SafetyStock    int
	IdempotencyKey string

	Status    Status
	Result    *Result
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New validates and constructs an order in the started state.
func New(id, accountID, region string, lines map[string]int) (*Order, error) {
	if accountID == "" {
		return nil, ErrAccountRequired
	}
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	for _, qty := range lines {
		if qty <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	now := time.Now().UTC()
	return &Order{
		ID:             id,
		AccountID:      accountID,
		Lines:          lines,
		Region:         region,
		ShippingMethod: shipping.MethodStandard,
		Status:         StatusStarted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Finish records the terminal result and the matching status.
func (o *Order) Finish(r *Result) {
	o.Result = r
	o.Status = StatusFor(r.Outcome)
	o.touch()
}

// Cancel marks an attempt interrupted before reaching a terminal outcome.
func (o *Order) Cancel() {
	o.Status = StatusCanceled
	o.touch()
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

// Clone deep-copies the order so stores never hand out shared state.
func (o *Order) Clone() *Order {
	clone := *o
	clone.Lines = make(map[string]int, len(o.Lines))
	for sku, qty := range o.Lines {
		clone.Lines[sku] = qty
	}
	if o.Address != nil {
		addr := *o.Address
		clone.Address = &addr
	}
	if o.Result != nil {
		res := *o.Result
		clone.Result = &res
	}
	return &clone
}

// Result is the outcome of one attempt plus whatever artifacts were produced
// before the attempt terminated. Early failures leave later fields nil.
type Result struct {
	Outcome       Outcome            `json:"outcome"`
	Reason        string             `json:"reason,omitempty"`
	Pricing       *pricing.Breakdown `json:"pricing,omitempty"`
	Assessment    *risk.Assessment   `json:"assessment,omitempty"`
	Label         *shipping.Label    `json:"label,omitempty"`
	PointsAwarded int                `json:"points_awarded"`
}

// Fulfilled reports whether the attempt reached the success outcome.
func (r *Result) Fulfilled() bool { return r != nil && r.Outcome == OutcomeFulfilled }
