package risk

import "context"

type Status string

const (
	StatusApproved     Status = "approved"
	StatusBlocked      Status = "blocked"
	StatusManualReview Status = "manual_review"
)

// Assessment is a fraud decision for a single order. Produced once, read-only.
type Assessment struct {
	Score  float64 `json:"score"`
	Status Status  `json:"status"`
	Reason string  `json:"reason,omitempty"`
}

func (a Assessment) Blocked() bool     { return a.Status == StatusBlocked }
func (a Assessment) NeedsReview() bool { return a.Status == StatusManualReview }

// Assessor scores an order from its total and region.
type Assessor interface {
	Score(ctx context.Context, total float64, region string) Assessment
}
