package risk

import (
	"context"

	domain "github.com/lumashop/orderflow/internal/domain/risk"
)

const (
	blockThreshold  = 0.8
	reviewThreshold = 0.5
)

var supportedRegions = map[string]struct{}{
	"US": {},
	"EU": {},
	"UK": {},
}

// Assessor is a rule-based fraud scorer on order total and region.
type Assessor struct{}

func NewAssessor() *Assessor { return &Assessor{} }

func (*Assessor) Score(ctx context.Context, total float64, region string) domain.Assessment {
	_ = ctx

	score := 0.1
	reason := ""

	if total > 500 {
		score += 0.4
		reason = "high_amount"
	}
	if _, ok := supportedRegions[region]; !ok {
		score += 0.3
		if reason == "" {
			reason = "unsupported_region"
		} else {
			reason += "+unsupported_region"
		}
	}
	if total <= 0 {
		score += 0.2
		reason = "invalid_amount"
	}

	status := domain.StatusApproved
	switch {
	case score >= blockThreshold:
		status = domain.StatusBlocked
	case score >= reviewThreshold:
		status = domain.StatusManualReview
	}

	return domain.Assessment{Score: score, Status: status, Reason: reason}
}
