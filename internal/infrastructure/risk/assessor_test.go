package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/lumashop/orderflow/internal/domain/risk"
)

func TestAssessor_Score(t *testing.T) {
	assessor := NewAssessor()
	ctx := context.Background()

	cases := []struct {
		name   string
		total  float64
		region string
		score  float64
		status domain.Status
		reason string
	}{
		{"small order in supported region", 100, "US", 0.1, domain.StatusApproved, ""},
		{"high amount flags review", 600, "US", 0.5, domain.StatusManualReview, "high_amount"},
		{"unsupported region flags review", 100, "XX", 0.4, domain.StatusApproved, "unsupported_region"},
		{"high amount abroad is blocked", 600, "XX", 0.8, domain.StatusBlocked, "high_amount+unsupported_region"},
		{"zero total flags invalid amount", 0, "US", 0.3, domain.StatusApproved, "invalid_amount"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := assessor.Score(ctx, tc.total, tc.region)
			require.InDelta(t, tc.score, a.Score, 1e-9)
			require.Equal(t, tc.status, a.Status)
			require.Equal(t, tc.reason, a.Reason)
		})
	}
}

func TestAssessment_Predicates(t *testing.T) {
	require.True(t, domain.Assessment{Status: domain.StatusBlocked}.Blocked())
	require.True(t, domain.Assessment{Status: domain.StatusManualReview}.NeedsReview())
	require.False(t, domain.Assessment{Status: domain.StatusApproved}.Blocked())
	require.False(t, domain.Assessment{Status: domain.StatusApproved}.NeedsReview())
}
