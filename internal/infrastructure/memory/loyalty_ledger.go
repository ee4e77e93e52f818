package memory

import (
	"context"
	"math"
	"sync"

	domain "github.com/lumashop/orderflow/internal/domain/loyalty"
)

// LoyaltyLedger is the lock-guarded in-memory point store. Balances never go
// negative: redemptions are rejected up front and clawbacks clamp at zero.
type LoyaltyLedger struct {
	mu       sync.Mutex
	balances map[string]int
}

func NewLoyaltyLedger() *LoyaltyLedger {
	return &LoyaltyLedger{
		balances: make(map[string]int),
	}
}

func (l *LoyaltyLedger) Redeem(ctx context.Context, accountID string, points int) (float64, error) {
	_ = ctx
	if points <= 0 {
		return 0, domain.ErrInvalidPoints
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balances[accountID]
	if points > balance {
		return 0, domain.ErrInsufficientPoints
	}
	l.balances[accountID] = balance - points
	return math.Round(float64(points)*domain.CreditPerPoint*100) / 100, nil
}

func (l *LoyaltyLedger) Restore(ctx context.Context, accountID string, points int) error {
	_ = ctx
	if points <= 0 {
		return domain.ErrInvalidPoints
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[accountID] += points
	return nil
}

func (l *LoyaltyLedger) Accrue(ctx context.Context, accountID string, amount float64) (int, error) {
	_ = ctx
	points := int(math.Floor(amount))
	if points <= 0 {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[accountID] += points
	return points, nil
}

func (l *LoyaltyLedger) Clawback(ctx context.Context, accountID string, points int) (int, error) {
	_ = ctx
	if points <= 0 {
		return 0, domain.ErrInvalidPoints
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balances[accountID]
	if points > balance {
		l.balances[accountID] = 0
		return points - balance, nil
	}
	l.balances[accountID] = balance - points
	return 0, nil
}

func (l *LoyaltyLedger) Balance(ctx context.Context, accountID string) int {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balances[accountID]
}
