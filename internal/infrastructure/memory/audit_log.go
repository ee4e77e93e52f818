package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/lumashop/orderflow/internal/domain/audit"
)

// AuditLog is the append-only in-memory audit sink. Seq is assigned on
// append and strictly increases; entries are never mutated afterwards.
type AuditLog struct {
	mu      sync.Mutex
	entries []domain.Entry
	seq     uint64
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (a *AuditLog) Log(ctx context.Context, e domain.Entry) {
	_ = ctx

	a.mu.Lock()
	defer a.mu.Unlock()

	a.seq++
	e.Seq = a.seq
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	a.entries = append(a.entries, e)
}

// Entries returns a snapshot copy in append order.
func (a *AuditLog) Entries() []domain.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Kinds returns the event kinds in append order. Handy in assertions.
func (a *AuditLog) Kinds() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Kind)
	}
	return out
}
