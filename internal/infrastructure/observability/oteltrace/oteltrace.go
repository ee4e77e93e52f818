package oteltrace

import (
	"context"

	"github.com/lumashop/orderflow/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New returns a tracer port backed by the globally configured otel provider.
// Without an SDK tracer provider installed this is effectively a no-op,
// which is the desired default for tests and local runs.
func New(name string) observability.Tracer {
	if name == "" {
		name = "orderflow"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
