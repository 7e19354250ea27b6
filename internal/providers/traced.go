package providers

import (
	"context"

	"github.com/romenn/site-worker/internal/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/romenn/site-worker/internal/providers"

type tracedProvider struct {
	Provider
	tracer trace.Tracer
}

// Traced wraps p so every send runs in its own client span. The wrapper
// keeps p's health checks visible to a failover chain.
func Traced(p Provider) Provider {
	return &tracedProvider{Provider: p, tracer: otel.Tracer(tracerName)}
}

func (t *tracedProvider) Send(ctx context.Context, d *types.EmailData) (string, error) {
	ctx, span := t.tracer.Start(ctx, "email.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("email.provider", t.Name()),
			attribute.Int("email.attachments", len(d.Attachments)),
		),
	)
	defer span.End()

	id, err := t.Provider.Send(ctx, d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.String("email.message_id", id))
	return id, nil
}

func (t *tracedProvider) IsHealthy(ctx context.Context) bool {
	if hc, ok := t.Provider.(HealthChecker); ok {
		return hc.IsHealthy(ctx)
	}
	return true
}
