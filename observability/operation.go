package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation tracks one command run from start to finish.
type Operation struct {
	ServiceName   string
	OperationName string
	StartTime     time.Time
	Metrics       *Metrics

	span trace.Span
}

// StartOperation starts a command.run span. If metrics is nil, metric
// recording is skipped.
func StartOperation(ctx context.Context, serviceName, operationName string, metrics *Metrics) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, SpanCommandRun)
	span.SetAttributes(
		attribute.String(AttrServiceName, serviceName),
		attribute.String(AttrOperationName, operationName),
	)
	return ctx, &Operation{
		ServiceName:   serviceName,
		OperationName: operationName,
		StartTime:     time.Now(),
		Metrics:       metrics,
		span:          span,
	}
}

// End closes the span and records the run. A nil err reports status "ok".
func (op *Operation) End(ctx context.Context, err error) {
	duration := time.Since(op.StartTime)
	status := "ok"
	if err != nil {
		status = "error"
		SetSpanError(trace.ContextWithSpan(ctx, op.span), err)
	}
	op.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	op.span.End()
	op.Metrics.RecordOperation(ctx, op.ServiceName, op.OperationName, status, duration)
}

// Duration returns the elapsed time since the run started.
func (op *Operation) Duration() time.Duration {
	return time.Since(op.StartTime)
}
