// Package observability provides OpenTelemetry tracing and metrics for
// pipeline sessions and command runs.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("longparallel"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineSession)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("longparallel"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("longparallel"))
//	metrics.ItemPublished(ctx, elapsed)
//
// Both are wired at once from a config block with Setup.
package observability
