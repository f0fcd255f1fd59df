package pipeline

import (
	"context"

	"github.com/kbukum/longparallel/errors"
	"github.com/kbukum/longparallel/logger"
)

// DiagnosticSink receives faults that lost the race to be reported. A sink
// cannot affect the session: its panics are recovered and dropped.
type DiagnosticSink interface {
	FaultDiscarded(ctx context.Context, fault error, description string)
}

// SinkFunc adapts a function to DiagnosticSink.
type SinkFunc func(ctx context.Context, fault error, description string)

// FaultDiscarded calls f.
func (f SinkFunc) FaultDiscarded(ctx context.Context, fault error, description string) {
	f(ctx, fault, description)
}

// LoggerSink writes discarded faults as warnings. Cancellations that lost
// the race are expected during shutdown and go to debug.
type LoggerSink struct {
	Log *logger.Logger
}

// FaultDiscarded logs the fault with its description.
func (s LoggerSink) FaultDiscarded(ctx context.Context, fault error, description string) {
	code := errors.CodeOf(fault)
	log := s.Log.WithContext(ctx).WithError(fault)
	fields := logger.Fields(logger.FieldCode, string(code), "description", description)
	if errors.IsCancellationCode(code) {
		log.Debug("fault discarded", fields)
		return
	}
	log.Warn("fault discarded", fields)
}

func defaultSink() DiagnosticSink {
	return LoggerSink{Log: logger.Get("pipeline")}
}

// report hands fault to sink, swallowing any panic it raises.
func report(ctx context.Context, sink DiagnosticSink, fault error) {
	defer func() { _ = recover() }()
	sink.FaultDiscarded(ctx, fault, errors.Describe(fault))
}
