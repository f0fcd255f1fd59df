package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/longparallel/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) *MeterConfig {
	return &MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The returned provider should be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(ctx, config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Fault outcomes.
const (
	// OutcomeRetained marks the fault a session reports to its consumer.
	OutcomeRetained = "retained"
	// OutcomeDiscarded marks a fault that lost the race to be reported.
	OutcomeDiscarded = "discarded"
)

// Metrics holds the instruments for pipeline sessions and command runs.
// All methods are safe on a nil receiver.
type Metrics struct {
	sessionsActive    metric.Int64UpDownCounter
	sessionsTotal     metric.Int64Counter
	sessionDuration   metric.Float64Histogram
	workersActive     metric.Int64UpDownCounter
	itemsTaken        metric.Int64Counter
	itemsFiltered     metric.Int64Counter
	itemsPublished    metric.Int64Counter
	itemDuration      metric.Float64Histogram
	faultTotal        metric.Int64Counter
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.sessionsActive, err = meter.Int64UpDownCounter("pipeline.sessions.active",
		metric.WithDescription("Number of running query sessions"),
	); err != nil {
		return nil, fmt.Errorf("creating pipeline.sessions.active gauge: %w", err)
	}
	if m.sessionsTotal, err = meter.Int64Counter("pipeline.sessions.total",
		metric.WithDescription("Completed query sessions by status"),
	); err != nil {
		return nil, fmt.Errorf("creating pipeline.sessions.total counter: %w", err)
	}
	if m.sessionDuration, err = meter.Float64Histogram("pipeline.session.duration",
		metric.WithDescription("Duration of query sessions in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating pipeline.session.duration histogram: %w", err)
	}
	if m.workersActive, err = meter.Int64UpDownCounter("pipeline.workers.active",
		metric.WithDescription("Number of running workers"),
	); err != nil {
		return nil, fmt.Errorf("creating pipeline.workers.active gauge: %w", err)
	}
	if m.itemsTaken, err = meter.Int64Counter("pipeline.items.taken",
		metric.WithDescription("Items taken from sources"),
	); err != nil {
		return nil, fmt.Errorf("creating pipeline.items.taken counter: %w", err)
	}
	if m.itemsFiltered, err = meter.Int64Counter("pipeline.items.filtered",
		metric.WithDescription("Items rejected by predicates"),
	); err != nil {
		return nil, fmt.Errorf("creating pipeline.items.filtered counter: %w", err)
	}
	if m.itemsPublished, err = meter.Int64Counter("pipeline.items.published",
		metric.WithDescription("Results published to consumers"),
	); err != nil {
		return nil, fmt.Errorf("creating pipeline.items.published counter: %w", err)
	}
	if m.itemDuration, err = meter.Float64Histogram("pipeline.item.duration",
		metric.WithDescription("Time from take to publish per item in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating pipeline.item.duration histogram: %w", err)
	}
	if m.faultTotal, err = meter.Int64Counter("pipeline.faults",
		metric.WithDescription("Session faults by code and outcome"),
	); err != nil {
		return nil, fmt.Errorf("creating pipeline.faults counter: %w", err)
	}
	if m.operationTotal, err = meter.Int64Counter("operation.total",
		metric.WithDescription("Total number of command runs"),
	); err != nil {
		return nil, fmt.Errorf("creating operation.total counter: %w", err)
	}
	if m.operationDuration, err = meter.Float64Histogram("operation.duration",
		metric.WithDescription("Duration of command runs in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating operation.duration histogram: %w", err)
	}

	return m, nil
}

// SessionStarted increments the running session count.
func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, 1)
}

// SessionEnded decrements running sessions and records the finished one.
func (m *Metrics) SessionEnded(ctx context.Context, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, -1)
	m.sessionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStatus, status)))
	m.sessionDuration.Record(ctx, duration.Seconds())
}

// WorkerStarted increments the running worker count.
func (m *Metrics) WorkerStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.workersActive.Add(ctx, 1)
}

// WorkerStopped decrements the running worker count.
func (m *Metrics) WorkerStopped(ctx context.Context) {
	if m == nil {
		return
	}
	m.workersActive.Add(ctx, -1)
}

// ItemTaken counts an item taken from a source.
func (m *Metrics) ItemTaken(ctx context.Context) {
	if m == nil {
		return
	}
	m.itemsTaken.Add(ctx, 1)
}

// ItemFiltered counts an item a predicate rejected.
func (m *Metrics) ItemFiltered(ctx context.Context) {
	if m == nil {
		return
	}
	m.itemsFiltered.Add(ctx, 1)
}

// ItemPublished counts a published result and its processing time.
func (m *Metrics) ItemPublished(ctx context.Context, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.itemsPublished.Add(ctx, 1)
	m.itemDuration.Record(ctx, elapsed.Seconds())
}

// Fault counts a session fault by error code and outcome.
func (m *Metrics) Fault(ctx context.Context, code, outcome string) {
	if m == nil {
		return
	}
	m.faultTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrErrorCode, code),
		attribute.String(AttrOutcome, outcome),
	))
}

// RecordOperation records a command run.
func (m *Metrics) RecordOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrServiceName, service),
		attribute.String(AttrOperationName, operation),
		attribute.String(AttrStatus, status),
	))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrServiceName, service),
		attribute.String(AttrOperationName, operation),
	))
}
