package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kbukum/longparallel/logger"
	"github.com/kbukum/longparallel/observability"
	"github.com/kbukum/longparallel/pipeline"
)

// app carries what every command body needs.
type app struct {
	cfg     *AppConfig
	log     *logger.Logger
	metrics *observability.Metrics
	signal  context.Context
	stdin   io.Reader
	out     *printer
}

// newApp sets up logging, telemetry and the output printer. The returned
// function flushes and stops telemetry and drops the pipeline logger.
func newApp(signal context.Context, cfg *AppConfig, stdin io.Reader, stdout, stderr io.Writer) (*app, func(context.Context) error, error) {
	log := logger.NewWithWriter(&cfg.Logging, cfg.Name, stderr)
	logger.SetGlobalLogger(log)
	logger.Register("pipeline", log.WithComponent("pipeline"))

	shutdown, err := observability.Setup(context.Background(), cfg.Telemetry, cfg.Name, cfg.Version, cfg.Environment)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: %w", err)
	}
	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		_ = shutdown(context.Background())
		return nil, nil, fmt.Errorf("telemetry: %w", err)
	}

	out, err := newPrinter(cfg.Output, stdout)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, nil, err
	}

	log.Debug("configuration loaded", logger.Fields(
		"environment", cfg.Environment,
		"version", cfg.Version,
		logger.FieldDegree, cfg.Pipeline.DegreeOfParallelism,
		logger.FieldBuffer, cfg.Pipeline.BufferSize,
		"output", cfg.Output,
		"telemetry", cfg.Telemetry.Enabled,
	))

	stop := func(ctx context.Context) error {
		logger.Unregister("pipeline")
		return shutdown(ctx)
	}
	return &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		signal:  signal,
		stdin:   stdin,
		out:     out,
	}, stop, nil
}

// query roots src in a query configured from the app settings.
func query[S any](a *app, src pipeline.Source[S]) (*pipeline.Query[S, S], error) {
	q, err := pipeline.AsLongParallel(src)
	if err != nil {
		return nil, err
	}
	if _, err := pipeline.WithConfig(q, a.cfg.Pipeline); err != nil {
		return nil, err
	}
	if _, err := pipeline.WithCancellation(q, a.signal); err != nil {
		return nil, err
	}
	if _, err := pipeline.WithMetrics(q, a.metrics); err != nil {
		return nil, err
	}
	return pipeline.WithDiagnostics(q, pipeline.LoggerSink{Log: logger.Get("pipeline")})
}

// emit prints every result of q as it arrives.
func emit[S any, R row](ctx context.Context, a *app, q *pipeline.Query[S, R]) error {
	return pipeline.ForEach(ctx, q, func(_ context.Context, r R) error {
		return a.out.Print(r)
	})
}

// items returns args as a source, or the lines of stdin when args is empty.
func items(args []string, stdin io.Reader) pipeline.Source[string] {
	if len(args) > 0 {
		return pipeline.FromSlice(args)
	}
	return lines(stdin)
}

// lines yields the non-blank lines of r, trimmed, skipping # comments.
// The reader is consumed once; a second session sees no lines.
func lines(r io.Reader) pipeline.Source[string] {
	sc := bufio.NewScanner(r)
	return pipeline.From[string](&lineIter{sc: sc})
}

type lineIter struct {
	sc *bufio.Scanner
}

func (it *lineIter) Next(_ context.Context) (string, bool, error) {
	for it.sc.Scan() {
		line := strings.TrimSpace(it.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, true, nil
	}
	return "", false, it.sc.Err()
}

func (it *lineIter) Close() error { return nil }
