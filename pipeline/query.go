package pipeline

import (
	"context"
	"sync"

	"github.com/kbukum/longparallel/errors"
	"github.com/kbukum/longparallel/observability"
	"github.com/kbukum/longparallel/validation"
)

// Settings is the execution configuration shared by every query of one
// composed chain. Changing it through any query is visible to all of them.
type Settings struct {
	mu         sync.RWMutex
	degree     int
	signal     context.Context
	bufferSize int
	sink       DiagnosticSink
	metrics    *observability.Metrics
}

func newSettings() *Settings {
	return &Settings{
		degree: DefaultDegreeOfParallelism(),
		signal: context.Background(),
	}
}

// snapshot is the frozen view of Settings a session runs with.
type snapshot struct {
	degree     int
	bufferSize int
	signal     context.Context
	sink       DiagnosticSink
	metrics    *observability.Metrics
}

func (s *Settings) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buffer := s.bufferSize
	if buffer == 0 {
		buffer = max(1, s.degree)
	}
	sink := s.sink
	if sink == nil {
		sink = defaultSink()
	}
	return snapshot{
		degree:     s.degree,
		bufferSize: buffer,
		signal:     s.signal,
		sink:       sink,
		metrics:    s.metrics,
	}
}

func (s *Settings) update(fn func(*Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Query is a lazily evaluated parallel filter/map over a source of S
// producing T. Composition flattens into one predicate and one selector;
// nothing runs until the query is enumerated.
type Query[S, T any] struct {
	source Source[S]
	// predicate is nil for queries with no Where step.
	predicate func(S) bool
	selector  func(context.Context, S) (T, error)
	settings  *Settings
	stages    int
}

// AsLongParallel wraps src in a root query with the identity selector.
func AsLongParallel[S any](src Source[S]) (*Query[S, S], error) {
	if appErr := validation.New().NotNil("source", src).Validate(); appErr != nil {
		return nil, appErr
	}
	return &Query[S, S]{
		source:   src,
		selector: identity[S],
		settings: newSettings(),
	}, nil
}

func identity[S any](_ context.Context, s S) (S, error) {
	return s, nil
}

// Where adds predicate over the source item. The existing predicate is
// evaluated first and short-circuits.
func Where[S, T any](q *Query[S, T], predicate func(S) bool) (*Query[S, T], error) {
	if appErr := validation.New().
		NotNil("query", q).
		NotNil("predicate", predicate).
		Validate(); appErr != nil {
		return nil, appErr
	}

	combined := predicate
	if base := q.predicate; base != nil {
		combined = func(s S) bool { return base(s) && predicate(s) }
	}
	return &Query[S, T]{
		source:    q.source,
		predicate: combined,
		selector:  q.selector,
		settings:  q.settings,
		stages:    q.stages + 1,
	}, nil
}

// Select maps the query's results through selector. Returned errors and
// panics fail the session.
func Select[S, T, U any](q *Query[S, T], selector func(context.Context, T) (U, error)) (*Query[S, U], error) {
	if appErr := validation.New().
		NotNil("query", q).
		NotNil("selector", selector).
		Validate(); appErr != nil {
		return nil, appErr
	}

	base := q.selector
	return &Query[S, U]{
		source:    q.source,
		predicate: q.predicate,
		selector: func(ctx context.Context, s S) (U, error) {
			t, err := base(ctx, s)
			if err != nil {
				var zero U
				return zero, err
			}
			return selector(ctx, t)
		},
		settings: q.settings,
		stages:   q.stages + 1,
	}, nil
}

// Map is Select for selectors that cannot fail.
func Map[S, T, U any](q *Query[S, T], fn func(T) U) (*Query[S, U], error) {
	if fn == nil {
		return Select[S, T, U](q, nil)
	}
	return Select(q, func(_ context.Context, t T) (U, error) {
		return fn(t), nil
	})
}

// WithCancellation sets the cancellation signal of the whole chain and
// returns q. The signal is active once ctx is done.
func WithCancellation[S, T any](q *Query[S, T], signal context.Context) (*Query[S, T], error) {
	if appErr := validation.New().
		NotNil("query", q).
		NotNil("signal", signal).
		Validate(); appErr != nil {
		return nil, appErr
	}
	q.settings.update(func(s *Settings) { s.signal = signal })
	return q, nil
}

// WithDegreeOfParallelism sets the worker count of the whole chain and
// returns q. Zero is allowed and yields an empty result.
func WithDegreeOfParallelism[S, T any](q *Query[S, T], n int) (*Query[S, T], error) {
	if appErr := validation.New().
		NotNil("query", q).
		NonNegative("degreeOfParallelism", n).
		Validate(); appErr != nil {
		return nil, appErr
	}
	q.settings.update(func(s *Settings) { s.degree = n })
	return q, nil
}

// WithBufferSize bounds the result channel of the whole chain and returns q.
func WithBufferSize[S, T any](q *Query[S, T], n int) (*Query[S, T], error) {
	if appErr := validation.New().
		NotNil("query", q).
		Positive("bufferSize", n).
		Validate(); appErr != nil {
		return nil, appErr
	}
	q.settings.update(func(s *Settings) { s.bufferSize = n })
	return q, nil
}

// WithDiagnostics sets the sink for discarded faults and returns q.
func WithDiagnostics[S, T any](q *Query[S, T], sink DiagnosticSink) (*Query[S, T], error) {
	if appErr := validation.New().
		NotNil("query", q).
		NotNil("sink", sink).
		Validate(); appErr != nil {
		return nil, appErr
	}
	q.settings.update(func(s *Settings) { s.sink = sink })
	return q, nil
}

// WithMetrics records session activity on m and returns q. A nil m
// disables recording.
func WithMetrics[S, T any](q *Query[S, T], m *observability.Metrics) (*Query[S, T], error) {
	if q == nil {
		return nil, errors.ArgumentInvalid("query", "query must not be nil")
	}
	q.settings.update(func(s *Settings) { s.metrics = m })
	return q, nil
}

// WithConfig applies a validated config block and returns q. A zero
// BufferSize restores the default.
func WithConfig[S, T any](q *Query[S, T], cfg Config) (*Query[S, T], error) {
	if q == nil {
		return nil, errors.ArgumentInvalid("query", "query must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	q.settings.update(func(s *Settings) {
		s.degree = cfg.DegreeOfParallelism
		s.bufferSize = cfg.BufferSize
	})
	return q, nil
}

// Must panics if err is non-nil and returns q otherwise.
//
//	q := pipeline.Must(pipeline.Where(root, isFile))
func Must[Q any](q Q, err error) Q {
	if err != nil {
		panic(err)
	}
	return q
}

// DegreeOfParallelism returns the current worker count of the chain.
func (q *Query[S, T]) DegreeOfParallelism() int {
	q.settings.mu.RLock()
	defer q.settings.mu.RUnlock()
	return q.settings.degree
}

// BufferSize returns the effective result channel capacity of the chain.
func (q *Query[S, T]) BufferSize() int {
	return q.settings.snapshot().bufferSize
}

// Iter starts a session and returns its result iterator. It lets a query
// serve as the Source of another query.
func (q *Query[S, T]) Iter(ctx context.Context) Iterator[T] {
	return q.Enumerate(ctx)
}
