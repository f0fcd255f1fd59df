package pipeline

import (
	"context"

	"github.com/kbukum/longparallel/errors"
)

// Enumerator is the consumer side of one query session. It is not safe for
// concurrent use.
type Enumerator[T any] struct {
	ctx     context.Context
	signal  context.Context
	results *resultChannel[T]
	stop    func(error)

	current T
	err     error
	done    bool
}

// Enumerate starts a new session of q and returns its enumerator. The
// session lives until ctx is done, the results are exhausted, a fault
// occurs or the enumerator is closed.
func (q *Query[S, T]) Enumerate(ctx context.Context) *Enumerator[T] {
	s := startSession(ctx, q)
	return &Enumerator[T]{
		ctx:     ctx,
		signal:  s.cfg.signal,
		results: s.results,
		stop:    s.shutdown,
	}
}

// Next blocks until a result is available and returns it. It returns
// (zero, false, nil) once the session completed cleanly. A session fault is
// returned by this and every later call. If ctx, the enumeration context or
// the cancellation signal is done, Next returns CONSUMER_CANCELED without
// waiting for the workers.
func (e *Enumerator[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if e.err != nil {
		return zero, false, e.err
	}
	if e.done {
		return zero, false, nil
	}
	if err := e.interrupted(ctx); err != nil {
		return zero, false, err
	}

	select {
	case v, ok := <-e.results.items:
		if completed, fault := e.results.completedFault(); completed && fault != nil {
			e.err = fault
			e.current = zero
			return zero, false, fault
		}
		if !ok {
			e.done = true
			e.current = zero
			return zero, false, nil
		}
		e.current = v
		return v, true, nil
	case <-ctx.Done():
		return zero, false, errors.ConsumerCanceled(context.Cause(ctx))
	case <-e.ctx.Done():
		return zero, false, errors.ConsumerCanceled(context.Cause(e.ctx))
	case <-e.signal.Done():
		return zero, false, errors.ConsumerCanceled(context.Cause(e.signal))
	}
}

func (e *Enumerator[T]) interrupted(ctx context.Context) error {
	for _, c := range []context.Context{ctx, e.ctx, e.signal} {
		if c.Err() != nil {
			return errors.ConsumerCanceled(context.Cause(c))
		}
	}
	return nil
}

// Current returns the value of the last successful Next. It is the zero
// value before the first call and after the end or a fault.
func (e *Enumerator[T]) Current() T {
	return e.current
}

// Err returns the session fault once Next has reported it.
func (e *Enumerator[T]) Err() error {
	return e.err
}

// Close aborts the session. Workers stop at their next check; selectors
// already running are not waited for. Close is idempotent.
func (e *Enumerator[T]) Close() error {
	if !e.done {
		e.done = true
		e.stop(errEnumeratorClosed)
	}
	return nil
}
