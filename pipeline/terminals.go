package pipeline

import (
	"context"
	"iter"
)

// Runnable is a fully-configured query ready to execute.
type Runnable struct {
	run func(ctx context.Context) error
}

// Run executes the query until completion, a fault or cancellation.
func (r *Runnable) Run(ctx context.Context) error {
	return r.run(ctx)
}

// Drain creates a Runnable that enumerates q and sends each result to sink.
// The first sink error stops the session and is returned.
func Drain[S, T any](q *Query[S, T], sink func(context.Context, T) error) *Runnable {
	return &Runnable{
		run: func(ctx context.Context) error {
			e := q.Enumerate(ctx)
			defer e.Close()
			for {
				val, ok, err := e.Next(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				if err := sink(ctx, val); err != nil {
					return err
				}
			}
		},
	}
}

// Collect runs q and returns all results in completion order. On failure
// it returns the results received so far along with the error.
func Collect[S, T any](ctx context.Context, q *Query[S, T]) ([]T, error) {
	e := q.Enumerate(ctx)
	defer e.Close()
	var result []T
	for {
		val, ok, err := e.Next(ctx)
		if err != nil {
			return result, err
		}
		if !ok {
			return result, nil
		}
		result = append(result, val)
	}
}

// ForEach pulls all results and calls fn for each. Convenience wrapper around Drain.
func ForEach[S, T any](ctx context.Context, q *Query[S, T], fn func(context.Context, T) error) error {
	return Drain(q, fn).Run(ctx)
}

// All returns a range-over-func view of a new session. The error of a
// failed session is yielded once as the final pair; breaking out of the
// loop closes the session.
//
//	for v, err := range q.All(ctx) {
//	    if err != nil { ... }
//	}
func (q *Query[S, T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		e := q.Enumerate(ctx)
		defer e.Close()
		for {
			val, ok, err := e.Next(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !ok || !yield(val, nil) {
				return
			}
		}
	}
}
