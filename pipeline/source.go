package pipeline

import (
	"context"
	"iter"
)

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// Source yields a fresh Iterator for every query session. Sources that can
// only be iterated once must not be enumerated twice.
type Source[S any] interface {
	Iter(ctx context.Context) Iterator[S]
}

// SourceFunc adapts a factory function to Source.
type SourceFunc[S any] func(ctx context.Context) Iterator[S]

// Iter calls f.
func (f SourceFunc[S]) Iter(ctx context.Context) Iterator[S] {
	return f(ctx)
}

// FromSlice creates a source over a slice. Every session starts at index 0.
func FromSlice[S any](items []S) Source[S] {
	return SourceFunc[S](func(context.Context) Iterator[S] {
		return &sliceIter[S]{items: items}
	})
}

// FromSeq creates a source over a range-over-func sequence. Each session
// pulls from its own iter.Pull and stops it on Close.
func FromSeq[S any](seq iter.Seq[S]) Source[S] {
	return SourceFunc[S](func(context.Context) Iterator[S] {
		next, stop := iter.Pull(seq)
		return &seqIter[S]{next: next, stop: stop}
	})
}

// From creates a single-pass source over an existing Iterator.
func From[S any](it Iterator[S]) Source[S] {
	return SourceFunc[S](func(context.Context) Iterator[S] {
		return it
	})
}

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type seqIter[T any] struct {
	next func() (T, bool)
	stop func()
}

func (it *seqIter[T]) Next(_ context.Context) (T, bool, error) {
	v, ok := it.next()
	return v, ok, nil
}

func (it *seqIter[T]) Close() error {
	it.stop()
	return nil
}
