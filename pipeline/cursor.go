package pipeline

import (
	"context"
	"sync"
)

// cursor serializes takes against a session's single source iterator.
// Each item goes to exactly one caller, in source order.
type cursor[S any] struct {
	mu   sync.Mutex
	it   Iterator[S]
	done bool
}

func newCursor[S any](it Iterator[S]) *cursor[S] {
	return &cursor[S]{it: it}
}

// takeNext advances the iterator under the lock. Once the source reports
// exhaustion or an error, later calls return (zero, false, nil) without
// touching the iterator again.
func (c *cursor[S]) takeNext(ctx context.Context) (S, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero S
	if c.done {
		return zero, false, nil
	}
	item, ok, err := c.it.Next(ctx)
	if err != nil || !ok {
		c.done = true
		return zero, false, err
	}
	return item, true, nil
}

// close releases the iterator. Callers must ensure no take is in flight.
func (c *cursor[S]) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = true
	return c.it.Close()
}
