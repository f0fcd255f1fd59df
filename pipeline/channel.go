package pipeline

import "sync"

// resultChannel hands results from many workers to one consumer. It is
// bounded: publish blocks while the buffer is full until the consumer
// takes an item or the session aborts.
type resultChannel[T any] struct {
	items     chan T
	completed chan struct{}
	abort     <-chan struct{}
	once      sync.Once
	fault     error
}

func newResultChannel[T any](capacity int, abort <-chan struct{}) *resultChannel[T] {
	return &resultChannel[T]{
		items:     make(chan T, capacity),
		completed: make(chan struct{}),
		abort:     abort,
	}
}

// publish hands v to the consumer. It returns false if the session aborted
// before v could be buffered.
func (c *resultChannel[T]) publish(v T) bool {
	select {
	case c.items <- v:
		return true
	case <-c.abort:
		return false
	}
}

// complete closes the channel, carrying fault if non-nil. Only the first
// call has an effect; the supervisor calls it once all workers have exited.
func (c *resultChannel[T]) complete(fault error) {
	c.once.Do(func() {
		c.fault = fault
		close(c.completed)
		close(c.items)
	})
}

// completedFault reports whether the channel has completed and, if so, the
// fault it carries.
func (c *resultChannel[T]) completedFault() (bool, error) {
	select {
	case <-c.completed:
		return true, c.fault
	default:
		return false, nil
	}
}
