package pipeline

import (
	"context"
	"slices"
	"testing"
	"time"
)

func rangeInts(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func sorted(in []int) []int {
	out := slices.Clone(in)
	slices.Sort(out)
	return out
}

func assertSameMultiset(t *testing.T, got, want []int) {
	t.Helper()
	g, w := sorted(got), sorted(want)
	if !slices.Equal(g, w) {
		t.Fatalf("multiset mismatch:\n got  %v\n want %v", g, w)
	}
}

func double(_ context.Context, n int) (int, error) { return n * 2, nil }

func isEven(n int) bool { return n%2 == 0 }

// within fails the test if fn does not return before d elapses.
func within(t *testing.T, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("did not finish within %v", d)
	}
}

// errIter yields items until failAt, then returns err.
type errIter struct {
	next   int
	failAt int
	err    error
	closed bool
}

func (it *errIter) Next(_ context.Context) (int, bool, error) {
	if it.next == it.failAt {
		return 0, false, it.err
	}
	it.next++
	return it.next, true, nil
}

func (it *errIter) Close() error {
	it.closed = true
	return nil
}
