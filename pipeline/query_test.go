package pipeline

import (
	"context"
	"runtime"
	"testing"

	"github.com/kbukum/longparallel/errors"
)

func TestAsLongParallel_NilSource(t *testing.T) {
	_, err := AsLongParallel[int](nil)
	if !errors.HasCode(err, errors.ErrCodeArgumentInvalid) {
		t.Fatalf("expected ARGUMENT_INVALID, got %v", err)
	}
}

func TestComposition_InvalidArguments(t *testing.T) {
	root := Must(AsLongParallel(FromSlice([]int{1})))
	var nilQuery *Query[int, int]

	tests := []struct {
		name string
		call func() error
		arg  string
	}{
		{"where nil query", func() error { _, err := Where(nilQuery, isEven); return err }, "query"},
		{"where nil predicate", func() error { _, err := Where(root, nil); return err }, "predicate"},
		{"select nil query", func() error { _, err := Select(nilQuery, double); return err }, "query"},
		{"select nil selector", func() error {
			_, err := Select[int, int, string](root, nil)
			return err
		}, "selector"},
		{"map nil fn", func() error {
			_, err := Map[int, int, string](root, nil)
			return err
		}, "selector"},
		{"cancellation nil signal", func() error {
			//nolint:staticcheck // nil context is the case under test
			_, err := WithCancellation(root, nil)
			return err
		}, "signal"},
		{"negative degree", func() error { _, err := WithDegreeOfParallelism(root, -1); return err }, "degreeOfParallelism"},
		{"zero buffer", func() error { _, err := WithBufferSize(root, 0); return err }, "bufferSize"},
		{"nil sink", func() error { _, err := WithDiagnostics(root, nil); return err }, "sink"},
		{"metrics nil query", func() error { _, err := WithMetrics(nilQuery, nil); return err }, "query"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			appErr, ok := errors.AsAppError(err)
			if !ok || appErr.Code != errors.ErrCodeArgumentInvalid {
				t.Fatalf("expected ARGUMENT_INVALID, got %v", err)
			}
			if appErr.Details["argument"] != tc.arg {
				t.Errorf("expected argument %q, got %v", tc.arg, appErr.Details["argument"])
			}
		})
	}
}

func TestWithDegreeOfParallelism_ZeroIsLegal(t *testing.T) {
	root := Must(AsLongParallel(FromSlice([]int{1, 2, 3})))
	q, err := WithDegreeOfParallelism(root, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q != root {
		t.Error("expected the same query back")
	}
	if q.DegreeOfParallelism() != 0 {
		t.Errorf("expected degree 0, got %d", q.DegreeOfParallelism())
	}
}

func TestSettings_Defaults(t *testing.T) {
	q := Must(AsLongParallel(FromSlice([]int{1})))
	if got := q.DegreeOfParallelism(); got != runtime.NumCPU() {
		t.Errorf("expected degree %d, got %d", runtime.NumCPU(), got)
	}
	if got := q.BufferSize(); got != max(1, runtime.NumCPU()) {
		t.Errorf("expected buffer %d, got %d", max(1, runtime.NumCPU()), got)
	}

	Must(WithDegreeOfParallelism(q, 0))
	if got := q.BufferSize(); got != 1 {
		t.Errorf("expected buffer 1 for degree 0, got %d", got)
	}
	Must(WithBufferSize(q, 32))
	if got := q.BufferSize(); got != 32 {
		t.Errorf("expected explicit buffer 32, got %d", got)
	}
}

func TestSettings_SharedAcrossChain(t *testing.T) {
	root := Must(AsLongParallel(FromSlice(rangeInts(1, 10))))
	evens := Must(Where(root, isEven))
	doubled := Must(Select(evens, double))
	sibling := Must(Map(root, func(n int) string { return "x" }))

	same, err := WithDegreeOfParallelism(doubled, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if same != doubled {
		t.Error("expected the same query back")
	}

	for name, got := range map[string]int{
		"root":    root.DegreeOfParallelism(),
		"evens":   evens.DegreeOfParallelism(),
		"doubled": doubled.DegreeOfParallelism(),
		"sibling": sibling.DegreeOfParallelism(),
	} {
		if got != 3 {
			t.Errorf("%s: expected degree 3, got %d", name, got)
		}
	}

	// Changing it through the root reaches queries derived earlier.
	Must(WithDegreeOfParallelism(root, 5))
	if doubled.DegreeOfParallelism() != 5 || sibling.DegreeOfParallelism() != 5 {
		t.Error("expected degree change through root to reach derived queries")
	}
}

func TestComposition_DoesNotMutateBase(t *testing.T) {
	root := Must(AsLongParallel(FromSlice(rangeInts(1, 6))))
	_ = Must(Where(root, isEven))
	_ = Must(Select(root, double))

	got, err := Collect(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	assertSameMultiset(t, got, rangeInts(1, 6))
}

func TestWhere_PredicateOrder(t *testing.T) {
	var calls []string
	root := Must(AsLongParallel(FromSlice([]int{1, 2})))
	q := Must(Where(root, func(n int) bool { calls = append(calls, "first"); return n == 2 }))
	q = Must(Where(q, func(n int) bool { calls = append(calls, "second"); return true }))
	q = Must(WithDegreeOfParallelism(q, 1))

	got, err := Collect(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	assertSameMultiset(t, got, []int{2})
	// item 1 short-circuits on the first predicate
	want := []string{"first", "first", "second"}
	if len(calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, calls)
		}
	}
}

func TestWithConfig(t *testing.T) {
	q := Must(AsLongParallel(FromSlice([]int{1})))

	if _, err := WithConfig(q, Config{DegreeOfParallelism: 6, BufferSize: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.DegreeOfParallelism() != 6 || q.BufferSize() != 2 {
		t.Errorf("config not applied: degree=%d buffer=%d", q.DegreeOfParallelism(), q.BufferSize())
	}

	_, err := WithConfig(q, Config{DegreeOfParallelism: -2})
	if !errors.HasCode(err, errors.ErrCodeArgumentInvalid) {
		t.Errorf("expected ARGUMENT_INVALID, got %v", err)
	}
	if q.DegreeOfParallelism() != 6 {
		t.Error("rejected config must not change settings")
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.DegreeOfParallelism != runtime.NumCPU() {
		t.Errorf("expected degree %d, got %d", runtime.NumCPU(), cfg.DegreeOfParallelism)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestMust_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Must(AsLongParallel[int](nil))
}
