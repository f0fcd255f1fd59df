package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func limiterWithClock(cfg RateLimiterConfig) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	rl := NewRateLimiter(cfg)
	rl.now = clock.now
	rl.last = clock.now()
	return rl, clock
}

func TestNewRateLimiter_ZeroRateIsUnlimited(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	if rl != nil {
		t.Fatal("expected nil limiter for zero rate")
	}
	for range 100 {
		if !rl.Allow() {
			t.Fatal("nil limiter must always allow")
		}
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter Wait: %v", err)
	}
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	rl, clock := limiterWithClock(RateLimiterConfig{Rate: 10, Burst: 3})

	for i := range 3 {
		if !rl.Allow() {
			t.Fatalf("request %d within burst was refused", i)
		}
	}
	if rl.Allow() {
		t.Fatal("request beyond burst was allowed")
	}

	clock.advance(100 * time.Millisecond)
	if !rl.Allow() {
		t.Fatal("token should have been refilled after 100ms at 10/s")
	}
	if rl.Allow() {
		t.Fatal("only one token should have been refilled")
	}
}

func TestRateLimiter_BurstDefaultsToRate(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 4})
	if rl.burst != 4 {
		t.Errorf("burst = %v, want 4", rl.burst)
	}
	rl = NewRateLimiter(RateLimiterConfig{Rate: 0.5})
	if rl.burst != 1 {
		t.Errorf("burst = %v, want 1", rl.burst)
	}
}

func TestRateLimiter_ReserveQueuesCallers(t *testing.T) {
	rl, _ := limiterWithClock(RateLimiterConfig{Rate: 10, Burst: 1})

	if d := rl.reserve(); d != 0 {
		t.Fatalf("first reservation should be immediate, got %v", d)
	}
	if d := rl.reserve(); d != 100*time.Millisecond {
		t.Fatalf("second reservation = %v, want 100ms", d)
	}
	if d := rl.reserve(); d != 200*time.Millisecond {
		t.Fatalf("third reservation = %v, want 200ms", d)
	}
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 1})
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := rl.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("Wait ignored context deadline")
	}
}
