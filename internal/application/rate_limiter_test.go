package application

import (
	"testing"
	"time"
)

func newTestLimiter(max int, window time.Duration) (*RateLimiter, *time.Time) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter("test", RateLimiterConfig{
		Window:  window,
		Max:     max,
		Message: "slow down",
	}, nopLogger{})
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestRateLimiterWindowSemantics(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute)

	for i := 1; i <= 3; i++ {
		d := l.Check("1.2.3.4")
		if !d.Allowed {
			t.Fatalf("request %d should be admitted", i)
		}
		if d.Remaining != 3-i {
			t.Errorf("request %d: remaining = %d, want %d", i, d.Remaining, 3-i)
		}
	}

	d := l.Check("1.2.3.4")
	if d.Allowed {
		t.Fatal("4th request in window should be rejected")
	}
	if d.RetryAfter <= 0 {
		t.Errorf("rejection must carry a positive RetryAfter, got %v", d.RetryAfter)
	}
	if d.Message != "slow down" {
		t.Errorf("rejection message = %q", d.Message)
	}

	// The whole window resets at once; the count does not slide.
	*clock = clock.Add(time.Minute + time.Second)
	d = l.Check("1.2.3.4")
	if !d.Allowed {
		t.Fatal("request in fresh window should be admitted")
	}
	if d.Remaining != 2 {
		t.Errorf("fresh window remaining = %d, want 2", d.Remaining)
	}
}

func TestRateLimiterIdentityIsolation(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	if d := l.Check("10.0.0.1"); !d.Allowed {
		t.Fatal("first identity should be admitted")
	}
	if d := l.Check("10.0.0.1"); d.Allowed {
		t.Fatal("first identity should now be rejected")
	}
	if d := l.Check("10.0.0.2"); !d.Allowed {
		t.Fatal("second identity must not share the first identity's bucket")
	}
}

func TestRateLimiterSweep(t *testing.T) {
	l, clock := newTestLimiter(5, time.Minute)

	l.Check("a")
	l.Check("b")
	if removed := l.Sweep(); removed != 0 {
		t.Errorf("sweep removed live buckets: %d", removed)
	}

	*clock = clock.Add(2 * time.Minute)
	l.Check("c") // fresh bucket in the new window
	if removed := l.Sweep(); removed != 2 {
		t.Errorf("sweep removed %d buckets, want 2", removed)
	}

	// Sweeping must not disturb admission for the surviving bucket.
	if d := l.Check("c"); !d.Allowed {
		t.Error("surviving bucket rejected after sweep")
	}
}
