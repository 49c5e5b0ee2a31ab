package application

import (
	"context"
	"sync"
	"time"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/metrics"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
)

// RateLimiterConfig configures one limiter instance. Different sensitivity tiers
// (public reads, admin mutations, contact submissions) are just differently
// configured instances of the same algorithm.
type RateLimiterConfig struct {
	Window  time.Duration
	Max     int
	Message string
}

// Decision is the outcome of an admission check. It is a value, never an error:
// the caller decides whether to short-circuit the request.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
	Message    string
}

type rateBucket struct {
	count         int
	windowResetAt time.Time
}

// RateLimiter counts requests per identity within a fixed window that renews
// wholesale when it expires. Increments are atomic per identity; buckets for
// different identities are fully independent.
type RateLimiter struct {
	name   string
	cfg    RateLimiterConfig
	logger domain.Logger

	mu      sync.Mutex
	buckets map[string]*rateBucket

	now func() time.Time // overridable for tests
}

// NewRateLimiter creates a named limiter instance.
func NewRateLimiter(name string, cfg RateLimiterConfig, logger domain.Logger) *RateLimiter {
	if logger == nil {
		panic("logger is nil in NewRateLimiter")
	}
	return &RateLimiter{
		name:    name,
		cfg:     cfg,
		logger:  logger,
		buckets: make(map[string]*rateBucket),
		now:     time.Now,
	}
}

// Check records one request from identity and decides whether to admit it.
//   - No bucket, or the bucket's window has expired: replace it with count 1 and
//     a fresh window; admit.
//   - Bucket below the maximum: increment; admit.
//   - Bucket at the maximum: reject with the time remaining until the window resets.
func (l *RateLimiter) Check(identity string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[identity]
	if !ok || !now.Before(b.windowResetAt) {
		b = &rateBucket{count: 1, windowResetAt: now.Add(l.cfg.Window)}
		l.buckets[identity] = b
		return Decision{
			Allowed:   true,
			Limit:     l.cfg.Max,
			Remaining: l.cfg.Max - 1,
			ResetAt:   b.windowResetAt,
		}
	}

	if b.count < l.cfg.Max {
		b.count++
		return Decision{
			Allowed:   true,
			Limit:     l.cfg.Max,
			Remaining: l.cfg.Max - b.count,
			ResetAt:   b.windowResetAt,
		}
	}

	metrics.IncrementRateLimitRejection(l.name)
	return Decision{
		Allowed:    false,
		Limit:      l.cfg.Max,
		Remaining:  0,
		RetryAfter: b.windowResetAt.Sub(now),
		ResetAt:    b.windowResetAt,
		Message:    l.cfg.Message,
	}
}

// Sweep removes buckets whose window has passed. Best-effort housekeeping that
// bounds memory growth; not required for the correctness of Check.
func (l *RateLimiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for identity, b := range l.buckets {
		if !now.Before(b.windowResetAt) {
			delete(l.buckets, identity)
			removed++
		}
	}
	return removed
}

// StartSweeper periodically sweeps expired buckets until ctx is cancelled.
// Intended to be run via safego.Execute.
func (l *RateLimiter) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info(ctx, "Rate limiter sweeper shutting down", "limiter", l.name)
			return
		case <-ticker.C:
			removed := l.Sweep()
			if removed > 0 {
				l.logger.Debug(ctx, "Swept expired rate buckets", "limiter", l.name, "removed", removed)
			}
		}
	}
}
