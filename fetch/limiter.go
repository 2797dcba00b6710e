package fetch

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound requests. Callers invoke Wait after every fetch
// attempt so that failed, non-retried fetches still pace correctly.
type Limiter interface {
	Wait(ctx context.Context) error
}

// jitterLimiter sleeps for a uniformly random duration in [min, max].
// Directory sites block bursty traffic; the randomised pause mimics a
// human browsing cadence.
type jitterLimiter struct {
	min, max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewJitterLimiter builds the default politeness limiter.
func NewJitterLimiter(min, max time.Duration) Limiter {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	return &jitterLimiter{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (l *jitterLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	d := l.min
	if span := l.max - l.min; span > 0 {
		d += time.Duration(l.rng.Int63n(int64(span) + 1))
	}
	l.mu.Unlock()

	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// bucketLimiter adapts a token bucket to the Limiter interface, for
// callers that prefer steady pacing over randomised sleeps.
type bucketLimiter struct {
	limiter *rate.Limiter
}

// NewTokenBucketLimiter allows one request per interval with the given burst.
func NewTokenBucketLimiter(interval time.Duration, burst int) Limiter {
	if burst < 1 {
		burst = 1
	}
	return &bucketLimiter{limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

func (l *bucketLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
