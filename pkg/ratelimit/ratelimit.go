package ratelimit

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Policy decides how long a caller pauses between outbound requests.
type Policy interface {
	Wait(ctx context.Context) error
}

// Delay sleeps for a fixed duration on every Wait, regardless of what happened
// before. It is the crude throttle used between search queries.
type Delay struct {
	d time.Duration
}

var _ Policy = (*Delay)(nil)

// NewDelay returns a Delay of d. A non-positive d never blocks.
func NewDelay(d time.Duration) *Delay {
	return &Delay{d: d}
}

// Wait blocks for the configured duration or until ctx is done.
func (p *Delay) Wait(ctx context.Context) error {
	if p.d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Limiter controls the rate and timing of operations, incorporating optional jitter.
// It is safe for concurrent use by multiple goroutines.
type Limiter struct {
	lim      *rate.Limiter
	jitter   float64 // 0.0 to 1.0
	interval time.Duration
}

var _ Policy = (*Limiter)(nil)

// NewLimiter creates a new limiter with the given requests per second (rps)
// and jitter factor. Jitter is clamped to [0, 1].
// If rps is <= 0, the limiter does not block. The bucket starts empty, so
// the first Wait already blocks for one interval.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}

	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	lim := rate.NewLimiter(rate.Limit(rps), 1)
	lim.Allow()

	return &Limiter{
		lim:      lim,
		jitter:   jitter,
		interval: time.Duration(float64(time.Second) / rps),
	}
}

// Wait blocks until it is time to perform the next operation, or until the
// context is canceled. Positive jitter adds up to jitter*interval on top.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.lim == nil {
		return nil
	}

	if err := l.lim.Wait(ctx); err != nil {
		return err
	}

	if l.jitter > 0 {
		// -1.0 to 1.0; a negative draw means "go as soon as the bucket allows"
		jitterFactor := (rand.Float64() * 2) - 1.0
		jitterDuration := time.Duration(float64(l.interval) * l.jitter * jitterFactor)

		if jitterDuration > 0 {
			t := time.NewTimer(jitterDuration)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// None never blocks. Useful in tests and dry runs.
type None struct{}

var _ Policy = None{}

func (None) Wait(ctx context.Context) error {
	return ctx.Err()
}
