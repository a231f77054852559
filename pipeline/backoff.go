package pipeline

import (
	"context"
	"math/rand"
	"time"
)

// Backoff is the shared retry policy applied by every poller after a failed
// fetch. Delays grow exponentially from Base up to Max with a little jitter
// to avoid synchronized retries across pollers.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
	Jitter float64 // fraction of the delay, e.g. 0.2 for ±20%
}

// DefaultBackoff gives a short first retry, capped at a minute.
func DefaultBackoff() Backoff {
	return Backoff{Base: 5 * time.Second, Max: time.Minute, Factor: 2, Jitter: 0.2}
}

// Next returns the delay before retry number attempt (0-based).
func (b Backoff) Next(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = 5 * time.Second
	}
	factor := b.Factor
	if factor < 1 {
		factor = 2
	}
	d := float64(base)
	for i := 0; i < attempt; i++ {
		d *= factor
		if b.Max > 0 && d >= float64(b.Max) {
			d = float64(b.Max)
			break
		}
	}
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
		d += d * b.Jitter * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Sleep waits for the attempt's delay or until ctx is canceled. Returns false
// on cancellation.
func (b Backoff) Sleep(ctx context.Context, attempt int) bool {
	t := time.NewTimer(b.Next(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
