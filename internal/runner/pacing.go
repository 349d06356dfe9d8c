package runner

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer caps how many write/read pairs start per second across all workers.
// A nil Pacer never waits.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a Pacer for rps pairs per second, or nil when rps <= 0.
func NewPacer(rps int) *Pacer {
	if rps <= 0 {
		return nil
	}
	// Burst equals rps.
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(rps), rps)}
}

// Wait blocks until the next pair may start or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
