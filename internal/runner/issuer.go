package runner

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/torosent/skierload/internal/metrics"
	"github.com/torosent/skierload/internal/skiapi"
)

// Window is the inclusive range of minutes a ride time is drawn from.
type Window struct {
	Start int
	End   int
}

// DayWindow covers one 420-minute ski day.
var DayWindow = Window{Start: 1, End: 420}

// LatencySink receives the wall-clock latency of every request, keyed by
// HTTP method.
type LatencySink interface {
	Record(method string, elapsed time.Duration)
}

// Issuer runs the write-then-read loop of one worker.
type Issuer struct {
	Range    Range
	Lifts    int
	Window   Window
	Target   Target
	Registry *metrics.Registry
	Rand     *rand.Rand
	// Pacer and Latency are optional and shared across issuers.
	Pacer   *Pacer
	Latency LatencySink
}

// randomBetween draws uniformly from [lo, hi], both ends inclusive.
func randomBetween(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

func (is *Issuer) nextRide() skiapi.LiftRide {
	return skiapi.LiftRide{
		SkierID:  randomBetween(is.Rand, is.Range.Start, is.Range.End-1),
		ResortID: skiapi.DefaultResortID,
		LiftID:   randomBetween(is.Rand, 1, is.Lifts),
		Time:     randomBetween(is.Rand, is.Window.Start, is.Window.End),
	}
}

// Iterate performs one write and, if it succeeded and the run is still
// going, the read of the ride it created. Failures are recorded, never returned.
func (is *Issuer) Iterate(ctx context.Context, stop StopChecker) {
	ride := is.nextRide()

	start := time.Now()
	res, err := is.Target.CreateLiftRide(ctx, ride)
	elapsed := time.Since(start)
	is.observe(metrics.KindWrite, elapsed)

	write := metrics.Outcome{
		Kind:       metrics.KindWrite,
		Success:    err == nil,
		Elapsed:    elapsed,
		ResultKey:  res.RideID,
		StatusCode: res.StatusCode,
		Err:        err,
	}
	if err != nil {
		write.ResultKey = -1
	}
	is.Registry.RecordOutcome(write)

	if !write.Success {
		is.Registry.RecordSkippedRead()
		return
	}
	if stop.Stopped() {
		return
	}

	start = time.Now()
	res, err = is.Target.GetLiftRide(ctx, write.ResultKey)
	elapsed = time.Since(start)
	is.observe(metrics.KindRead, elapsed)

	is.Registry.RecordOutcome(metrics.Outcome{
		Kind:       metrics.KindRead,
		Success:    err == nil,
		Elapsed:    elapsed,
		ResultKey:  write.ResultKey,
		StatusCode: res.StatusCode,
		Err:        err,
	})
}

func (is *Issuer) observe(kind metrics.Kind, elapsed time.Duration) {
	if is.Latency != nil {
		is.Latency.Record(kind.Method(), elapsed)
	}
}

// Run iterates until stop reports true or ctx is done. paceCtx bounds pacer
// waits only and should be cancelled when the run stops.
func (is *Issuer) Run(ctx, paceCtx context.Context, stop StopChecker) {
	if is.Range.Empty() {
		return
	}
	for !stop.Stopped() && ctx.Err() == nil {
		if err := is.Pacer.Wait(paceCtx); err != nil {
			return
		}
		if stop.Stopped() {
			return
		}
		is.Iterate(ctx, stop)
	}
}
