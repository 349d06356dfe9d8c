// Package phase drives one load run from launch to final statistics.
package phase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/torosent/skierload/internal/config"
	"github.com/torosent/skierload/internal/metrics"
	"github.com/torosent/skierload/internal/output"
	"github.com/torosent/skierload/internal/runner"
)

// DefaultProgressInterval is the period of the progress lines.
const DefaultProgressInterval = 5 * time.Second

// ErrAlreadyRun is returned when Run is called more than once.
var ErrAlreadyRun = errors.New("run already started")

// Options configure a Controller.
type Options struct {
	Config config.Config
	Target runner.Target

	// Duration overrides Config.DurationMinutes when positive.
	Duration         time.Duration
	ProgressInterval time.Duration
	// Progress receives the periodic progress blocks. Nil disables them.
	Progress         io.Writer
	Registry         *metrics.Registry
	Latency          runner.LatencySink
	Logger           *slog.Logger
}

// Controller owns the deadline, the progress ticker and the worker group of
// a single run.
type Controller struct {
	opt      Options
	duration time.Duration
	state    atomic.Int32
	stop     *runner.StopSignal
}

// New validates the configuration. Nothing is started until Run.
func New(opt Options) (*Controller, error) {
	if err := opt.Config.Validate(); err != nil {
		return nil, err
	}
	if opt.Target == nil {
		return nil, fmt.Errorf("target is required")
	}
	if opt.ProgressInterval <= 0 {
		opt.ProgressInterval = DefaultProgressInterval
	}
	if opt.Registry == nil {
		opt.Registry = metrics.NewRegistry()
	}
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.DiscardHandler)
	}
	duration := opt.Duration
	if duration <= 0 {
		duration = opt.Config.Duration()
	}
	return &Controller{
		opt:      opt,
		duration: duration,
		stop:     runner.NewStopSignal(),
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Registry is the registry the run records into.
func (c *Controller) Registry() *metrics.Registry {
	return c.opt.Registry
}

// Run launches the workers, waits for the deadline to stop them and returns
// the statistics of the whole run. It blocks for roughly the configured
// duration plus the longest in-flight request.
func (c *Controller) Run(ctx context.Context) (metrics.Stats, error) {
	if !c.state.CompareAndSwap(int32(Configured), int32(Running)) {
		return metrics.Stats{}, ErrAlreadyRun
	}

	cfg := c.opt.Config
	pool := runner.NewPool(runner.Options{
		Threads:  cfg.Threads,
		Skiers:   cfg.Skiers,
		Lifts:    cfg.Lifts,
		Window:   runner.DayWindow,
		Target:   c.opt.Target,
		Registry: c.opt.Registry,
		Rate:     cfg.Rate,
		Seed:     cfg.Seed,
		Latency:  c.opt.Latency,
		Logger:   c.opt.Logger,
	})
	c.opt.Logger.Info("starting run",
		slog.Int("threads", cfg.Threads),
		slog.Int("skiers", cfg.Skiers),
		slog.Int("lifts", cfg.Lifts),
		slog.Duration("duration", c.duration),
		slog.Uint64("seed", pool.Seed()),
	)

	var progress *output.ProgressReporter
	if c.opt.Progress != nil {
		progress = output.NewProgressReporter(c.opt.Registry, c.opt.ProgressInterval, c.opt.Progress)
		progress.SuppressWhen(func() bool { return c.State() != Running })
	}

	start := time.Now()
	group := pool.Launch(ctx, c.stop)
	deadline := time.AfterFunc(c.duration, c.beginStopping)
	if progress != nil {
		progress.Start()
	}

	group.Wait()
	elapsed := time.Since(start)

	deadline.Stop()
	if progress != nil {
		progress.Stop()
	}
	// Workers only return after the stop signal unless ctx was cancelled.
	c.beginStopping()
	c.state.Store(int32(Done))

	stats := c.opt.Registry.Stats(elapsed)
	c.opt.Logger.Info("run finished",
		slog.Int64("successes", stats.Successes),
		slog.Int64("failures", stats.Failures),
		slog.Int64("runtime_seconds", stats.RuntimeSeconds),
	)
	return stats, ctx.Err()
}

func (c *Controller) beginStopping() {
	if c.state.CompareAndSwap(int32(Running), int32(Stopping)) {
		c.opt.Logger.Info("Terminating...")
		c.stop.Fire()
	}
}
