package runner

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/torosent/skierload/internal/metrics"
)

// Options configure a Pool.
type Options struct {
	Threads  int
	Skiers   int
	Lifts    int
	Window   Window
	Target   Target
	Registry *metrics.Registry
	// Rate caps write/read pairs per second across all units (0 means unlimited).
	Rate int
	// Seed makes ride generation reproducible; 0 picks a random seed.
	Seed    uint64
	Latency LatencySink
	Logger  *slog.Logger
}

// Pool starts one worker per skier range.
type Pool struct {
	opt  Options
	seed uint64
}

// NewPool normalizes opt and returns a Pool.
func NewPool(opt Options) *Pool {
	if opt.Threads <= 0 {
		opt.Threads = 1
	}
	if opt.Window == (Window{}) {
		opt.Window = DayWindow
	}
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.DiscardHandler)
	}
	seed := opt.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Pool{opt: opt, seed: seed}
}

// Seed is the seed ride generation uses.
func (p *Pool) Seed() uint64 {
	return p.seed
}

// Unit is the handle of one launched worker.
type Unit struct {
	Index int
	Range Range
	done  chan struct{}
}

// Done is closed when the unit's loop has returned.
func (u *Unit) Done() <-chan struct{} {
	return u.done
}

// Group tracks the units of one launch.
type Group struct {
	wg    sync.WaitGroup
	units []*Unit
}

// Units returns the unit handles in partition order.
func (g *Group) Units() []*Unit {
	return g.units
}

// Wait blocks until every unit has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}

// Launch partitions the skier ids and starts one goroutine per range.
// Requests use ctx; only pacing waits are abandoned when stop fires.
func (p *Pool) Launch(ctx context.Context, stop *StopSignal) *Group {
	ranges := Partition(p.opt.Skiers, p.opt.Threads)
	pacer := NewPacer(p.opt.Rate)
	paceCtx, cancelPace := stop.Context(ctx)

	empty := 0
	g := &Group{units: make([]*Unit, len(ranges))}
	g.wg.Add(len(ranges))
	for i, r := range ranges {
		if r.Empty() {
			empty++
		}
		unit := &Unit{Index: i, Range: r, done: make(chan struct{})}
		g.units[i] = unit
		issuer := &Issuer{
			Range:    r,
			Lifts:    p.opt.Lifts,
			Window:   p.opt.Window,
			Target:   p.opt.Target,
			Registry: p.opt.Registry,
			Rand:     rand.New(rand.NewPCG(p.seed, uint64(i))),
			Pacer:    pacer,
			Latency:  p.opt.Latency,
		}
		go func() {
			defer g.wg.Done()
			defer close(unit.done)
			issuer.Run(ctx, paceCtx, stop)
		}()
	}
	if empty > 0 {
		p.opt.Logger.Warn("more threads than skiers, some workers are idle",
			slog.Int("threads", len(ranges)),
			slog.Int("skiers", p.opt.Skiers),
			slog.Int("idle", empty),
		)
	}

	go func() {
		g.wg.Wait()
		cancelPace()
	}()
	return g
}
