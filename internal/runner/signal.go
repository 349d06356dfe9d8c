package runner

import (
	"context"
	"sync"
	"sync/atomic"
)

// StopChecker is polled by workers between requests.
type StopChecker interface {
	Stopped() bool
}

// StopSignal is a one-way flag shared by every worker of a run.
// It flips from running to stopped exactly once.
type StopSignal struct {
	stopped atomic.Bool
	once    sync.Once
	done    chan struct{}
}

// NewStopSignal returns a signal in the running state.
func NewStopSignal() *StopSignal {
	return &StopSignal{done: make(chan struct{})}
}

// Fire stops the run. It reports whether this call performed the transition.
func (s *StopSignal) Fire() bool {
	fired := false
	s.once.Do(func() {
		s.stopped.Store(true)
		close(s.done)
		fired = true
	})
	return fired
}

// Stopped reports whether Fire has been called.
func (s *StopSignal) Stopped() bool {
	return s.stopped.Load()
}

// Done is closed when the signal fires.
func (s *StopSignal) Done() <-chan struct{} {
	return s.done
}

// Context returns a child of parent that is cancelled when the signal fires.
// Only waits that may be abandoned on stop should use it; requests must not.
func (s *StopSignal) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
