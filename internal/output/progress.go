package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/skierload/internal/metrics"
)

// Progress is one periodic throughput sample.
type Progress struct {
	ElapsedSeconds int64
	ReadsPerSec    int64
	WritesPerSec   int64
}

// ProgressReporter prints read and write throughput since the previous tick.
type ProgressReporter struct {
	registry *metrics.Registry
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
	start    time.Time
	suppress func() bool

	lastReads  int64
	lastWrites int64
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(registry *metrics.Registry, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		registry: registry,
		interval: interval,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
		start:    time.Now(),
	}
}

// SuppressWhen skips printing on ticks where fn reports true. It must be
// set before Start.
func (p *ProgressReporter) SuppressWhen(fn func() bool) {
	p.suppress = fn
}

// Start begins printing in a background goroutine. Elapsed time is measured
// from the call to Start.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return
	}
	p.start = time.Now()
	p.ticker = time.NewTicker(p.interval)
	go p.run()
}

// Stop halts progress updates and waits for the background goroutine.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case now := <-p.ticker.C:
			sample := p.tick(now)
			if p.suppress != nil && p.suppress() {
				continue
			}
			WriteProgress(p.writer, sample)
		case <-p.done:
			return
		}
	}
}

// tick computes the deltas since the previous call. Only the run goroutine
// touches lastReads and lastWrites.
func (p *ProgressReporter) tick(now time.Time) Progress {
	snap := p.registry.Snapshot()
	reads := snap.Reads.Total - p.lastReads
	writes := snap.Writes.Total - p.lastWrites
	p.lastReads = snap.Reads.Total
	p.lastWrites = snap.Writes.Total

	sample := Progress{ElapsedSeconds: int64(now.Sub(p.start) / time.Second)}
	if secs := int64(p.interval / time.Second); secs > 0 {
		sample.ReadsPerSec = reads / secs
		sample.WritesPerSec = writes / secs
	} else if p.interval > 0 {
		perSec := float64(time.Second) / float64(p.interval)
		sample.ReadsPerSec = int64(float64(reads) * perSec)
		sample.WritesPerSec = int64(float64(writes) * perSec)
	}
	return sample
}

// WriteProgress prints one progress block.
func WriteProgress(w io.Writer, p Progress) {
	fmt.Fprintf(w, "Seconds elapsed: %d\n", p.ElapsedSeconds)
	fmt.Fprintf(w, "GETs/sec: %d\n", p.ReadsPerSec)
	fmt.Fprintf(w, "POSTs/sec: %d\n", p.WritesPerSec)
	fmt.Fprintln(w, "---")
}
