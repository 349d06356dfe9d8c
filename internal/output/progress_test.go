package output

import (
	"bytes"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/torosent/skierload/internal/metrics"
)

func record(reg *metrics.Registry, kind metrics.Kind, n int) {
	for i := 0; i < n; i++ {
		reg.RecordOutcome(metrics.Outcome{Kind: kind, Success: true, Elapsed: time.Millisecond})
	}
}

func TestProgressTickComputesDeltas(t *testing.T) {
	reg := metrics.NewRegistry()
	p := NewProgressReporter(reg, 5*time.Second, nil)
	start := p.start

	record(reg, metrics.KindWrite, 50)
	record(reg, metrics.KindRead, 25)
	first := p.tick(start.Add(5 * time.Second))
	want := Progress{ElapsedSeconds: 5, ReadsPerSec: 5, WritesPerSec: 10}
	if first != want {
		t.Errorf("first tick = %+v, want %+v", first, want)
	}

	record(reg, metrics.KindWrite, 12)
	second := p.tick(start.Add(10 * time.Second))
	want = Progress{ElapsedSeconds: 10, ReadsPerSec: 0, WritesPerSec: 2}
	if second != want {
		t.Errorf("second tick = %+v, want %+v", second, want)
	}
}

func TestProgressTickSubSecondInterval(t *testing.T) {
	reg := metrics.NewRegistry()
	p := NewProgressReporter(reg, 500*time.Millisecond, nil)
	record(reg, metrics.KindRead, 10)
	got := p.tick(p.start)
	if got.ReadsPerSec != 20 {
		t.Errorf("ReadsPerSec = %d, want 20", got.ReadsPerSec)
	}
}

func TestWriteProgressFormat(t *testing.T) {
	var buf bytes.Buffer
	WriteProgress(&buf, Progress{ElapsedSeconds: 15, ReadsPerSec: 120, WritesPerSec: 130})
	want := "Seconds elapsed: 15\nGETs/sec: 120\nPOSTs/sec: 130\n---\n"
	if buf.String() != want {
		t.Errorf("WriteProgress() = %q, want %q", buf.String(), want)
	}
}

func TestProgressReporterPrintsUntilStopped(t *testing.T) {
	reg := metrics.NewRegistry()
	record(reg, metrics.KindWrite, 5)

	var buf bytes.Buffer
	p := NewProgressReporter(reg, 20*time.Millisecond, &buf)
	p.Start()
	p.Start()
	time.Sleep(90 * time.Millisecond)
	p.Stop()
	p.Stop()

	out := buf.String()
	if !strings.Contains(out, "Seconds elapsed:") || !strings.Contains(out, "POSTs/sec:") {
		t.Errorf("expected progress output, got %q", out)
	}
	n := len(out)
	time.Sleep(50 * time.Millisecond)
	if buf.Len() != n {
		t.Error("reporter kept writing after Stop")
	}
}

func TestProgressReporterSuppressed(t *testing.T) {
	reg := metrics.NewRegistry()
	var buf bytes.Buffer
	var calls atomic.Int32
	p := NewProgressReporter(reg, 10*time.Millisecond, &buf)
	p.SuppressWhen(func() bool {
		calls.Add(1)
		return true
	})
	p.Start()
	time.Sleep(60 * time.Millisecond)
	p.Stop()

	if buf.Len() != 0 {
		t.Errorf("suppressed reporter wrote %q", buf.String())
	}
	if calls.Load() == 0 {
		t.Error("suppress func never consulted")
	}
}
