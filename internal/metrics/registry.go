package metrics

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Kind distinguishes the two request types a worker issues.
type Kind int

const (
	KindWrite Kind = iota
	KindRead
)

func (k Kind) String() string {
	switch k {
	case KindWrite:
		return "write"
	case KindRead:
		return "read"
	default:
		return "unknown"
	}
}

// Method is the HTTP method used for requests of this kind.
func (k Kind) Method() string {
	if k == KindWrite {
		return "POST"
	}
	return "GET"
}

// Outcome is the result of one completed request.
type Outcome struct {
	Kind    Kind
	Success bool
	Elapsed time.Duration
	// ResultKey is the ride id returned by a successful write, -1 otherwise.
	ResultKey  int
	StatusCode int
	Err        error
}

type kindMetrics struct {
	total     atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64
	hist      Histogram

	sketchMu sync.Mutex
	sketch   *hdrhistogram.Histogram
}

func newKindMetrics() *kindMetrics {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &kindMetrics{sketch: hdrhistogram.New(1, 60_000_000, 3)}
}

func (k *kindMetrics) record(o Outcome) {
	k.total.Add(1)
	if o.Success {
		k.successes.Add(1)
	} else {
		k.failures.Add(1)
	}
	k.hist.Observe(o.Elapsed)

	us := o.Elapsed.Microseconds()
	k.sketchMu.Lock()
	if us < k.sketch.LowestTrackableValue() {
		us = k.sketch.LowestTrackableValue()
	}
	if us > k.sketch.HighestTrackableValue() {
		us = k.sketch.HighestTrackableValue()
	}
	_ = k.sketch.RecordValue(us)
	k.sketchMu.Unlock()
}

func (k *kindMetrics) snapshot() KindSnapshot {
	return KindSnapshot{
		Total:     k.total.Load(),
		Successes: k.successes.Load(),
		Failures:  k.failures.Load(),
		Histogram: k.hist.Snapshot(),
	}
}

func (k *kindMetrics) latency() LatencySummary {
	k.sketchMu.Lock()
	defer k.sketchMu.Unlock()

	count := k.sketch.TotalCount()
	if count == 0 {
		return LatencySummary{}
	}
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	s := LatencySummary{
		Count: count,
		Min:   us(k.sketch.Min()),
		Mean:  time.Duration(k.sketch.Mean() * float64(time.Microsecond)),
		P50:   us(k.sketch.ValueAtQuantile(50)),
		P90:   us(k.sketch.ValueAtQuantile(90)),
		P95:   us(k.sketch.ValueAtQuantile(95)),
		P99:   us(k.sketch.ValueAtQuantile(99)),
		Max:   us(k.sketch.Max()),
	}
	s.fillMillis()
	return s
}

// Registry aggregates request outcomes from every worker of a run.
// Counters are atomics; the percentile sketch and failure breakdown each
// sit behind their own short-lived mutex.
type Registry struct {
	writes       *kindMetrics
	reads        *kindMetrics
	skippedReads atomic.Int64

	mu            sync.Mutex
	errorsByType  map[string]int64
	statusBuckets map[string]map[string]int64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		writes:        newKindMetrics(),
		reads:         newKindMetrics(),
		errorsByType:  make(map[string]int64),
		statusBuckets: make(map[string]map[string]int64),
	}
}

func (r *Registry) kind(k Kind) *kindMetrics {
	if k == KindWrite {
		return r.writes
	}
	return r.reads
}

// RecordOutcome counts one completed request.
func (r *Registry) RecordOutcome(o Outcome) {
	r.kind(o.Kind).record(o)
	if o.Success {
		return
	}

	label := ErrorLabel(o.Err)
	r.mu.Lock()
	r.errorsByType[label]++
	if o.StatusCode > 0 {
		codes, ok := r.statusBuckets[o.Kind.String()]
		if !ok {
			codes = make(map[string]int64)
			r.statusBuckets[o.Kind.String()] = codes
		}
		codes[strconv.Itoa(o.StatusCode)]++
	}
	r.mu.Unlock()
}

// RecordSkippedRead counts a read that was not issued because its write failed.
func (r *Registry) RecordSkippedRead() {
	r.skippedReads.Add(1)
}

// KindSnapshot holds the counters for one request kind.
type KindSnapshot struct {
	Total     int64             `json:"total" yaml:"total"`
	Successes int64             `json:"successes" yaml:"successes"`
	Failures  int64             `json:"failures" yaml:"failures"`
	Histogram HistogramSnapshot `json:"-" yaml:"-"`
}

// Snapshot is a read-only copy of the registry counters.
type Snapshot struct {
	Writes       KindSnapshot `json:"writes" yaml:"writes"`
	Reads        KindSnapshot `json:"reads" yaml:"reads"`
	Successes    int64        `json:"successes" yaml:"successes"`
	Failures     int64        `json:"failures" yaml:"failures"`
	SkippedReads int64        `json:"skipped_reads" yaml:"skipped_reads"`
}

// Total is the number of requests that completed.
func (s Snapshot) Total() int64 {
	return s.Writes.Total + s.Reads.Total
}

// Snapshot loads every counter once. Concurrent recording may leave the
// combined totals slightly behind the per-kind ones; it never blocks writers.
func (r *Registry) Snapshot() Snapshot {
	w := r.writes.snapshot()
	rd := r.reads.snapshot()
	return Snapshot{
		Writes:       w,
		Reads:        rd,
		Successes:    w.Successes + rd.Successes,
		Failures:     w.Failures + rd.Failures,
		SkippedReads: r.skippedReads.Load(),
	}
}

// LatencySummary describes the latency distribution of one request kind.
type LatencySummary struct {
	Count int64         `json:"count" yaml:"count"`
	Min   time.Duration `json:"-" yaml:"-"`
	Mean  time.Duration `json:"-" yaml:"-"`
	P50   time.Duration `json:"-" yaml:"-"`
	P90   time.Duration `json:"-" yaml:"-"`
	P95   time.Duration `json:"-" yaml:"-"`
	P99   time.Duration `json:"-" yaml:"-"`
	Max   time.Duration `json:"-" yaml:"-"`

	MinMs  float64 `json:"min_ms" yaml:"min_ms"`
	MeanMs float64 `json:"mean_ms" yaml:"mean_ms"`
	P50Ms  float64 `json:"p50_ms" yaml:"p50_ms"`
	P90Ms  float64 `json:"p90_ms" yaml:"p90_ms"`
	P95Ms  float64 `json:"p95_ms" yaml:"p95_ms"`
	P99Ms  float64 `json:"p99_ms" yaml:"p99_ms"`
	MaxMs  float64 `json:"max_ms" yaml:"max_ms"`
}

func (s *LatencySummary) fillMillis() {
	ms := func(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
	s.MinMs = ms(s.Min)
	s.MeanMs = ms(s.Mean)
	s.P50Ms = ms(s.P50)
	s.P90Ms = ms(s.P90)
	s.P95Ms = ms(s.P95)
	s.P99Ms = ms(s.P99)
	s.MaxMs = ms(s.Max)
}

// Stats are the end-of-run statistics.
type Stats struct {
	Snapshot `yaml:",inline"`

	Duration       time.Duration `json:"-" yaml:"-"`
	DurationMs     float64       `json:"duration_ms" yaml:"duration_ms"`
	RuntimeSeconds int64         `json:"runtime_seconds" yaml:"runtime_seconds"`

	// Throughputs are whole requests per second over RuntimeSeconds.
	WriteThroughput int64 `json:"write_throughput" yaml:"write_throughput"`
	ReadThroughput  int64 `json:"read_throughput" yaml:"read_throughput"`
	Throughput      int64 `json:"throughput" yaml:"throughput"`

	WriteLatency LatencySummary `json:"write_latency" yaml:"write_latency"`
	ReadLatency  LatencySummary `json:"read_latency" yaml:"read_latency"`

	Errors        map[string]int            `json:"errors,omitempty" yaml:"errors,omitempty"`
	StatusBuckets map[string]map[string]int `json:"status_buckets,omitempty" yaml:"status_buckets,omitempty"`
}

// FailureRate is the fraction of completed requests that failed.
func (s Stats) FailureRate() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Failures) / float64(total)
}

// RequestsPerSec is the fractional combined throughput over Duration.
func (s Stats) RequestsPerSec() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Total()) / s.Duration.Seconds()
}

// Stats computes end-of-run statistics over the given wall-clock duration.
func (r *Registry) Stats(elapsed time.Duration) Stats {
	stats := Stats{
		Snapshot:       r.Snapshot(),
		Duration:       elapsed,
		DurationMs:     float64(elapsed) / float64(time.Millisecond),
		RuntimeSeconds: int64(elapsed / time.Second),
		WriteLatency:   r.writes.latency(),
		ReadLatency:    r.reads.latency(),
	}
	if stats.RuntimeSeconds > 0 {
		stats.WriteThroughput = stats.Writes.Total / stats.RuntimeSeconds
		stats.ReadThroughput = stats.Reads.Total / stats.RuntimeSeconds
		stats.Throughput = stats.Total() / stats.RuntimeSeconds
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errorsByType) > 0 {
		stats.Errors = make(map[string]int, len(r.errorsByType))
		for k, v := range r.errorsByType {
			stats.Errors[k] = int(v)
		}
	}
	if len(r.statusBuckets) > 0 {
		stats.StatusBuckets = make(map[string]map[string]int, len(r.statusBuckets))
		for kind, codes := range r.statusBuckets {
			m := make(map[string]int, len(codes))
			for code, v := range codes {
				m[code] = int(v)
			}
			stats.StatusBuckets[kind] = m
		}
	}
	return stats
}
