package metrics

import (
	"sync/atomic"
	"time"
)

const (
	// BucketWidthMs is the latency span covered by one histogram bucket.
	BucketWidthMs = 10
	// BucketCount is the number of fixed-width buckets before overflow.
	BucketCount = 500
	// OverflowThresholdMs is the smallest latency counted as overflow.
	OverflowThresholdMs = BucketWidthMs * BucketCount
)

// BucketIndex returns the bucket a latency in milliseconds falls into.
// Latencies at or above OverflowThresholdMs return BucketCount.
func BucketIndex(ms int64) int {
	if ms < 0 {
		ms = 0
	}
	if ms >= OverflowThresholdMs {
		return BucketCount
	}
	return int(ms / BucketWidthMs)
}

// Histogram counts latencies in 10 ms buckets with a single overflow slot.
// The zero value is ready to use and safe for concurrent Observe calls.
type Histogram struct {
	buckets  [BucketCount]atomic.Int64
	overflow atomic.Int64
}

// Observe records one latency.
func (h *Histogram) Observe(d time.Duration) {
	h.ObserveMillis(d.Milliseconds())
}

// ObserveMillis records one latency expressed in whole milliseconds.
func (h *Histogram) ObserveMillis(ms int64) {
	idx := BucketIndex(ms)
	if idx == BucketCount {
		h.overflow.Add(1)
		return
	}
	h.buckets[idx].Add(1)
}

// Snapshot copies the current bucket counts.
func (h *Histogram) Snapshot() HistogramSnapshot {
	snap := HistogramSnapshot{Buckets: make([]int64, BucketCount)}
	for i := range h.buckets {
		snap.Buckets[i] = h.buckets[i].Load()
	}
	snap.Overflow = h.overflow.Load()
	return snap
}

// HistogramSnapshot is a point-in-time copy of a Histogram.
type HistogramSnapshot struct {
	Buckets  []int64 `json:"-" yaml:"-"`
	Overflow int64   `json:"overflow" yaml:"overflow"`
}

// BucketRow is one non-empty histogram bucket.
type BucketRow struct {
	Index int   `json:"index" yaml:"index"`
	Count int64 `json:"count" yaml:"count"`
}

// Rows lists the non-empty buckets in index order, excluding overflow.
func (s HistogramSnapshot) Rows() []BucketRow {
	var rows []BucketRow
	for i, c := range s.Buckets {
		if c != 0 {
			rows = append(rows, BucketRow{Index: i, Count: c})
		}
	}
	return rows
}

// Total is the sum of all buckets plus overflow.
func (s HistogramSnapshot) Total() int64 {
	total := s.Overflow
	for _, c := range s.Buckets {
		total += c
	}
	return total
}
