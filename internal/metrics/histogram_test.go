package metrics_test

import (
	"sync"
	"testing"
	"time"

	"github.com/torosent/skierload/internal/metrics"
)

func TestBucketIndex(t *testing.T) {
	tests := []struct {
		ms   int64
		want int
	}{
		{-3, 0},
		{0, 0},
		{9, 0},
		{10, 1},
		{47, 4},
		{4989, 498},
		{4999, 499},
		{5000, metrics.BucketCount},
		{120000, metrics.BucketCount},
	}
	for _, tt := range tests {
		if got := metrics.BucketIndex(tt.ms); got != tt.want {
			t.Errorf("BucketIndex(%d) = %d, want %d", tt.ms, got, tt.want)
		}
	}
}

func TestHistogramObserve(t *testing.T) {
	var h metrics.Histogram
	h.Observe(47 * time.Millisecond)
	h.Observe(49 * time.Millisecond)
	h.Observe(4999 * time.Millisecond)
	h.Observe(5 * time.Second)
	h.Observe(7 * time.Second)

	snap := h.Snapshot()
	if snap.Buckets[4] != 2 {
		t.Errorf("bucket 4 = %d, want 2", snap.Buckets[4])
	}
	if snap.Buckets[499] != 1 {
		t.Errorf("bucket 499 = %d, want 1", snap.Buckets[499])
	}
	if snap.Overflow != 2 {
		t.Errorf("overflow = %d, want 2", snap.Overflow)
	}
	if snap.Total() != 5 {
		t.Errorf("Total() = %d, want 5", snap.Total())
	}

	rows := snap.Rows()
	want := []metrics.BucketRow{{Index: 4, Count: 2}, {Index: 499, Count: 1}}
	if len(rows) != len(want) {
		t.Fatalf("Rows() = %v, want %v", rows, want)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("Rows()[%d] = %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestHistogramConcurrentObserve(t *testing.T) {
	var h metrics.Histogram
	var wg sync.WaitGroup
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				h.ObserveMillis(int64((g*500 + i) % 6000))
			}
		}(g)
	}
	wg.Wait()

	if got := h.Snapshot().Total(); got != 10000 {
		t.Fatalf("Total() = %d, want 10000", got)
	}
}
