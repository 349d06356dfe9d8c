// Package metrics aggregates the outcome of every request a load run issues.
//
// A single [Registry] is shared by all workers. Each completed request is
// recorded once through [Registry.RecordOutcome]:
//
//	reg := metrics.NewRegistry()
//	reg.RecordOutcome(metrics.Outcome{
//		Kind:      metrics.KindWrite,
//		Success:   true,
//		Elapsed:   47 * time.Millisecond,
//		ResultKey: 12,
//	})
//
// Per-kind counters are atomics and every outcome lands in exactly one slot
// of a fixed [Histogram] of 500 buckets, 10 ms wide, plus an overflow slot
// for latencies of 5 s or more. A percentile sketch backed by hdrhistogram
// provides mean, p50, p90, p95 and p99 for the final report.
//
// # Snapshots
//
// [Registry.Snapshot] loads each counter once and is safe to call while
// workers are still recording; progress reporting uses it every tick.
// [Registry.Stats] adds wall-clock duration, whole-second throughput and
// latency summaries at the end of a run.
//
// # Prometheus
//
// [Exporter] serves the registry in the Prometheus exposition format while a
// run is in progress.
package metrics
