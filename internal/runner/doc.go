// Package runner drives the write-then-read workload against the lift ride service.
//
// A [Pool] splits skier ids [1, skiers] into one contiguous [Range] per
// thread with [Partition] and launches an [Issuer] for each:
//
//	pool := runner.NewPool(runner.Options{
//		Threads:  32,
//		Skiers:   20000,
//		Lifts:    40,
//		Target:   client,
//		Registry: reg,
//	})
//	stop := runner.NewStopSignal()
//	group := pool.Launch(ctx, stop)
//	// later
//	stop.Fire()
//	group.Wait()
//
// Each iteration writes a random ride and, when the write succeeded and the
// run has not been stopped, reads it back by the returned id. A failed write
// skips its read and counts it with [metrics.Registry.RecordSkippedRead].
//
// # Stopping
//
// [StopSignal] is polled at the top of every iteration and before each read.
// In-flight requests always finish; only [Pacer] waits are abandoned.
//
// # Middleware
//
// [WithLogging] wraps a [Target] to report failures to a [FailureLogger].
package runner
