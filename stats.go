package monitorq

import (
	"context"
	"time"
)

// Stats is a point-in-time copy of the channel counters.
type Stats struct {
	Inserts  uint64
	Removes  uint64
	Timeouts uint64

	// MeanWait is the mean time a successful Insert or Remove spent between
	// entry and completion.
	MeanWait time.Duration
	// Elapsed is the time since New.
	Elapsed time.Duration
	// Throughput is (Inserts+Removes) per second of Elapsed.
	Throughput float64

	Len     int
	Cap     int
	Waiters int
	Closed  bool

	DeadlockWarnings   uint64
	PriorityInversions uint64
}

// Stats returns a consistent snapshot of the counters. It never blocks on the
// channel's conditions.
func (c *Channel[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.start)
	s := Stats{
		Inserts:            c.inserts,
		Removes:            c.removes,
		Timeouts:           c.timeouts,
		MeanWait:           time.Duration(c.meanWait * float64(time.Second)),
		Elapsed:            elapsed,
		Len:                c.buf.len(),
		Cap:                c.buf.cap(),
		Waiters:            len(c.waiters),
		Closed:             c.closed,
		DeadlockWarnings:   c.warnings,
		PriorityInversions: c.inversions,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		s.Throughput = float64(c.inserts+c.removes) / secs
	}
	return s
}

// completed folds the wait of a successful operation into the running mean.
// Call after the insert/remove counter is bumped. c.mu must be held.
func (c *Channel[T]) completed(ctx context.Context, wait time.Duration) {
	n := c.inserts + c.removes
	c.meanWait += (wait.Seconds() - c.meanWait) / float64(n)
	c.ownerPriority = PriorityFrom(ctx)
	c.metrics.wait.Record(ctx, wait.Seconds())
}
