// Package monitorq implements a bounded, monitor-style FIFO channel for
// producer/consumer goroutines.
//
// A Channel is created once with a fixed capacity and shared by pointer.
// Insert and Remove block while the channel is full or empty; the wait is
// bounded by the caller's context, and a context that expires first yields
// ErrTimeout. Close releases every blocked caller with ErrClosed while leaving
// buffered items available to Remove.
//
// Callers that stay blocked longer than a threshold are reported through the
// channel's zerolog logger. The report is a liveness hint only: nothing is
// unblocked or failed because of it.
//
//	c, err := monitorq.New[int](10, monitorq.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	go c.Watch(ctx, time.Second)
//
//	err = c.InsertTimeout(42, time.Second)
//	switch {
//	case errors.Is(err, monitorq.ErrTimeout):
//		// retry
//	case errors.Is(err, monitorq.ErrClosed):
//		// stop
//	}
package monitorq
