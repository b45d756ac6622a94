package monitorq

import (
	"context"
	"sync"

	"github.com/eapache/queue"
)

// waitEntry is one parked goroutine. notify has room for exactly one wakeup,
// so a signal never blocks the signaller.
// woken and cancelled are guarded by the lock passed to cond.wait.
type waitEntry struct {
	notify    chan struct{}
	woken     bool
	cancelled bool
}

// cond is a condition variable whose Wait is bounded by a context.
// All methods must be called with the associated lock held.
type cond struct {
	entries   *queue.Queue
	cancelled int // cancelled entries still sitting in entries
}

func newCond() *cond {
	return &cond{entries: queue.New()}
}

// wait atomically unlocks l and parks until signal/broadcast or ctx is done.
// l is locked again before wait returns, in both cases.
// A nil error does not mean the predicate holds: callers re-check it in a loop.
func (c *cond) wait(ctx context.Context, l sync.Locker) error {
	e := &waitEntry{notify: make(chan struct{}, 1)}
	c.entries.Add(e)
	l.Unlock()

	select {
	case <-e.notify:
		l.Lock()
		return nil
	case <-ctx.Done():
		l.Lock()
	}

	if e.woken {
		// Signalled and timed out at the same time. We give up, so hand the
		// wakeup to somebody else or it is lost.
		c.signal()
	} else {
		e.cancelled = true
		c.cancelled++
		c.compact()
	}
	return ctx.Err()
}

// signal wakes one live waiter, if any.
// Returns true if a waiter was woken.
func (c *cond) signal() bool {
	for c.entries.Length() > 0 {
		e := c.entries.Remove().(*waitEntry)
		if e.cancelled {
			c.cancelled--
			continue
		}
		e.woken = true
		e.notify <- struct{}{}
		return true
	}
	return false
}

// broadcast wakes every live waiter.
func (c *cond) broadcast() {
	for c.signal() {
	}
}

// len returns the number of live waiters.
func (c *cond) len() int {
	return c.entries.Length() - c.cancelled
}

// compact drops cancelled entries once they make up more than half the queue,
// so a channel that only ever times out does not grow without bound.
func (c *cond) compact() {
	n := c.entries.Length()
	if c.cancelled*2 <= n {
		return
	}
	live := queue.New()
	for i := 0; i < n; i++ {
		e := c.entries.Remove().(*waitEntry)
		if !e.cancelled {
			live.Add(e)
		}
	}
	c.entries = live
	c.cancelled = 0
}
