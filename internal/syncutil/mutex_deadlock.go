//go:build deadlock

// Package syncutil provides the mutex used by the channel, with optional
// deadlock detection. Build with -tags=deadlock to enable it.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockEnabled is true if the deadlock detector is compiled in.
const DeadlockEnabled = true

func init() {
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
}

// A Mutex is a mutual exclusion lock that reports lock-order violations and
// locks held longer than deadlock.Opts.DeadlockTimeout.
type Mutex struct {
	deadlock.Mutex
}
