//go:build !deadlock

// Package syncutil provides the mutex used by the channel, with optional
// deadlock detection. Build with -tags=deadlock to enable it.
package syncutil

import "sync"

// DeadlockEnabled is true if the deadlock detector is compiled in.
const DeadlockEnabled = false

// A Mutex is a mutual exclusion lock.
type Mutex struct {
	sync.Mutex
}
