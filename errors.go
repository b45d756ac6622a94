package monitorq

import "errors"

var (
	// ErrInvalidCapacity is returned by New for a capacity <= 0.
	ErrInvalidCapacity = errors.New("capacity must be > 0")

	// ErrTimeout is returned when the caller's deadline expires while waiting
	// for space or data. It is retryable.
	ErrTimeout = errors.New("timeout")

	// ErrClosed is returned once the channel is closed (and, for removes, drained).
	// Callers must stop issuing operations.
	ErrClosed = errors.New("channel is closed")

	// ErrFull is returned by TryInsert when there is no free slot.
	ErrFull = errors.New("channel is full")

	// ErrEmpty is returned by TryRemove when there is nothing buffered.
	ErrEmpty = errors.New("channel is empty")

	// ErrInternal reports a broken invariant of the channel itself.
	// It is not recoverable.
	ErrInternal = errors.New("internal error")
)
