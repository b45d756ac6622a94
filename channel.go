package monitorq

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/aradilov/monitorq/internal/syncutil"
)

// DefaultDeadlockThreshold is how long a waiter may stay blocked before the
// deadlock scan reports it.
const DefaultDeadlockThreshold = 5 * time.Second

// Channel is a bounded FIFO shared by producer and consumer goroutines.
//
// All state is guarded by a single mutex. Insert and Remove block on a
// condition while the buffer is full (empty), releasing the mutex, and re-check
// the condition after every wakeup. A blocked call gives up when its context
// is done or the channel is closed.
//
// Blocked calls are tracked for diagnostics only: a call blocked longer than
// the deadlock threshold is logged, never interrupted.
type Channel[T any] struct {
	mu syncutil.Mutex

	buf    ring[T]
	closed bool
	done   chan struct{} // closed by Close, stops Watch

	notFull  *cond
	notEmpty *cond

	waiters   map[uint64]*Waiter
	nextID    uint64
	threshold time.Duration
	log       zerolog.Logger

	start         time.Time
	inserts       uint64
	removes       uint64
	timeouts      uint64
	warnings      uint64
	inversions    uint64
	meanWait      float64 // seconds, running mean over successful operations
	ownerPriority int     // priority of the last operation that completed

	metrics *instruments
}

type options struct {
	log       zerolog.Logger
	threshold time.Duration
	mp        metric.MeterProvider
}

// Option configures a Channel.
type Option func(*options)

// WithLogger sets the logger used for deadlock warnings and debug output.
// The default logger discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithDeadlockThreshold sets how long a waiter may block before it is reported.
// A threshold <= 0 disables the scan.
func WithDeadlockThreshold(d time.Duration) Option {
	return func(o *options) {
		o.threshold = d
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider.
// Defaults to the global provider, which is a no-op unless configured.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.mp = mp
	}
}

// New creates an empty, open channel holding at most capacity items.
func New[T any](capacity int, opts ...Option) (*Channel[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	o := options{
		log:       zerolog.Nop(),
		threshold: DefaultDeadlockThreshold,
		mp:        otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Channel[T]{
		buf:       newRing[T](capacity),
		done:      make(chan struct{}),
		notFull:   newCond(),
		notEmpty:  newCond(),
		waiters:   make(map[uint64]*Waiter),
		threshold: o.threshold,
		log:       o.log,
		start:     time.Now(),
	}

	m, err := newInstruments(o.mp.Meter(instrumentationName), c.observe)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	c.metrics = m

	return c, nil
}

// Insert appends item at the tail, blocking while the channel is full.
// The wait is bounded by ctx: when ctx is done first, Insert returns an error
// matching ErrTimeout and leaves the buffer untouched.
// Returns ErrClosed if the channel is closed on entry or while waiting.
// Safe to call concurrently from many goroutines.
func (c *Channel[T]) Insert(ctx context.Context, item T) error {
	start := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if c.buf.full() {
		w := c.join(ctx, RoleInserter)
		defer c.leave(w)

		for c.buf.full() && !c.closed {
			c.scan(time.Now())
			if err := c.notFull.wait(ctx, &c.mu); err != nil {
				return c.timedOut(ctx, w, err)
			}
		}
		if c.closed {
			return ErrClosed
		}
	}

	if !c.buf.push(item) {
		return fmt.Errorf("%w: push on a full buffer", ErrInternal)
	}
	c.inserts++
	c.metrics.inserts.Add(ctx, 1)
	c.completed(ctx, time.Since(start))

	// one slot filled, one remover can proceed
	c.notEmpty.signal()
	return nil
}

// Remove pops the item at the head, blocking while the channel is empty.
// The wait is bounded by ctx: when ctx is done first, Remove returns an error
// matching ErrTimeout.
// A closed channel keeps handing out buffered items; ErrClosed is returned
// only once it is closed and empty.
// Safe to call concurrently from many goroutines.
func (c *Channel[T]) Remove(ctx context.Context) (T, error) {
	var zero T
	start := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buf.empty() {
		if c.closed {
			return zero, ErrClosed
		}

		w := c.join(ctx, RoleRemover)
		defer c.leave(w)

		for c.buf.empty() && !c.closed {
			c.scan(time.Now())
			if err := c.notEmpty.wait(ctx, &c.mu); err != nil {
				return zero, c.timedOut(ctx, w, err)
			}
		}
		if c.buf.empty() {
			return zero, ErrClosed
		}
	}

	v, ok := c.buf.pop()
	if !ok {
		return zero, fmt.Errorf("%w: pop on an empty buffer", ErrInternal)
	}
	c.removes++
	c.metrics.removes.Add(ctx, 1)
	c.completed(ctx, time.Since(start))

	// one slot freed, one inserter can proceed
	c.notFull.signal()
	return v, nil
}

// InsertTimeout is Insert with a relative timeout. d <= 0 waits forever.
func (c *Channel[T]) InsertTimeout(item T, d time.Duration) error {
	ctx, cancel := timeoutContext(d)
	defer cancel()
	return c.Insert(ctx, item)
}

// RemoveTimeout is Remove with a relative timeout. d <= 0 waits forever.
func (c *Channel[T]) RemoveTimeout(d time.Duration) (T, error) {
	ctx, cancel := timeoutContext(d)
	defer cancel()
	return c.Remove(ctx)
}

// TryInsert appends item without blocking.
// Returns ErrFull if there is no free slot.
func (c *Channel[T]) TryInsert(item T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if !c.buf.push(item) {
		return ErrFull
	}
	c.inserts++
	c.metrics.inserts.Add(context.Background(), 1)
	c.completed(context.Background(), 0)
	c.notEmpty.signal()
	return nil
}

// TryRemove pops the head item without blocking.
// Returns ErrEmpty if nothing is buffered, ErrClosed if closed and drained.
func (c *Channel[T]) TryRemove() (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.buf.pop()
	if !ok {
		if c.closed {
			return v, ErrClosed
		}
		return v, ErrEmpty
	}
	c.removes++
	c.metrics.removes.Add(context.Background(), 1)
	c.completed(context.Background(), 0)
	c.notFull.signal()
	return v, nil
}

// Close marks the channel closed and wakes every blocked caller.
// Buffered items stay available to Remove. Close is idempotent.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.notFull.broadcast()
	c.notEmpty.broadcast()
	c.log.Debug().
		Int("buffered", c.buf.len()).
		Int("waiters", len(c.waiters)).
		Msg("channel closed")
	c.mu.Unlock()

	// The gauge callback takes c.mu, so unregister outside of it.
	if err := c.metrics.unregister(); err != nil {
		c.log.Error().Err(err).Msg("unregister metrics callback")
	}
}

// Len returns the number of buffered items.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.len()
}

// Cap returns the fixed capacity.
func (c *Channel[T]) Cap() int {
	return c.buf.cap()
}

// timedOut finishes a blocked call whose context ended first.
// Closure wins over the deadline: a caller woken by Close gets ErrClosed.
func (c *Channel[T]) timedOut(ctx context.Context, w *Waiter, err error) error {
	if c.closed {
		return ErrClosed
	}
	c.timeouts++
	c.metrics.timeouts.Add(ctx, 1)
	c.log.Debug().
		Uint64("waiter", w.ID).
		Stringer("role", w.Role).
		Dur("waited", time.Since(w.JoinedAt)).
		Msg("wait timed out")
	return fmt.Errorf("%w: %w", ErrTimeout, err)
}

func timeoutContext(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.Background(), func() {}
	}
	return context.WithTimeout(context.Background(), d)
}
