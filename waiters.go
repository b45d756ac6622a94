package monitorq

import (
	"context"
	"sort"
	"time"
)

// Role tells which condition a blocked caller waits for.
type Role int

const (
	// RoleInserter waits for a free slot.
	RoleInserter Role = iota
	// RoleRemover waits for a buffered item.
	RoleRemover
)

func (r Role) String() string {
	switch r {
	case RoleInserter:
		return "inserter"
	case RoleRemover:
		return "remover"
	default:
		return "unknown"
	}
}

// Waiter describes a call currently blocked inside Insert or Remove.
type Waiter struct {
	ID       uint64
	Role     Role
	JoinedAt time.Time
	Priority int

	lastWarn time.Time
}

type priorityKey struct{}

// WithPriority tags the operations run with ctx with priority p.
// Priorities only feed the PriorityInversions counter; they never change
// which waiter is woken.
func WithPriority(ctx context.Context, p int) context.Context {
	return context.WithValue(ctx, priorityKey{}, p)
}

// PriorityFrom returns the priority set by WithPriority, or 0.
func PriorityFrom(ctx context.Context) int {
	p, _ := ctx.Value(priorityKey{}).(int)
	return p
}

// join registers the calling operation as blocked. c.mu must be held.
func (c *Channel[T]) join(ctx context.Context, role Role) *Waiter {
	c.nextID++
	w := &Waiter{
		ID:       c.nextID,
		Role:     role,
		JoinedAt: time.Now(),
		Priority: PriorityFrom(ctx),
	}
	c.waiters[w.ID] = w

	// Best effort: a higher priority caller is about to wait on progress made
	// by lower priority ones. Nothing is boosted.
	if w.Priority > c.ownerPriority {
		c.inversions++
		c.log.Debug().
			Uint64("waiter", w.ID).
			Int("priority", w.Priority).
			Int("owner_priority", c.ownerPriority).
			Msg("priority inversion")
	}
	return w
}

// leave deregisters w. c.mu must be held.
func (c *Channel[T]) leave(w *Waiter) {
	delete(c.waiters, w.ID)
}

// scan logs every waiter blocked longer than the deadlock threshold, at most
// once per threshold period per waiter. c.mu must be held.
func (c *Channel[T]) scan(now time.Time) {
	if c.threshold <= 0 {
		return
	}
	for _, w := range c.waiters {
		waited := now.Sub(w.JoinedAt)
		if waited <= c.threshold || now.Sub(w.lastWarn) < c.threshold {
			continue
		}
		w.lastWarn = now
		c.warnings++
		c.metrics.warnings.Add(context.Background(), 1)
		c.log.Warn().
			Uint64("waiter", w.ID).
			Stringer("role", w.Role).
			Int("priority", w.Priority).
			Dur("waited", waited).
			Int("buffered", c.buf.len()).
			Msg("potential deadlock: waiter blocked past threshold")
	}
}

// Watch runs the deadlock scan every interval until ctx is done or the channel
// is closed. The scan inside Insert and Remove only runs when a waiter wakes
// up, so a channel where nothing moves needs Watch to report anything.
// interval <= 0 uses the deadlock threshold.
func (c *Channel[T]) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.threshold
	}
	if interval <= 0 {
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case now := <-t.C:
			c.mu.Lock()
			c.scan(now)
			c.mu.Unlock()
		}
	}
}

// Waiters returns a copy of the blocked calls, oldest first.
func (c *Channel[T]) Waiters() []Waiter {
	c.mu.Lock()
	ws := make([]Waiter, 0, len(c.waiters))
	for _, w := range c.waiters {
		ws = append(ws, *w)
	}
	c.mu.Unlock()

	sort.Slice(ws, func(i, j int) bool {
		return ws[i].JoinedAt.Before(ws[j].JoinedAt) ||
			ws[i].JoinedAt.Equal(ws[j].JoinedAt) && ws[i].ID < ws[j].ID
	})
	return ws
}
