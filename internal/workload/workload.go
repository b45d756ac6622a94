// Package workload drives a bounded channel with producer and consumer
// goroutines and reports what happened.
//
// Producers and consumers follow the channel contract: ErrTimeout is retried,
// ErrClosed ends the loop. The channel is closed exactly once, by Run, after
// every producer has stopped; consumers then drain what is left.
package workload

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fastrand"
	"golang.org/x/sync/errgroup"

	"github.com/aradilov/monitorq"
)

// Channel is the part of *monitorq.Channel[int] the workload uses.
type Channel interface {
	Insert(ctx context.Context, item int) error
	Remove(ctx context.Context) (int, error)
	Close()
	Stats() monitorq.Stats
	Watch(ctx context.Context, interval time.Duration)
}

// Config describes one run.
type Config struct {
	Producers int
	Consumers int
	// Items per producer. 0 produces until the context passed to Run is done.
	Items int

	// Per-operation timeouts; 0 waits forever.
	InsertTimeout time.Duration
	RemoveTimeout time.Duration

	// Upper bounds of the random pause after each operation.
	ProduceDelay time.Duration
	ConsumeDelay time.Duration

	// WatchdogInterval enables the background deadlock scan when > 0.
	WatchdogInterval time.Duration
}

// StressCapacity is the channel capacity the stress scenario runs with.
const StressCapacity = 10

// Stress returns the stress scenario: 4 producers and 4 consumers moving 500
// items each through the channel without timeouts.
func Stress() Config {
	return Config{
		Producers:    4,
		Consumers:    4,
		Items:        500,
		ProduceDelay: time.Millisecond,
		ConsumeDelay: time.Millisecond,
	}
}

// Report summarizes a run.
type Report struct {
	Produced      uint64
	Consumed      uint64
	InsertRetries uint64
	RemoveRetries uint64

	// Stats is the channel snapshot taken after every goroutine stopped.
	Stats monitorq.Stats
}

type counters struct {
	produced      atomic.Uint64
	consumed      atomic.Uint64
	insertRetries atomic.Uint64
	removeRetries atomic.Uint64
}

// Run starts the producers and consumers and waits for all of them.
// Producers stop when their quota is reached or ctx is done. The channel is
// closed once they have all stopped; consumers stop when it is drained.
func Run(ctx context.Context, ch Channel, cfg Config, log zerolog.Logger) (Report, error) {
	var c counters

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	watch := make(chan struct{})
	go func() {
		defer close(watch)
		if cfg.WatchdogInterval > 0 {
			ch.Watch(watchCtx, cfg.WatchdogInterval)
		}
	}()

	// A failing consumer stops the producers too, or they could block forever
	// on a full channel.
	runCtx, abort := context.WithCancel(ctx)
	defer abort()

	producers, pctx := errgroup.WithContext(runCtx)
	for id := 0; id < cfg.Producers; id++ {
		id := id
		producers.Go(func() error {
			return produce(pctx, ch, id, cfg, log, &c)
		})
	}

	// Consumers outlive ctx: they stop on ErrClosed once the channel is drained.
	drain := context.WithoutCancel(ctx)
	var consumers errgroup.Group
	for id := 0; id < cfg.Consumers; id++ {
		id := id
		consumers.Go(func() error {
			err := consume(drain, ch, id, cfg, log, &c)
			if err != nil {
				abort()
			}
			return err
		})
	}

	perr := producers.Wait()
	ch.Close()
	cerr := consumers.Wait()
	stopWatch()
	<-watch

	r := Report{
		Produced:      c.produced.Load(),
		Consumed:      c.consumed.Load(),
		InsertRetries: c.insertRetries.Load(),
		RemoveRetries: c.removeRetries.Load(),
		Stats:         ch.Stats(),
	}
	return r, errors.Join(perr, cerr)
}

func produce(ctx context.Context, ch Channel, id int, cfg Config, log zerolog.Logger, c *counters) error {
	log = log.With().Int("producer", id).Logger()
	// mimic mixed-priority producers; only feeds the inversion counter
	ctx = monitorq.WithPriority(ctx, id%3)

	for n := 0; cfg.Items == 0 || n < cfg.Items; {
		if ctx.Err() != nil {
			return nil
		}

		item := int(fastrand.Uint32n(100))
		err := withTimeout(ctx, cfg.InsertTimeout, func(ctx context.Context) error {
			return ch.Insert(ctx, item)
		})
		switch {
		case err == nil:
			n++
			c.produced.Add(1)
			log.Debug().Int("item", item).Msg("inserted")
		case errors.Is(err, monitorq.ErrClosed):
			return nil
		case errors.Is(err, monitorq.ErrTimeout):
			if ctx.Err() != nil {
				return nil
			}
			c.insertRetries.Add(1)
			log.Info().Msg("insert timed out, retrying")
			continue
		default:
			return fmt.Errorf("producer %d: %w", id, err)
		}

		if pause(ctx, cfg.ProduceDelay) != nil {
			return nil
		}
	}
	return nil
}

func consume(ctx context.Context, ch Channel, id int, cfg Config, log zerolog.Logger, c *counters) error {
	log = log.With().Int("consumer", id).Logger()

	for {
		var item int
		err := withTimeout(ctx, cfg.RemoveTimeout, func(ctx context.Context) error {
			var err error
			item, err = ch.Remove(ctx)
			return err
		})
		switch {
		case err == nil:
			c.consumed.Add(1)
			log.Debug().Int("item", item).Msg("removed")
		case errors.Is(err, monitorq.ErrClosed):
			return nil
		case errors.Is(err, monitorq.ErrTimeout):
			c.removeRetries.Add(1)
			log.Info().Msg("remove timed out, retrying")
			continue
		default:
			return fmt.Errorf("consumer %d: %w", id, err)
		}

		_ = pause(ctx, cfg.ConsumeDelay)
	}
}

func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

// pause sleeps for a random duration in [0, limit), or until ctx is done.
func pause(ctx context.Context, limit time.Duration) error {
	us := uint32(limit / time.Microsecond)
	if us == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(fastrand.Uint32n(us)) * time.Microsecond)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Check verifies the invariants a run without an interrupted context must end
// with.
func (r Report) Check(cfg Config) error {
	var errs []error
	s := r.Stats

	if cfg.Items > 0 {
		if want := uint64(cfg.Producers * cfg.Items); r.Produced != want {
			errs = append(errs, fmt.Errorf("produced %d items, expected %d", r.Produced, want))
		}
	}
	if r.Consumed != r.Produced {
		errs = append(errs, fmt.Errorf("consumed %d items, produced %d", r.Consumed, r.Produced))
	}
	if s.Inserts != r.Produced || s.Removes != r.Consumed {
		errs = append(errs, fmt.Errorf("channel counted %d inserts and %d removes, workload %d and %d",
			s.Inserts, s.Removes, r.Produced, r.Consumed))
	}
	if int64(s.Inserts)-int64(s.Removes) != int64(s.Len) {
		errs = append(errs, fmt.Errorf("inserts-removes = %d, buffer holds %d", int64(s.Inserts)-int64(s.Removes), s.Len))
	}
	if s.Len < 0 || s.Len > s.Cap {
		errs = append(errs, fmt.Errorf("buffer length %d outside [0, %d]", s.Len, s.Cap))
	}
	if s.Waiters != 0 {
		errs = append(errs, fmt.Errorf("%d waiters still registered", s.Waiters))
	}
	if cfg.InsertTimeout == 0 && cfg.RemoveTimeout == 0 && s.Timeouts != 0 {
		errs = append(errs, fmt.Errorf("%d timeouts with timeouts disabled", s.Timeouts))
	}
	return errors.Join(errs...)
}

// Log writes the final statistics.
func (r Report) Log(log zerolog.Logger) {
	s := r.Stats
	log.Info().
		Dur("runtime", s.Elapsed).
		Uint64("insertions", s.Inserts).
		Uint64("removals", s.Removes).
		Uint64("timeouts", s.Timeouts).
		Dur("avg_wait", s.MeanWait).
		Float64("ops_per_sec", s.Throughput).
		Int("buffered", s.Len).
		Uint64("deadlock_warnings", s.DeadlockWarnings).
		Uint64("priority_inversions", s.PriorityInversions).
		Uint64("insert_retries", r.InsertRetries).
		Uint64("remove_retries", r.RemoveRetries).
		Msg("monitor statistics")
}
