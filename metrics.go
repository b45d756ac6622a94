package monitorq

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/aradilov/monitorq"

type instruments struct {
	inserts  metric.Int64Counter
	removes  metric.Int64Counter
	timeouts metric.Int64Counter
	warnings metric.Int64Counter
	wait     metric.Float64Histogram

	length  metric.Int64ObservableGauge
	waiters metric.Int64ObservableGauge
	reg     metric.Registration
}

// newInstruments creates the channel instruments on m. observe reports the
// current length and number of waiters.
func newInstruments(m metric.Meter, observe func() (length, waiters int)) (*instruments, error) {
	var (
		in  instruments
		err error
	)

	in.inserts, err = m.Int64Counter(
		"monitorq.inserts",
		metric.WithDescription("Total successful inserts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating inserts counter: %w", err)
	}

	in.removes, err = m.Int64Counter(
		"monitorq.removes",
		metric.WithDescription("Total successful removes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating removes counter: %w", err)
	}

	in.timeouts, err = m.Int64Counter(
		"monitorq.timeouts",
		metric.WithDescription("Total inserts and removes that timed out"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating timeouts counter: %w", err)
	}

	in.warnings, err = m.Int64Counter(
		"monitorq.deadlock.warnings",
		metric.WithDescription("Waiters reported blocked past the deadlock threshold"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating deadlock warnings counter: %w", err)
	}

	in.wait, err = m.Float64Histogram(
		"monitorq.wait.duration",
		metric.WithDescription("Time a successful operation spent waiting"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating wait histogram: %w", err)
	}

	in.length, err = m.Int64ObservableGauge(
		"monitorq.length",
		metric.WithDescription("Current number of buffered items"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating length gauge: %w", err)
	}

	in.waiters, err = m.Int64ObservableGauge(
		"monitorq.waiters",
		metric.WithDescription("Current number of blocked callers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating waiters gauge: %w", err)
	}

	in.reg, err = m.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			length, waiters := observe()
			o.ObserveInt64(in.length, int64(length))
			o.ObserveInt64(in.waiters, int64(waiters))
			return nil
		},
		in.length, in.waiters,
	)
	if err != nil {
		return nil, fmt.Errorf("registering gauge callback: %w", err)
	}

	return &in, nil
}

func (in *instruments) unregister() error {
	return in.reg.Unregister()
}

// observe is the gauge callback of c.
func (c *Channel[T]) observe() (length, waiters int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.len(), len(c.waiters)
}
