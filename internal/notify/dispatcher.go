// Package notify delivers domain events to subscribers outside the engine.
// Services hand events to a Dispatcher, which queues them and fans each one
// out to every registered Sink on its own goroutine, so a slow or failing
// subscriber never holds up a trade or a resolution.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/domain"
)

// Sink receives dispatched events. Publish should honour ctx; the
// dispatcher bounds every call with the configured publish timeout.
type Sink interface {
	Name() string
	Publish(ctx context.Context, evt domain.Event) error
}

// Stats counts what happened to notified events.
type Stats struct {
	Queued    int   `json:"queued"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Dispatcher is a buffered, best-effort event fan-out. Notify never blocks:
// when the buffer is full the event is dropped and counted.
type Dispatcher struct {
	queue   chan domain.Event
	timeout time.Duration
	log     *slog.Logger

	mu    sync.RWMutex
	sinks []Sink

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewDispatcher creates a Dispatcher sized by cfg.
func NewDispatcher(cfg config.NotifyConfig, log *slog.Logger, sinks ...Sink) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1024
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Dispatcher{
		queue:   make(chan domain.Event, size),
		timeout: timeout,
		log:     log,
		sinks:   sinks,
	}
}

// AddSink registers s for every event dispatched from now on.
func (d *Dispatcher) AddSink(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, s)
}

// Notify queues evt for delivery.
func (d *Dispatcher) Notify(evt domain.Event) {
	select {
	case d.queue <- evt:
	default:
		n := d.dropped.Add(1)
		d.log.Warn("notify: queue full, event dropped",
			"event_type", evt.Type, "event_id", evt.ID, "dropped_total", n)
	}
}

// Run delivers queued events until ctx is cancelled, then drains whatever
// is still buffered before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info("notify: dispatcher started", "buffer", cap(d.queue))
	for {
		select {
		case evt := <-d.queue:
			d.deliver(context.Background(), evt)
		case <-ctx.Done():
			d.drain()
			d.log.Info("notify: dispatcher stopped", "delivered", d.delivered.Load(), "dropped", d.dropped.Load())
			return nil
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case evt := <-d.queue:
			d.deliver(context.Background(), evt)
		default:
			return
		}
	}
}

// deliver publishes evt to every sink concurrently and waits for all of them.
func (d *Dispatcher) deliver(parent context.Context, evt domain.Event) {
	d.mu.RLock()
	sinks := append([]Sink(nil), d.sinks...)
	d.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(parent, d.timeout)
			defer cancel()

			if err := s.Publish(ctx, evt); err != nil {
				d.failed.Add(1)
				d.log.Warn("notify: sink publish failed",
					"sink", s.Name(), "event_type", evt.Type, "event_id", evt.ID, "err", err)
				return
			}
			d.delivered.Add(1)
		}(s)
	}
	wg.Wait()
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Queued:    len(d.queue),
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}
