// Package telemetry records fire-and-forget product events. Tracking never
// blocks the caller and never fails it: events that cannot be buffered are
// dropped and counted.
package telemetry

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JaimeStill/casestudio/pkg/lifecycle"
)

// Event is a single named occurrence. Key identifies the subject of the
// event (for generations, the prompt type).
type Event struct {
	Name     string         `json:"name"`
	Key      string         `json:"key"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Time     time.Time      `json:"time"`
}

// Sink accepts events. Implementations must return promptly and must not
// panic on any input.
type Sink interface {
	Track(e Event)
}

// Nop discards every event.
type Nop struct{}

// Track implements Sink.
func (Nop) Track(Event) {}

// Func adapts a function to a Sink.
type Func func(Event)

// Track implements Sink.
func (f Func) Track(e Event) { f(e) }

// Recorder buffers events on a channel and writes them to a logger from a
// single background goroutine.
type Recorder struct {
	events  chan Event
	logger  *slog.Logger
	dropped atomic.Int64
	once    sync.Once
	done    chan struct{}
}

// NewRecorder creates a Recorder with the given buffer size.
func NewRecorder(buffer int, logger *slog.Logger) *Recorder {
	if buffer < 1 {
		buffer = 1
	}
	r := &Recorder{
		events: make(chan Event, buffer),
		logger: logger.With("system", "telemetry"),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Track enqueues e without blocking. The event is dropped when the buffer
// is full or the recorder is closed.
func (r *Recorder) Track(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	if e.Metadata != nil {
		e.Metadata = maps.Clone(e.Metadata)
	}

	defer func() {
		if recover() != nil {
			r.dropped.Add(1)
		}
	}()

	select {
	case r.events <- e:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded so far.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Start registers a shutdown hook that flushes buffered events.
func (r *Recorder) Start(lc *lifecycle.Coordinator) error {
	lc.OnShutdown(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r.Close(ctx)
	})
	return nil
}

// Close stops accepting events and waits for buffered events to be written
// or ctx to end.
func (r *Recorder) Close(ctx context.Context) {
	r.once.Do(func() { close(r.events) })
	select {
	case <-r.done:
	case <-ctx.Done():
	}
	if n := r.dropped.Load(); n > 0 {
		r.logger.Warn("telemetry events dropped", "count", n)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.events {
		r.logger.Info("event",
			"name", e.Name,
			"key", e.Key,
			"metadata", e.Metadata,
			"time", e.Time,
		)
	}
}
