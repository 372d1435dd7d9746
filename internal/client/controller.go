// Package client holds the caller-side generation controller and the
// subscribers that connect it to a casestudio server.
package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/JaimeStill/casestudio/internal/schema"
	"github.com/JaimeStill/casestudio/pkg/telemetry"
)

// Status is the controller's observable phase.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Telemetry event names.
const (
	EventRequested = "generation.requested"
	EventCompleted = "generation.completed"
	EventFailed    = "generation.failed"
)

const fallbackMessage = "Generation failed. Please try again."

// State is a point-in-time copy of a controller. Snapshot is the latest
// partial while loading; Result is set on success; Error and Reason are set
// on error.
type State struct {
	Status   Status
	Request  schema.Prompt
	Snapshot schema.Partial
	Result   schema.Response
	Error    string
	Reason   schema.Reason
}

// Subscriber opens a generation subscription for p and passes each event to
// emit in order. It returns after the terminal event, when ctx ends, or when
// the subscription fails.
type Subscriber interface {
	Subscribe(ctx context.Context, p schema.Prompt, emit func(schema.StreamEvent) error) error
}

// Controller owns at most one in-flight generation. Starting a new one
// supersedes the previous: its late events are ignored and its subscription
// is cancelled.
type Controller struct {
	sub    Subscriber
	sink   telemetry.Sink
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	last        schema.Prompt
	seq         uint64
	cancel      context.CancelFunc
	listeners   []func(State)
	pending     []State
	dispatching bool

	wg sync.WaitGroup
}

// NewController creates an idle controller. A nil sink discards telemetry.
func NewController(sub Subscriber, sink telemetry.Sink, logger *slog.Logger) *Controller {
	if sink == nil {
		sink = telemetry.Nop{}
	}
	return &Controller{
		sub:    sub,
		sink:   sink,
		logger: logger.With("system", "client"),
		state:  State{Status: StatusIdle},
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnChange registers fn to receive every state change. Listeners see
// changes one at a time in the order they happened, outside the
// controller's lock. A change made while listeners are running, including
// one made by a listener, is delivered after the current one. A panicking
// listener is contained.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Generate starts a generation for p, superseding any in-flight one.
func (c *Controller) Generate(p schema.Prompt) {
	c.mu.Lock()
	c.supersede()
	seq := c.seq

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.last = p
	c.state = State{Status: StatusLoading, Request: p}
	c.publish()
	c.mu.Unlock()

	c.dispatch()
	c.track(EventRequested, p.Type(), nil)

	c.wg.Add(1)
	go c.run(ctx, seq, p)
}

// Retry re-issues the last request. It does nothing if there is none.
func (c *Controller) Retry() {
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()

	if last == nil {
		return
	}
	c.Generate(last)
}

// Reset cancels any in-flight generation and clears all state.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.supersede()
	c.last = nil
	c.state = State{Status: StatusIdle}
	c.publish()
	c.mu.Unlock()

	c.dispatch()
}

// Wait blocks until every subscription the controller started has ended.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// supersede invalidates the current generation. The caller holds c.mu.
func (c *Controller) supersede() {
	c.seq++
	c.release()
}

// release clears the in-flight marker. The caller holds c.mu.
func (c *Controller) release() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) run(ctx context.Context, seq uint64, p schema.Prompt) {
	defer c.wg.Done()

	var terminal bool
	err := c.sub.Subscribe(ctx, p, func(ev schema.StreamEvent) error {
		if terminal {
			return nil
		}
		terminal = ev.Terminal()
		c.apply(seq, p, ev)
		return nil
	})

	if terminal {
		return
	}

	reason := schema.ReasonFailed
	if ctx.Err() != nil {
		reason = schema.ReasonAborted
	}

	message := fallbackMessage
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		message = apiErr.Message
	}
	if err != nil {
		c.logger.Warn("subscription ended without a result", "type", p.Type(), "error", err)
	}

	c.apply(seq, p, schema.Failure(p.Type(), message, reason))
}

// apply folds ev into the state if it belongs to the current generation.
func (c *Controller) apply(seq uint64, p schema.Prompt, ev schema.StreamEvent) {
	c.mu.Lock()
	if seq != c.seq || ev.Type != p.Type() || c.state.Status != StatusLoading {
		c.mu.Unlock()
		c.logger.Debug("stale event ignored", "type", ev.Type, "status", ev.Status)
		return
	}

	var (
		name string
		meta map[string]any
	)

	switch ev.Status {
	case schema.StatusInProgress:
		c.state.Snapshot = ev.Snapshot
	case schema.StatusComplete:
		c.state.Status = StatusSuccess
		c.state.Snapshot = nil
		c.state.Result = ev.Result
		c.release()
		name, meta = EventCompleted, schema.Metadata(ev.Result)
	case schema.StatusError:
		c.state.Status = StatusError
		c.state.Error = ev.Message
		c.state.Reason = ev.Reason
		c.release()
		name, meta = EventFailed, map[string]any{"reason": string(ev.Reason), "message": ev.Message}
	}

	c.publish()
	c.mu.Unlock()

	c.dispatch()
	if name != "" {
		c.track(name, p.Type(), meta)
	}
}

// publish queues the current state for listeners. The caller holds c.mu.
func (c *Controller) publish() {
	c.pending = append(c.pending, c.state)
}

// dispatch delivers queued states in order. Only one goroutine delivers at a
// time; states queued meanwhile are picked up by that goroutine before it
// stops, so a reentrant or concurrent call returns immediately.
func (c *Controller) dispatch() {
	c.mu.Lock()
	if c.dispatching {
		c.mu.Unlock()
		return
	}
	c.dispatching = true

	for len(c.pending) > 0 {
		state := c.pending[0]
		c.pending = c.pending[1:]
		listeners := c.listeners
		c.mu.Unlock()

		for _, fn := range listeners {
			c.deliver(fn, state)
		}

		c.mu.Lock()
	}

	c.pending = nil
	c.dispatching = false
	c.mu.Unlock()
}

func (c *Controller) deliver(fn func(State), state State) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("state listener panicked", "status", state.Status, "panic", r)
		}
	}()
	fn(state)
}

// track hands an event to the sink. A panicking sink is contained.
func (c *Controller) track(name string, t schema.PromptType, meta map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("telemetry sink panicked", "event", name, "panic", r)
		}
	}()
	c.sink.Track(telemetry.Event{
		Name:     name,
		Key:      string(t),
		Metadata: meta,
		Time:     time.Now(),
	})
}
