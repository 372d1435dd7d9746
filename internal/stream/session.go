// Package stream drives a streaming generation and converts its raw text
// deltas into the ordered StreamEvent sequence sent to subscribers.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JaimeStill/casestudio/internal/generator"
	"github.com/JaimeStill/casestudio/internal/schema"
)

const (
	// DefaultIdleTimeout bounds the wait for the next backend delta.
	DefaultIdleTimeout = 60 * time.Second

	MessageFailed  = "Generation failed. Please try again."
	MessageInvalid = "The generated content was incomplete or invalid. Please try again."
	MessageAborted = "Generation was cancelled."
	MessageTimeout = "Generation timed out waiting for the model."
)

var (
	// ErrIdleTimeout indicates the backend produced nothing within the idle
	// window and the session cancelled it.
	ErrIdleTimeout = errors.New("stream idle timeout")
	// ErrEmit indicates the subscriber could not accept an event.
	ErrEmit = errors.New("emit failed")
)

// State is a session's position in its lifecycle.
type State int

const (
	StateStarting State = iota
	StateStreaming
	StateCompleting
	StateDone
	StateErrored
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateStreaming:
		return "streaming"
	case StateCompleting:
		return "completing"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Final reports whether no further transitions are possible.
func (s State) Final() bool {
	return s == StateDone || s == StateErrored || s == StateAborted
}

// Opener starts a streaming generation. *generator.Client satisfies it.
type Opener interface {
	OpenStream(ctx context.Context, p schema.Prompt) (*generator.StreamHandle, error)
}

// Emitter delivers one event to the subscriber. An error ends the session.
type Emitter func(schema.StreamEvent) error

// Options tune a session.
type Options struct {
	IdleTimeout time.Duration
	PartialMode schema.PartialMode
}

// Session is a single streaming generation. Run may be called once.
type Session struct {
	opener Opener
	prompt schema.Prompt
	idle   time.Duration
	parse  func(string) (schema.Partial, error)
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	cancelled bool
	started   bool
}

// NewSession creates a session for an already validated prompt.
func NewSession(opener Opener, p schema.Prompt, opts Options, logger *slog.Logger) *Session {
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}

	return &Session{
		opener: opener,
		prompt: p,
		idle:   idle,
		parse:  opts.PartialMode.Parser(),
		logger: logger.With("system", "stream", "type", p.Type()),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cancel aborts the backend call. The session emits one abort event and
// ends. Calling Cancel before Run makes Run abort immediately.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
	if s.cancel != nil {
		s.cancel()
	}
}

// Run drives the session to a terminal state, passing events to emit in
// arrival order. Exactly one terminal event is emitted unless emit fails.
// Run returns nil when the session completes and the terminal error
// otherwise. When ctx itself ends, the subscriber is gone and the session
// stops without emitting.
func (s *Session) Run(ctx context.Context, emit Emitter) error {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("stream: session already started")
	}
	s.started = true
	s.cancel = cancel
	if s.cancelled {
		cancel()
	}
	s.mu.Unlock()

	t := s.prompt.Type()

	h, err := s.opener.OpenStream(ctx, s.prompt)
	if err != nil {
		if errors.Is(err, generator.ErrAborted) {
			return s.abort(parent, emit, false, err)
		}
		return s.fail(emit, MessageFailed, err)
	}
	defer h.Close()

	s.transition(StateStreaming)

	timer := time.NewTimer(s.idle)
	defer timer.Stop()

	var timedOut bool

	for {
		select {
		case <-timer.C:
			if !timedOut {
				timedOut = true
				s.logger.Warn("idle timeout", "after", s.idle)
				h.Cancel()
			}

		case ev, ok := <-h.Events():
			if !ok {
				return s.fail(emit, MessageFailed, fmt.Errorf("%w: stream closed without a result", generator.ErrGenerationFailed))
			}

			switch ev.Kind {
			case generator.KindDelta:
				timer.Reset(s.idle)

				snap, ok := s.snapshot(t, ev.Snapshot)
				if !ok {
					continue
				}
				if err := emit(schema.InProgress(t, snap)); err != nil {
					h.Cancel()
					s.transition(StateAborted)
					return fmt.Errorf("%w: %w", ErrEmit, err)
				}

			case generator.KindDone:
				return s.complete(emit, t, ev.Snapshot)

			case generator.KindError:
				return s.fail(emit, MessageFailed, ev.Err)

			case generator.KindAbort:
				return s.abort(parent, emit, timedOut, ev.Err)
			}
		}
	}
}

// snapshot parses the cumulative text. Fragments that are not yet valid
// JSON are dropped silently; structural mismatches and foreign tags are
// dropped with a warning.
func (s *Session) snapshot(t schema.PromptType, text string) (schema.Partial, bool) {
	snap, err := s.parse(text)
	if err != nil {
		s.logger.Warn("partial dropped", "error", err)
		return nil, false
	}
	if snap == nil {
		return nil, false
	}
	if snap.Type() != t {
		s.logger.Warn("partial dropped", "error", "type tag mismatch", "tag", snap.Type())
		return nil, false
	}
	return snap, true
}

func (s *Session) complete(emit Emitter, t schema.PromptType, text string) error {
	s.transition(StateCompleting)

	result, err := schema.ValidateResponseFor(t, text)
	if err != nil {
		return s.fail(emit, MessageInvalid, fmt.Errorf("%w: %w", generator.ErrGenerationFailed, err))
	}

	s.transition(StateDone)
	if err := emit(schema.Complete(result)); err != nil {
		return fmt.Errorf("%w: %w", ErrEmit, err)
	}
	s.logger.Debug("session complete")
	return nil
}

func (s *Session) fail(emit Emitter, message string, err error) error {
	if err == nil {
		err = generator.ErrGenerationFailed
	}
	s.transition(StateErrored)
	s.logger.Error("session failed", "error", err)

	if emitErr := emit(schema.Failure(s.prompt.Type(), message, schema.ReasonFailed)); emitErr != nil {
		s.logger.Debug("terminal event not delivered", "error", emitErr)
	}
	return err
}

func (s *Session) abort(parent context.Context, emit Emitter, timedOut bool, err error) error {
	s.transition(StateAborted)

	if err == nil {
		err = generator.ErrAborted
	}

	if parent.Err() != nil && !timedOut {
		s.logger.Info("session torn down", "cause", context.Cause(parent))
		return err
	}

	message, reason := MessageAborted, schema.ReasonAborted
	if timedOut {
		message, reason = MessageTimeout, schema.ReasonTimeout
		err = fmt.Errorf("%w: %w", ErrIdleTimeout, err)
	}
	s.logger.Info("session aborted", "reason", reason)

	if emitErr := emit(schema.Failure(s.prompt.Type(), message, reason)); emitErr != nil {
		s.logger.Debug("terminal event not delivered", "error", emitErr)
	}
	return err
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = to
}
