package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaimeStill/casestudio/pkg/formatting"
)

// EventKind discriminates raw stream events.
type EventKind int

const (
	// KindDelta carries a text fragment and the cumulative snapshot.
	KindDelta EventKind = iota
	// KindError ends the stream after a backend failure.
	KindError
	// KindAbort ends the stream after cancellation.
	KindAbort
	// KindDone ends the stream after the backend finished normally.
	KindDone
)

func (k EventKind) String() string {
	switch k {
	case KindDelta:
		return "delta"
	case KindError:
		return "error"
	case KindAbort:
		return "abort"
	case KindDone:
		return "done"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RawEvent is one step of a streaming call. Snapshot is the text received so
// far with any markdown fence removed. Err is set on KindError and KindAbort.
type RawEvent struct {
	Kind     EventKind
	Delta    string
	Snapshot string
	Err      error
}

// Terminal reports whether the event is the last one on its handle.
func (e RawEvent) Terminal() bool {
	return e.Kind != KindDelta
}

// StreamHandle is a running streaming call. Exactly one terminal event is
// delivered on Events, after which the channel is closed.
type StreamHandle struct {
	events chan RawEvent
	cancel context.CancelFunc
	done   chan struct{}

	final string
	err   error
}

func newStreamHandle(cancel context.CancelFunc) *StreamHandle {
	return &StreamHandle{
		events: make(chan RawEvent),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Events returns the ordered event channel.
func (h *StreamHandle) Events() <-chan RawEvent {
	return h.events
}

// Cancel aborts the backend call. It is safe to call more than once and
// after the stream has ended.
func (h *StreamHandle) Cancel() {
	h.cancel()
}

// Close cancels the call and discards any events not yet read.
func (h *StreamHandle) Close() {
	h.cancel()
	for range h.events {
	}
}

// Final blocks until the stream ends and returns the resolved response text,
// or the error that ended the stream.
func (h *StreamHandle) Final() (string, error) {
	<-h.done
	return h.final, h.err
}

func (h *StreamHandle) run(ctx context.Context, ds DeltaStream) {
	defer close(h.done)
	defer close(h.events)
	defer h.cancel()
	defer ds.Close()

	var raw strings.Builder

	for ds.Next() {
		delta := ds.Delta()
		if delta == "" {
			continue
		}
		raw.WriteString(delta)

		ev := RawEvent{
			Kind:     KindDelta,
			Delta:    delta,
			Snapshot: formatting.Unfence(raw.String()),
		}

		select {
		case h.events <- ev:
		case <-ctx.Done():
			h.finish(RawEvent{Kind: KindAbort}, ctx.Err())
			return
		}
	}

	if ctx.Err() != nil {
		h.finish(RawEvent{Kind: KindAbort}, ctx.Err())
		return
	}

	if err := ds.Err(); err != nil {
		h.finish(RawEvent{Kind: KindError}, fmt.Errorf("%w: %w", ErrGenerationFailed, err))
		return
	}

	text := formatting.Unfence(raw.String())
	if text == "" {
		h.finish(RawEvent{Kind: KindError}, fmt.Errorf("%w: %w", ErrGenerationFailed, ErrEmptyResponse))
		return
	}

	h.final = text
	h.events <- RawEvent{Kind: KindDone, Snapshot: text}
}

func (h *StreamHandle) finish(ev RawEvent, err error) {
	if ev.Kind == KindAbort {
		err = fmt.Errorf("%w: %w", ErrAborted, err)
	}
	ev.Err = err
	h.err = err
	h.events <- ev
}
