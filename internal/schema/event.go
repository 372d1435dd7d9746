package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Status discriminates stream events.
type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Reason qualifies an error event.
type Reason string

const (
	// ReasonFailed marks a backend, transport, or final validation failure.
	ReasonFailed Reason = "failed"
	// ReasonAborted marks a generation cancelled by its caller.
	ReasonAborted Reason = "aborted"
	// ReasonTimeout marks a generation cancelled after backend inactivity.
	ReasonTimeout Reason = "timeout"
)

// StreamEvent is one message of a streaming session. Snapshot is only set on
// in-progress events and may be nil; Result is only set on complete events;
// Message and Reason are only set on error events.
type StreamEvent struct {
	Status   Status
	Type     PromptType
	Snapshot Partial
	Result   Response
	Message  string
	Reason   Reason
}

// InProgress creates an in-progress event carrying snapshot.
func InProgress(t PromptType, snapshot Partial) StreamEvent {
	return StreamEvent{Status: StatusInProgress, Type: t, Snapshot: snapshot}
}

// Complete creates the terminal success event for result.
func Complete(result Response) StreamEvent {
	return StreamEvent{Status: StatusComplete, Type: result.Type(), Result: result}
}

// Failure creates a terminal error event.
func Failure(t PromptType, message string, reason Reason) StreamEvent {
	return StreamEvent{Status: StatusError, Type: t, Message: message, Reason: reason}
}

// Terminal reports whether the event ends its session.
func (e StreamEvent) Terminal() bool {
	return e.Status == StatusComplete || e.Status == StatusError
}

type wireEvent struct {
	Status   Status          `json:"status"`
	Type     PromptType      `json:"type"`
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Message  string          `json:"message,omitempty"`
	Reason   Reason          `json:"reason,omitempty"`
}

func (e StreamEvent) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		Status: e.Status,
		Type:   e.Type,
	}

	switch e.Status {
	case StatusInProgress:
		if e.Snapshot != nil {
			data, err := json.Marshal(e.Snapshot)
			if err != nil {
				return nil, err
			}
			w.Snapshot = data
		}
	case StatusComplete:
		if e.Result == nil {
			return nil, errors.New("complete event requires a result")
		}
		data, err := json.Marshal(e.Result)
		if err != nil {
			return nil, err
		}
		w.Result = data
	case StatusError:
		if e.Message == "" {
			return nil, errors.New("error event requires a message")
		}
		w.Message = e.Message
		w.Reason = e.Reason
	default:
		return nil, fmt.Errorf("unknown event status %q", e.Status)
	}

	return json.Marshal(w)
}

// UnmarshalJSON decodes and validates an event, including its snapshot or
// result payload, and rejects payloads whose tag differs from the event's.
func (e *StreamEvent) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := StreamEvent{Status: w.Status, Type: w.Type}

	switch w.Status {
	case StatusInProgress:
		if len(w.Snapshot) > 0 && string(w.Snapshot) != "null" {
			p, err := TryValidatePartial(string(w.Snapshot))
			if err != nil {
				return err
			}
			if p != nil && p.Type() != w.Type {
				return fmt.Errorf("%w: snapshot type %q on %q event", ErrSchemaViolation, p.Type(), w.Type)
			}
			out.Snapshot = p
		}
	case StatusComplete:
		r, err := ValidateResponseFor(w.Type, string(w.Result))
		if err != nil {
			return err
		}
		out.Result = r
	case StatusError:
		if w.Message == "" {
			return errors.New("error event requires a message")
		}
		out.Message = w.Message
		out.Reason = w.Reason
		if out.Reason == "" {
			out.Reason = ReasonFailed
		}
	default:
		return fmt.Errorf("unknown event status %q", w.Status)
	}

	*e = out
	return nil
}
