// Package generator turns validated prompts into structured model output.
// It composes the system instruction and user prompt for a generation type,
// constrains the backend with the type's JSON schema, and exposes both a
// single-shot call and a cancellable stream of raw text deltas.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/casestudio/internal/prompts"
	"github.com/JaimeStill/casestudio/internal/schema"
	"github.com/JaimeStill/casestudio/pkg/formatting"
)

var (
	// ErrGenerationFailed indicates the backend failed or returned text that
	// could not be resolved into a valid response.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrAborted indicates the generation was cancelled before it finished.
	ErrAborted = errors.New("generation aborted")
	// ErrEmptyResponse indicates the backend returned no extractable text.
	ErrEmptyResponse = errors.New("no text in model response")
)

// Request is a single structured-output call to a backend.
type Request struct {
	Model      string
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

// Backend is a language model that can honor a JSON schema constraint.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request) (DeltaStream, error)
}

// DeltaStream yields text fragments in arrival order. Next blocks until a
// fragment is available or the stream ends; Err reports why it ended.
type DeltaStream interface {
	Next() bool
	Delta() string
	Err() error
	Close() error
}

// Instructor supplies the system instruction for a generation type.
type Instructor interface {
	SystemPrompt(ctx context.Context, t schema.PromptType) (string, error)
}

// Client issues structured generation calls against a Backend.
type Client struct {
	backend    Backend
	instructor Instructor
	model      string
	logger     *slog.Logger
}

// New creates a Client. A nil instructor falls back to the built-in
// instructions for each type.
func New(backend Backend, instructor Instructor, model string, logger *slog.Logger) *Client {
	if instructor == nil {
		instructor = prompts.Defaults{}
	}
	return &Client{
		backend:    backend,
		instructor: instructor,
		model:      model,
		logger:     logger.With("system", "generator"),
	}
}

// Model returns the model identifier sent with each request.
func (c *Client) Model() string {
	return c.model
}

// GenerateOnce performs a single non-streaming call and validates the
// result against the response shape of p's type.
func (c *Client) GenerateOnce(ctx context.Context, p schema.Prompt) (schema.Response, error) {
	req, err := c.request(ctx, p)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("generate once", "type", p.Type(), "model", req.Model)

	text, err := c.backend.Complete(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
		}
		c.logger.Error("backend call failed", "type", p.Type(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	text = formatting.Unfence(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, ErrEmptyResponse)
	}

	resp, err := schema.ValidateResponseFor(p.Type(), text)
	if err != nil {
		c.logger.Warn("model output rejected", "type", p.Type(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	return resp, nil
}

// OpenStream starts a streaming call. The returned handle owns the backend
// stream; callers must read Events until it closes or call Close.
func (c *Client) OpenStream(ctx context.Context, p schema.Prompt) (*StreamHandle, error) {
	req, err := c.request(ctx, p)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("open stream", "type", p.Type(), "model", req.Model)

	sctx, cancel := context.WithCancel(ctx)
	ds, err := c.backend.Stream(sctx, req)
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	h := newStreamHandle(cancel)
	go h.run(sctx, ds)
	return h, nil
}

func (c *Client) request(ctx context.Context, p schema.Prompt) (Request, error) {
	user, err := prompts.Render(p)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	t := p.Type()

	system, err := c.instructor.SystemPrompt(ctx, t)
	if err != nil {
		return Request{}, fmt.Errorf("%w: system prompt: %w", ErrGenerationFailed, err)
	}

	s, err := schema.ModelSchema(t)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	return Request{
		Model:      c.model,
		System:     system,
		User:       user,
		SchemaName: schema.SchemaName(t),
		Schema:     s,
	}, nil
}
