package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/JaimeStill/casestudio/internal/schema"
	"github.com/JaimeStill/casestudio/pkg/sse"
)

// ErrIncomplete indicates a subscription ended before its terminal event.
var ErrIncomplete = errors.New("subscription ended before a terminal event")

// APIError is an error response returned by the server.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// HTTP talks to the generation endpoints of a casestudio server. It serves
// one-shot requests and subscribes over server-sent events.
type HTTP struct {
	client *req.Client
}

// NewHTTP creates a client for the API rooted at baseURL, for example
// http://localhost:8080/api. A non-empty token is sent as a bearer token.
func NewHTTP(baseURL, token string, timeout time.Duration) *HTTP {
	c := req.C().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetUserAgent("casestudio-client")

	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	if token != "" {
		c.SetCommonBearerAuthToken(token)
	}

	return &HTTP{client: c}
}

// Generate performs a one-shot generation.
func (h *HTTP) Generate(ctx context.Context, p schema.Prompt) (schema.Response, error) {
	var apiErr APIError

	resp, err := h.client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(p).
		SetErrorResult(&apiErr).
		Post("/generations")
	if err != nil {
		return nil, err
	}

	if resp.IsErrorState() {
		apiErr.StatusCode = resp.GetStatusCode()
		return nil, &apiErr
	}

	return schema.ValidateResponseFor(p.Type(), resp.String())
}

// Subscribe implements Subscriber over the server-sent events endpoint.
func (h *HTTP) Subscribe(ctx context.Context, p schema.Prompt, emit func(schema.StreamEvent) error) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/event-stream").
		SetBodyJsonMarshal(p).
		DisableAutoReadResponse().
		Post("/generations/stream")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.GetStatusCode() != http.StatusOK {
		return readAPIError(resp.GetStatusCode(), resp.Body)
	}

	reader := sse.NewReader(resp.Body)
	for {
		frame, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrIncomplete
			}
			return err
		}

		var ev schema.StreamEvent
		if err := json.Unmarshal([]byte(frame.Data), &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}

		if err := emit(ev); err != nil {
			return err
		}
		if ev.Terminal() {
			return nil
		}
	}
}

func readAPIError(status int, body io.Reader) error {
	apiErr := &APIError{StatusCode: status}
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err == nil {
		_ = json.Unmarshal(data, apiErr)
	}
	return apiErr
}
