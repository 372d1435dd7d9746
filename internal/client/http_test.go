package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/casestudio/internal/client"
	"github.com/JaimeStill/casestudio/internal/schema"
	"github.com/JaimeStill/casestudio/pkg/handlers"
	"github.com/JaimeStill/casestudio/pkg/sse"
)

const token = "secret-token"

var script = []schema.StreamEvent{
	schema.InProgress(schema.TypeHeadline, schema.HeadlinePartial{Headline: ptr("Unlock")}),
	schema.Complete(headlineResult("Unlock faster onboarding", "Onboard in a day")),
}

func authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+token {
		handlers.RespondJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return false
	}
	return true
}

func readPrompt(w http.ResponseWriter, r *http.Request) (schema.Prompt, bool) {
	body, _ := io.ReadAll(r.Body)
	p, err := schema.ValidatePrompt(body)
	if err != nil {
		handlers.RespondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return nil, false
	}
	return p, true
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/generations", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		if _, ok := readPrompt(w, r); !ok {
			return
		}
		handlers.RespondJSON(w, http.StatusOK, script[1].Result)
	})

	mux.HandleFunc("POST /api/generations/stream", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		if _, ok := readPrompt(w, r); !ok {
			return
		}
		sw, err := sse.NewWriter(w)
		if err != nil {
			return
		}
		for _, ev := range script {
			data, _ := json.Marshal(ev)
			sw.Send(string(ev.Status), data)
		}
	})

	mux.HandleFunc("GET /api/generations/subscribe", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if _, err := schema.ValidatePrompt(msg); err != nil {
			return
		}
		for _, ev := range script {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
		conn.ReadMessage()
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func collectEvents(t *testing.T, sub client.Subscriber, p schema.Prompt) ([]schema.StreamEvent, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var events []schema.StreamEvent
	err := sub.Subscribe(ctx, p, func(ev schema.StreamEvent) error {
		events = append(events, ev)
		return nil
	})
	return events, err
}

func TestHTTPSubscribe(t *testing.T) {
	srv := newServer(t)
	sub := client.NewHTTP(srv.URL+"/api/", token, 0)

	events, err := collectEvents(t, sub, first)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, schema.StatusInProgress, events[0].Status)
	assert.Equal(t, schema.HeadlinePartial{Headline: ptr("Unlock")}, events[0].Snapshot)
	assert.Equal(t, schema.StatusComplete, events[1].Status)
	assert.Equal(t, script[1].Result, events[1].Result)
}

func TestHTTPSubscribeUnauthorized(t *testing.T) {
	srv := newServer(t)
	sub := client.NewHTTP(srv.URL+"/api", "wrong", 0)

	events, err := collectEvents(t, sub, first)
	assert.Empty(t, events)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "authentication required", apiErr.Message)
}

func TestHTTPGenerate(t *testing.T) {
	srv := newServer(t)
	c := client.NewHTTP(srv.URL+"/api", token, 5*time.Second)

	resp, err := c.Generate(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, script[1].Result, resp)
}

func TestHTTPGenerateValidationError(t *testing.T) {
	srv := newServer(t)
	c := client.NewHTTP(srv.URL+"/api", token, 0)

	_, err := c.Generate(context.Background(), schema.HeadlinePrompt{Topic: "ab", Style: schema.StylePunchy, VariantCount: 1})

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "topic")
}

func TestWebSocketSubscribe(t *testing.T) {
	srv := newServer(t)
	sub := client.NewWebSocket(srv.URL+"/api", token)

	events, err := collectEvents(t, sub, first)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[1].Terminal())
}

func TestWebSocketUnauthorized(t *testing.T) {
	srv := newServer(t)
	sub := client.NewWebSocket(srv.URL+"/api", "")

	_, err := collectEvents(t, sub, first)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestControllerOverHTTP(t *testing.T) {
	srv := newServer(t)
	ctrl := client.NewController(client.NewHTTP(srv.URL+"/api", token, 0), nil, logger)

	ctrl.Generate(first)
	ctrl.Wait()

	state := ctrl.State()
	require.Equal(t, client.StatusSuccess, state.Status, state.Error)
	assert.Equal(t, script[1].Result, state.Result)
}

func TestZeroValuedPromptUsesServerDefaults(t *testing.T) {
	srv := newServer(t)
	p := schema.HeadlinePrompt{Topic: "Improve onboarding"}

	subscribers := map[string]client.Subscriber{
		"sse":       client.NewHTTP(srv.URL+"/api", token, 0),
		"websocket": client.NewWebSocket(srv.URL+"/api", token),
	}

	for name, sub := range subscribers {
		t.Run(name, func(t *testing.T) {
			events, err := collectEvents(t, sub, p)
			require.NoError(t, err)
			require.Len(t, events, 2)
			assert.Equal(t, schema.StatusComplete, events[1].Status)
		})
	}

	t.Run("one-shot", func(t *testing.T) {
		resp, err := client.NewHTTP(srv.URL+"/api", token, 0).Generate(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, script[1].Result, resp)
	})
}
