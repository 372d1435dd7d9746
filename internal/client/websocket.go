package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JaimeStill/casestudio/internal/schema"
)

// WebSocket subscribes to generations over the server's WebSocket endpoint.
type WebSocket struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
}

// NewWebSocket creates a subscriber for the API rooted at baseURL. http and
// https schemes are mapped to ws and wss.
func NewWebSocket(baseURL, token string) *WebSocket {
	u := strings.TrimRight(baseURL, "/") + "/generations/subscribe"
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	return &WebSocket{
		url:    u,
		header: header,
		dialer: websocket.DefaultDialer,
	}
}

// Subscribe implements Subscriber. The prompt is sent as the first frame;
// every following server frame is one event.
func (s *WebSocket) Subscribe(ctx context.Context, p schema.Prompt, emit func(schema.StreamEvent) error) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return readAPIError(resp.StatusCode, resp.Body)
		}
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "cancelled"),
			deadline(),
		)
		conn.Close()
	})
	defer stop()

	if err := conn.WriteJSON(p); err != nil {
		return fmt.Errorf("send prompt: %w", err)
	}

	for {
		var ev schema.StreamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, websocket.ErrCloseSent) {
				return ErrIncomplete
			}
			return err
		}

		if err := emit(ev); err != nil {
			return err
		}
		if ev.Terminal() {
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				deadline(),
			)
			return nil
		}
	}
}

func deadline() time.Time {
	return time.Now().Add(time.Second)
}
