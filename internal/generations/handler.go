package generations

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/casestudio/internal/schema"
	"github.com/JaimeStill/casestudio/pkg/auth"
	"github.com/JaimeStill/casestudio/pkg/formatting"
	"github.com/JaimeStill/casestudio/pkg/handlers"
	"github.com/JaimeStill/casestudio/pkg/pagination"
	"github.com/JaimeStill/casestudio/pkg/routes"
	"github.com/JaimeStill/casestudio/pkg/sse"
)

const (
	writeWait      = 10 * time.Second
	closeGrace     = 5 * time.Second
	maxPromptFrame = 1 << 20
)

// Handler provides HTTP endpoints for generation operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
	upgrader   websocket.Upgrader
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "generations"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for generation endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/generations",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Generate},
			{Method: "POST", Pattern: "/stream", Handler: h.Stream},
			{Method: "GET", Pattern: "/subscribe", Handler: h.Subscribe},
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/export", Handler: h.Export},
			{Method: "GET", Pattern: "/{id}/archive", Handler: h.Archive},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
		},
	}
}

// Generate performs a one-shot generation for the prompt in the request body.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	p, err := readPrompt(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	resp, err := h.sys.Generate(r.Context(), caller.Subject, p)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), publicError(err))
		return
	}

	handlers.RespondJSON(w, http.StatusOK, resp)
}

// Stream runs a streaming generation and relays its events as server-sent
// events named by status. The response ends after the terminal event; a
// client disconnect cancels the session.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	p, err := readPrompt(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	sw, err := sse.NewWriter(w)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	err = h.sys.Stream(r.Context(), caller.Subject, p, func(ev schema.StreamEvent) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		return sw.Send(string(ev.Status), data)
	})
	if err != nil {
		h.logger.Debug("stream ended", "type", p.Type(), "error", err)
	}
}

// Subscribe upgrades to a WebSocket. The first client frame is the prompt;
// each server frame is one event. The server closes after the terminal
// event and a client close cancels the session.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxPromptFrame)

	_, msg, err := conn.ReadMessage()
	if err != nil {
		h.logger.Debug("websocket closed before prompt", "error", err)
		return
	}

	p, err := schema.ValidatePrompt(msg)
	if err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, err.Error())
		return
	}

	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() error {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return err
			}
		}
	})

	g.Go(func() error {
		err := h.sys.Stream(ctx, caller.Subject, p, func(ev schema.StreamEvent) error {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			return conn.WriteJSON(ev)
		})
		closeWith(conn, websocket.CloseNormalClosure, "")
		conn.SetReadDeadline(time.Now().Add(closeGrace))
		return err
	})

	if err := g.Wait(); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.logger.Debug("websocket session ended", "type", p.Type(), "error", err)
	}
}

// List returns a paginated list of the caller's generations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())
	filters.Subject = &caller.Subject

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Search accepts a JSON body with pagination and filter criteria and
// returns the caller's matching generations.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidBody)
		return
	}

	req.PageRequest.Normalize(h.pagination)
	req.Filters.Subject = &caller.Subject

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns one of the caller's generations by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	g, ok := h.owned(w, r)
	if !ok {
		return
	}
	handlers.RespondJSON(w, http.StatusOK, g)
}

// Export renders a completed generation as markdown or HTML, selected by
// the format query parameter.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	g, ok := h.owned(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	data, contentType, err := h.sys.Export(r.Context(), g.ID, format)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	ext := FormatMarkdown
	if format == FormatHTML {
		ext = FormatHTML
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("inline; filename=%q", fmt.Sprintf("%s-%s.%s", g.Type, g.ID, ext)),
	)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Archive downloads the archived result document of a completed generation.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	g, ok := h.owned(w, r)
	if !ok {
		return
	}

	body, err := h.sys.Archive(r.Context(), g.ID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", g.ID.String()+".json"),
	)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}

// Delete removes one of the caller's generations and its archive.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	g, ok := h.owned(w, r)
	if !ok {
		return
	}

	if err := h.sys.Delete(r.Context(), g.ID); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (*auth.Caller, bool) {
	c, ok := auth.FromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrUnauthorized)
		return nil, false
	}
	return c, true
}

// owned loads the generation named by the id path value. Records of other
// callers are reported as not found.
func (h *Handler) owned(w http.ResponseWriter, r *http.Request) (*Generation, bool) {
	caller, ok := h.caller(w, r)
	if !ok {
		return nil, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return nil, false
	}

	g, err := h.sys.Find(r.Context(), id)
	if err == nil && g.Subject != caller.Subject {
		err = ErrNotFound
	}
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}

	return g, true
}

func readPrompt(r *http.Request) (schema.Prompt, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit is %s", ErrBodyTooLarge, formatting.FormatBytes(tooLarge.Limit, 0))
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	return schema.ValidatePrompt(body)
}

func closeWith(conn *websocket.Conn, code int, text string) {
	if len(text) > 120 {
		text = text[:120]
	}
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(writeWait),
	)
}
