package generations_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JaimeStill/casestudio/internal/generations"
	"github.com/JaimeStill/casestudio/internal/generator"
	"github.com/JaimeStill/casestudio/internal/schema"
	"github.com/JaimeStill/casestudio/internal/stream"
	"github.com/JaimeStill/casestudio/pkg/auth"
	"github.com/JaimeStill/casestudio/pkg/pagination"
	"github.com/JaimeStill/casestudio/pkg/sse"
)

type mockSystem struct {
	generateFn func(ctx context.Context, subject string, p schema.Prompt) (schema.Response, error)
	streamFn   func(ctx context.Context, subject string, p schema.Prompt, emit stream.Emitter) error
	listFn     func(ctx context.Context, page pagination.PageRequest, filters generations.Filters) (*pagination.PageResult[generations.Generation], error)
	findFn     func(ctx context.Context, id uuid.UUID) (*generations.Generation, error)
	deleteFn   func(ctx context.Context, id uuid.UUID) error
	archiveFn  func(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
	exportFn   func(ctx context.Context, id uuid.UUID, format string) ([]byte, string, error)
}

func (m *mockSystem) Handler() *generations.Handler {
	return newTestHandler(m)
}

func (m *mockSystem) Generate(ctx context.Context, subject string, p schema.Prompt) (schema.Response, error) {
	return m.generateFn(ctx, subject, p)
}

func (m *mockSystem) Stream(ctx context.Context, subject string, p schema.Prompt, emit stream.Emitter) error {
	return m.streamFn(ctx, subject, p, emit)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters generations.Filters) (*pagination.PageResult[generations.Generation], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*generations.Generation, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

func (m *mockSystem) Archive(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	return m.archiveFn(ctx, id)
}

func (m *mockSystem) Export(ctx context.Context, id uuid.UUID, format string) ([]byte, string, error) {
	return m.exportFn(ctx, id, format)
}

func newTestHandler(sys generations.System) *generations.Handler {
	return generations.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
}

// setupMux registers the handler routes behind a stand-in for the auth
// middleware that attaches the caller named by the X-Subject header.
func setupMux(h *generations.Handler) http.Handler {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := r.Header.Get("X-Subject"); s != "" {
			r = r.WithContext(auth.WithCaller(r.Context(), &auth.Caller{Subject: s, Method: "test"}))
		}
		mux.ServeHTTP(w, r)
	})
}

func request(method, path, body, subject string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if subject != "" {
		req.Header.Set("X-Subject", subject)
	}
	return req
}

func sampleGeneration() generations.Generation {
	key := "generations/550e8400-e29b-41d4-a716-446655440000.json"
	return generations.Generation{
		ID:         uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		Subject:    "alice",
		Type:       schema.TypeSummary,
		Mode:       generations.ModeOnce,
		Prompt:     json.RawMessage(`{"type":"summary","source":"Quarterly report","length":"short","tone":"neutral"}`),
		Status:     generations.StatusComplete,
		Result:     json.RawMessage(`{"type":"summary","summary":"Revenue grew."}`),
		StorageKey: &key,
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func ptr[T any](v T) *T { return &v }

func errorMessage(t *testing.T, body io.Reader) string {
	t.Helper()
	var resp map[string]string
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp["error"]
}

func TestHandlerGenerate(t *testing.T) {
	var gotSubject string
	sys := &mockSystem{
		generateFn: func(_ context.Context, subject string, p schema.Prompt) (schema.Response, error) {
			gotSubject = subject
			if p.Type() != schema.TypeSummary {
				t.Errorf("prompt type = %q, want summary", p.Type())
			}
			return schema.SummaryResponse{Summary: "Revenue grew."}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, request("POST", "/generations", `{"type":"summary","source":"Quarterly report"}`, "alice"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotSubject != "alice" {
		t.Errorf("subject = %q, want alice", gotSubject)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["type"] != "summary" || body["summary"] != "Revenue grew." {
		t.Errorf("body = %v", body)
	}
}

func TestHandlerGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		subject string
		genErr  error
		want    int
		message string
	}{
		{
			name:    "missing caller",
			body:    `{"type":"summary","source":"Quarterly report"}`,
			want:    http.StatusUnauthorized,
			message: auth.ErrUnauthorized.Error(),
		},
		{
			name:    "unknown type",
			body:    `{"type":"poem","topic":"x"}`,
			subject: "alice",
			want:    http.StatusBadRequest,
		},
		{
			name:    "missing required field",
			body:    `{"type":"outline"}`,
			subject: "alice",
			want:    http.StatusBadRequest,
		},
		{
			name:    "backend failure hides detail",
			body:    `{"type":"summary","source":"Quarterly report"}`,
			subject: "alice",
			genErr:  fmt.Errorf("%w: upstream 500 secret detail", generator.ErrGenerationFailed),
			want:    http.StatusBadGateway,
			message: generator.ErrGenerationFailed.Error(),
		},
		{
			name:    "aborted",
			body:    `{"type":"summary","source":"Quarterly report"}`,
			subject: "alice",
			genErr:  fmt.Errorf("%w: %w", generator.ErrAborted, context.Canceled),
			want:    http.StatusServiceUnavailable,
			message: generator.ErrAborted.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &mockSystem{
				generateFn: func(context.Context, string, schema.Prompt) (schema.Response, error) {
					if tt.genErr != nil {
						return nil, tt.genErr
					}
					return schema.SummaryResponse{Summary: "ok"}, nil
				},
			}
			mux := setupMux(newTestHandler(sys))

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, request("POST", "/generations", tt.body, tt.subject))

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.message != "" {
				if got := errorMessage(t, rec.Body); got != tt.message {
					t.Errorf("error = %q, want %q", got, tt.message)
				}
			}
		})
	}
}

func TestHandlerGenerateBodyTooLarge(t *testing.T) {
	sys := &mockSystem{}
	h := setupMux(newTestHandler(sys))

	limited := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 16)
		h.ServeHTTP(w, r)
	})

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, request("POST", "/generations", `{"type":"summary","source":"far too long for the limit"}`, "alice"))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "limit is 16 B") {
		t.Errorf("body = %s, want limit in message", rec.Body.String())
	}
}

func TestHandlerStream(t *testing.T) {
	sys := &mockSystem{
		streamFn: func(_ context.Context, subject string, p schema.Prompt, emit stream.Emitter) error {
			if subject != "alice" {
				t.Errorf("subject = %q, want alice", subject)
			}
			if err := emit(schema.InProgress(p.Type(), schema.SummaryPartial{Summary: ptr("Rev")})); err != nil {
				return err
			}
			return emit(schema.Complete(schema.SummaryResponse{Summary: "Revenue grew."}))
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, request("POST", "/generations/stream", `{"type":"summary","source":"Quarterly report"}`, "alice"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("content type = %q, want text/event-stream", ct)
	}

	r := sse.NewReader(rec.Body)

	var events []schema.StreamEvent
	var names []string
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var ev schema.StreamEvent
		if err := json.Unmarshal([]byte(frame.Data), &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		names = append(names, frame.Name)
		events = append(events, ev)
	}

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if names[0] != "in-progress" || names[1] != "complete" {
		t.Errorf("names = %v", names)
	}
	if snap, ok := events[0].Snapshot.(schema.SummaryPartial); !ok || snap.Summary == nil || *snap.Summary != "Rev" {
		t.Errorf("snapshot = %#v", events[0].Snapshot)
	}
	if res, ok := events[1].Result.(schema.SummaryResponse); !ok || res.Summary != "Revenue grew." {
		t.Errorf("result = %#v", events[1].Result)
	}
}

func TestHandlerStreamInvalidPrompt(t *testing.T) {
	called := false
	sys := &mockSystem{
		streamFn: func(context.Context, string, schema.Prompt, stream.Emitter) error {
			called = true
			return nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, request("POST", "/generations/stream", `{"type":"headline","topic":"x","variantCount":99}`, "alice"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if called {
		t.Error("stream started for an invalid prompt")
	}
}

func TestHandlerSubscribe(t *testing.T) {
	sys := &mockSystem{
		streamFn: func(_ context.Context, _ string, p schema.Prompt, emit stream.Emitter) error {
			if err := emit(schema.InProgress(p.Type(), nil)); err != nil {
				return err
			}
			return emit(schema.Complete(schema.HeadlineResponse{Headline: "Billing, rebuilt", Variations: []string{"A new ledger"}}))
		},
	}
	srv := httptest.NewServer(setupMux(newTestHandler(sys)))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/generations/subscribe"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Subject": {"alice"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"headline","topic":"Billing"}`)); err != nil {
		t.Fatalf("write prompt: %v", err)
	}

	var got []schema.StreamEvent
	for {
		var ev schema.StreamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("read: %v", err)
			}
			break
		}
		got = append(got, ev)
	}

	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[0].Status != schema.StatusInProgress || got[0].Snapshot != nil {
		t.Errorf("first event = %#v", got[0])
	}
	if got[1].Status != schema.StatusComplete {
		t.Errorf("last status = %q, want complete", got[1].Status)
	}
}

func TestHandlerSubscribeInvalidPrompt(t *testing.T) {
	sys := &mockSystem{
		streamFn: func(context.Context, string, schema.Prompt, stream.Emitter) error {
			t.Error("stream started for an invalid prompt")
			return nil
		},
	}
	srv := httptest.NewServer(setupMux(newTestHandler(sys)))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/generations/subscribe"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Subject": {"alice"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"poem"}`))

	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Errorf("err = %v, want policy violation close", err)
	}
}

func TestHandlerSubscribeUnauthorized(t *testing.T) {
	srv := httptest.NewServer(setupMux(newTestHandler(&mockSystem{})))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/generations/subscribe"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("response = %v, want 401", resp)
	}
}

func TestHandlerList(t *testing.T) {
	g := sampleGeneration()
	var captured generations.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, f generations.Filters) (*pagination.PageResult[generations.Generation], error) {
			captured = f
			result := pagination.NewPageResult([]generations.Generation{g}, 1, 1, 20)
			return &result, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, request("GET", "/generations?type=summary&status=complete&subject=mallory", "", "alice"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured.Subject == nil || *captured.Subject != "alice" {
		t.Errorf("subject filter = %v, want alice", captured.Subject)
	}
	if captured.Type == nil || *captured.Type != schema.TypeSummary {
		t.Errorf("type filter = %v, want summary", captured.Type)
	}
	if captured.Status == nil || *captured.Status != generations.StatusComplete {
		t.Errorf("status filter = %v, want complete", captured.Status)
	}
}

func TestHandlerSearch(t *testing.T) {
	var captured generations.Filters
	var capturedPage pagination.PageRequest
	sys := &mockSystem{
		listFn: func(_ context.Context, page pagination.PageRequest, f generations.Filters) (*pagination.PageResult[generations.Generation], error) {
			captured = f
			capturedPage = page
			result := pagination.NewPageResult([]generations.Generation{}, 0, page.Page, page.PageSize)
			return &result, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	body := `{"page":2,"page_size":500,"subject":"mallory","mode":"stream"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, request("POST", "/generations/search", body, "alice"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured.Subject == nil || *captured.Subject != "alice" {
		t.Errorf("subject filter = %v, want alice", captured.Subject)
	}
	if captured.Mode == nil || *captured.Mode != generations.ModeStream {
		t.Errorf("mode filter = %v, want stream", captured.Mode)
	}
	if capturedPage.PageSize != 100 {
		t.Errorf("page size = %d, want clamped to 100", capturedPage.PageSize)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, request("POST", "/generations/search", "{", "alice"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}
}

func TestHandlerFind(t *testing.T) {
	g := sampleGeneration()

	tests := []struct {
		name    string
		path    string
		subject string
		want    int
	}{
		{"returns owned generation", "/generations/" + g.ID.String(), "alice", http.StatusOK},
		{"other subject is not found", "/generations/" + g.ID.String(), "mallory", http.StatusNotFound},
		{"invalid uuid returns 400", "/generations/not-a-uuid", "alice", http.StatusBadRequest},
		{"missing returns 404", "/generations/" + uuid.New().String(), "alice", http.StatusNotFound},
		{"no caller returns 401", "/generations/" + g.ID.String(), "", http.StatusUnauthorized},
	}

	sys := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*generations.Generation, error) {
			if id != g.ID {
				return nil, generations.ErrNotFound
			}
			return &g, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, request("GET", tt.path, "", tt.subject))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerExport(t *testing.T) {
	g := sampleGeneration()
	var gotFormat string
	sys := &mockSystem{
		findFn: func(context.Context, uuid.UUID) (*generations.Generation, error) {
			return &g, nil
		},
		exportFn: func(_ context.Context, _ uuid.UUID, format string) ([]byte, string, error) {
			gotFormat = format
			if format == "pdf" {
				return nil, "", generations.ErrInvalidFormat
			}
			return generations.Render(&g, format)
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, request("GET", "/generations/"+g.ID.String()+"/export?format=html", "", "alice"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotFormat != "html" {
		t.Errorf("format = %q, want html", gotFormat)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "summary-"+g.ID.String()+".html") {
		t.Errorf("content disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "<h1>Summary</h1>") {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, request("GET", "/generations/"+g.ID.String()+"/export?format=pdf", "", "alice"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid format status = %d, want 400", rec.Code)
	}
}

func TestHandlerArchive(t *testing.T) {
	g := sampleGeneration()
	sys := &mockSystem{
		findFn: func(context.Context, uuid.UUID) (*generations.Generation, error) {
			return &g, nil
		},
		archiveFn: func(context.Context, uuid.UUID) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(g.Result)), nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, request("GET", "/generations/"+g.ID.String()+"/archive", "", "alice"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != string(g.Result) {
		t.Errorf("body = %q, want %q", rec.Body.String(), g.Result)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
		t.Errorf("content disposition = %q", cd)
	}

	sys.archiveFn = func(context.Context, uuid.UUID) (io.ReadCloser, error) {
		return nil, generations.ErrNotArchived
	}
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, request("GET", "/generations/"+g.ID.String()+"/archive", "", "alice"))
	if rec.Code != http.StatusConflict {
		t.Errorf("unarchived status = %d, want 409", rec.Code)
	}
}

func TestHandlerDelete(t *testing.T) {
	g := sampleGeneration()
	deleted := false
	sys := &mockSystem{
		findFn: func(context.Context, uuid.UUID) (*generations.Generation, error) {
			return &g, nil
		},
		deleteFn: func(_ context.Context, id uuid.UUID) error {
			deleted = id == g.ID
			return nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, request("DELETE", "/generations/"+g.ID.String(), "", "mallory"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign delete status = %d, want 404", rec.Code)
	}
	if deleted {
		t.Fatal("foreign caller deleted the record")
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, request("DELETE", "/generations/"+g.ID.String(), "", "alice"))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if !deleted {
		t.Error("delete not called")
	}
}
