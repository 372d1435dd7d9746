package middleware_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/casestudio/pkg/middleware"
)

func TestApplyOrder(t *testing.T) {
	var order []string
	mw := middleware.New()

	for _, name := range []string{"first", "second"} {
		mw.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		})
	}

	handler := mw.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "handler" {
		t.Errorf("order: got %v, want [first second handler]", order)
	}
}

func TestCORS(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled:          true,
		Origins:          []string{"http://localhost:5173"},
		AllowCredentials: true,
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	handler := middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"allowed origin", "GET", "http://localhost:5173", "http://localhost:5173", http.StatusTeapot},
		{"disallowed origin", "GET", "http://evil.example", "", http.StatusTeapot},
		{"preflight", "OPTIONS", "http://localhost:5173", "http://localhost:5173", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/api/generations", nil)
			req.Header.Set("Origin", tt.origin)
			handler.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow-origin: got %q, want %q", got, tt.wantOrigin)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantOrigin != "" && rec.Header().Get("Access-Control-Expose-Headers") == "" {
				t.Error("expose-headers not set for allowed origin")
			}
			if got := rec.Header().Get("Vary"); got != "Origin" {
				t.Errorf("vary: got %q, want Origin", got)
			}
		})
	}
}

func TestCORSDisabled(t *testing.T) {
	cfg := &middleware.CORSConfig{Origins: []string{"http://localhost:5173"}}

	handler := middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/api/generations", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusTeapot)
	}
	if len(rec.Header()) != 0 {
		t.Errorf("headers set while disabled: %v", rec.Header())
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    []string
	}{
		{
			"implicit ok",
			func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("hello")) },
			[]string{"level=INFO", "status=200", "bytes=5"},
		},
		{
			"client error",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			[]string{"level=WARN", "status=404"},
		},
		{
			"server error",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			[]string{"level=ERROR", "status=502"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			handler := middleware.Logger(logger)(tt.handler)
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/generations?page=2", nil))

			out := buf.String()
			for _, want := range append(tt.want, "uri=\"/api/generations?page=2\"") {
				if !strings.Contains(out, want) {
					t.Errorf("log %q missing %q", out, want)
				}
			}
		})
	}
}

func TestLoggerPreservesFlusher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var flushable bool
	handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		flushable = ok
		w.Write([]byte("data: {}\n\n"))
		if ok {
			f.Flush()
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/stream", nil))

	if !flushable {
		t.Fatal("wrapped writer does not implement http.Flusher")
	}
	if !rec.Flushed {
		t.Error("flush did not reach the underlying writer")
	}
}

func TestRateLimit(t *testing.T) {
	cfg := &middleware.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2}

	handler := middleware.RateLimit(cfg, middleware.RemoteAddr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(addr string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/generations", nil)
		req.RemoteAddr = addr
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := call("10.0.0.1:1000"); got != http.StatusOK {
		t.Fatalf("first request: got %d", got)
	}
	if got := call("10.0.0.1:1000"); got != http.StatusOK {
		t.Fatalf("second request within burst: got %d", got)
	}
	if got := call("10.0.0.1:1000"); got != http.StatusTooManyRequests {
		t.Errorf("third request: got %d, want 429", got)
	}
	if got := call("10.0.0.2:1000"); got != http.StatusOK {
		t.Errorf("other caller: got %d, want 200", got)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := &middleware.RateLimitConfig{Enabled: false, RequestsPerMinute: 1, Burst: 1}
	handler := middleware.RateLimit(cfg, middleware.RemoteAddr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for range 5 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200", rec.Code)
		}
	}
}

func TestRateLimitConfigFinalize(t *testing.T) {
	t.Setenv("TEST_RL_ENABLED", "true")
	t.Setenv("TEST_RL_RPM", "120")

	cfg := &middleware.RateLimitConfig{}
	err := cfg.Finalize(&middleware.RateLimitEnv{
		Enabled:           "TEST_RL_ENABLED",
		RequestsPerMinute: "TEST_RL_RPM",
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if !cfg.Enabled || cfg.RequestsPerMinute != 120 || cfg.Burst != 5 {
		t.Errorf("config: got %+v", cfg)
	}
}

func TestMaxBytes(t *testing.T) {
	handler := middleware.MaxBytes(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/", bytes.NewBufferString("short")))
	if rec.Code != http.StatusOK {
		t.Errorf("small body: got %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/", bytes.NewBufferString("this body is too long")))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body: got %d, want 413", rec.Code)
	}
}
