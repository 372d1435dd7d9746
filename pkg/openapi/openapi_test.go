package openapi_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/casestudio/pkg/openapi"
)

func TestNewSpec(t *testing.T) {
	spec := openapi.NewSpec(&openapi.Config{
		Title:       "Test API",
		Description: "For tests",
		Servers:     []string{"https://cases.example.com/api"},
	}, "1.0.0")

	if spec.OpenAPI != "3.1.0" {
		t.Errorf("openapi version: got %s, want 3.1.0", spec.OpenAPI)
	}
	if spec.Info.Title != "Test API" || spec.Info.Version != "1.0.0" || spec.Info.Description != "For tests" {
		t.Errorf("info: got %+v", spec.Info)
	}
	if len(spec.Servers) != 1 || spec.Servers[0].URL != "https://cases.example.com/api" {
		t.Errorf("servers: got %v", spec.Servers)
	}
	if spec.Components == nil || spec.Paths == nil {
		t.Fatal("components and paths should be initialized")
	}
	for _, name := range []string{"BadRequest", "Unauthorized", "NotFound", "TooManyRequests", "BadGateway"} {
		if _, ok := spec.Components.Responses[name]; !ok {
			t.Errorf("missing shared response %s", name)
		}
	}
}

func TestRefs(t *testing.T) {
	if ref := openapi.SchemaRef("Generation"); ref.Ref != "#/components/schemas/Generation" {
		t.Errorf("schema ref: got %s", ref.Ref)
	}
	if ref := openapi.ResponseRef("NotFound"); ref.Ref != "#/components/responses/NotFound" {
		t.Errorf("response ref: got %s", ref.Ref)
	}
}

func TestEnumPathParam(t *testing.T) {
	p := openapi.EnumPathParam("type", "Generation type", "outline", "summary")

	if p.In != "path" || !p.Required {
		t.Errorf("param: got in=%s required=%v", p.In, p.Required)
	}
	if len(p.Schema.Enum) != 2 || p.Schema.Enum[0] != "outline" {
		t.Errorf("enum: got %v", p.Schema.Enum)
	}
}

func TestResponseEventStream(t *testing.T) {
	r := openapi.ResponseEventStream("Stream events", "StreamEvent")

	mt, ok := r.Content["text/event-stream"]
	if !ok {
		t.Fatal("missing text/event-stream content")
	}
	if mt.Schema.Ref != "#/components/schemas/StreamEvent" {
		t.Errorf("schema ref: got %s", mt.Schema.Ref)
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_OPENAPI_TITLE", "Overridden")
	t.Setenv("TEST_OPENAPI_SERVERS", "https://a.example/api, ,https://b.example/api")

	cfg := openapi.Config{}
	err := cfg.Finalize(&openapi.ConfigEnv{
		Title:   "TEST_OPENAPI_TITLE",
		Servers: "TEST_OPENAPI_SERVERS",
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if cfg.Title != "Overridden" {
		t.Errorf("title: got %s", cfg.Title)
	}
	if len(cfg.Servers) != 2 || cfg.Servers[1] != "https://b.example/api" {
		t.Errorf("servers: got %v", cfg.Servers)
	}
	if cfg.Description == "" {
		t.Error("description should default")
	}
}

func TestServeSpec(t *testing.T) {
	spec := openapi.NewSpec(&openapi.Config{Title: "Test"}, "1.0.0")
	data, err := openapi.MarshalJSON(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	rec := httptest.NewRecorder()
	openapi.ServeSpec(data)(rec, httptest.NewRequest("GET", "/openapi.json", nil))

	res := rec.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Errorf("status: got %d", res.StatusCode)
	}

	body, _ := io.ReadAll(res.Body)
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed["openapi"] != "3.1.0" {
		t.Errorf("openapi: got %v", parsed["openapi"])
	}
}

func TestServeSpecConditional(t *testing.T) {
	handler := openapi.ServeSpec([]byte(`{"openapi":"3.1.0"}`))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("GET", "/openapi.json", nil))

	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	tests := []struct {
		name        string
		ifNoneMatch string
		want        int
	}{
		{"matching", etag, http.StatusNotModified},
		{"weak match in list", `"other", W/` + etag, http.StatusNotModified},
		{"wildcard", "*", http.StatusNotModified},
		{"stale", `"deadbeef"`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/openapi.json", nil)
			req.Header.Set("If-None-Match", tt.ifNoneMatch)
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNotModified && rec.Body.Len() != 0 {
				t.Errorf("304 carried a body: %q", rec.Body.String())
			}
		})
	}
}
