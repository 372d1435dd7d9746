package module

import (
	"net/http"
	"strings"

	"github.com/JaimeStill/casestudio/pkg/handlers"
)

// Router dispatches on the first path segment to a mounted Module. Other
// paths go to a native ServeMux, which answers unmatched requests with a
// JSON 404.
type Router struct {
	modules map[string]*Module
	native  *http.ServeMux
}

func NewRouter() *Router {
	native := http.NewServeMux()
	native.HandleFunc("/", notFound)

	return &Router{
		modules: make(map[string]*Module),
		native:  native,
	}
}

// HandleNative registers a handler on the native mux. Native handlers run
// without any module middleware.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.native.HandleFunc(pattern, handler)
}

// Mount registers m under its prefix, replacing any module already there.
func (r *Router) Mount(m *Module) {
	r.modules[m.prefix] = m
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	trimTrailingSlash(req)

	if m, ok := r.modules[firstSegment(req.URL.Path)]; ok {
		m.Serve(w, req)
		return
	}

	r.native.ServeHTTP(w, req)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusNotFound, map[string]string{
		"error": "no route for " + r.Method + " " + r.URL.Path,
	})
}

func firstSegment(path string) string {
	rest, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	return "/" + rest
}

func trimTrailingSlash(req *http.Request) {
	if p := req.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
		req.URL.Path = strings.TrimSuffix(p, "/")
	}
}
