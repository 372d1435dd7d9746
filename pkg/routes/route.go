package routes

import "net/http"

// Route binds an HTTP method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// String returns the ServeMux pattern for r mounted under prefix.
func (r Route) String(prefix string) string {
	return r.Method + " " + prefix + r.Pattern
}

// Is reports whether r is registered for method and pattern.
func (r Route) Is(method, pattern string) bool {
	return r.Method == method && r.Pattern == pattern
}
