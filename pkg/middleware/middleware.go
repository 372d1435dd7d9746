// Package middleware provides the HTTP middleware shared by casestudio modules.
package middleware

import "net/http"

// Func wraps a handler with additional behavior.
type Func = func(http.Handler) http.Handler

// System manages an ordered stack of HTTP middleware. The first Func added
// is the outermost.
type System interface {
	Use(mw Func)
	Apply(handler http.Handler) http.Handler
}

type stack struct {
	funcs []Func
}

// New creates a middleware System seeded with mws.
func New(mws ...Func) System {
	return &stack{funcs: append([]Func(nil), mws...)}
}

func (s *stack) Use(fn Func) {
	s.funcs = append(s.funcs, fn)
}

func (s *stack) Apply(handler http.Handler) http.Handler {
	for i := len(s.funcs) - 1; i >= 0; i-- {
		handler = s.funcs[i](handler)
	}
	return handler
}
