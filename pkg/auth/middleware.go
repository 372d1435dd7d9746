package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
)

type callerKey struct{}

// WithCaller returns a copy of ctx carrying c.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// FromContext returns the caller attached by Require.
func FromContext(ctx context.Context) (*Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(*Caller)
	return c, ok && c != nil
}

// Require returns middleware that authenticates every request except the
// listed public paths and rejects failures with 401.
func Require(p Provider, logger *slog.Logger, public ...string) func(http.Handler) http.Handler {
	logger = logger.With("middleware", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || slices.Contains(public, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			caller, err := p.Authenticate(r)
			if err != nil {
				logger.Warn("authentication failed", "path", r.URL.Path, "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="casestudio"`)
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": ErrUnauthorized.Error()})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// Key returns the authenticated subject for per-caller limits, falling back
// to the client address.
func Key(r *http.Request) string {
	if c, ok := FromContext(r.Context()); ok && c.Method != Anonymous.Method {
		return "subject:" + c.Subject
	}
	return "addr:" + r.RemoteAddr
}
