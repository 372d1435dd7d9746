package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// exposedHeaders are response headers browser clients may read: export and
// archive file names, and rate limit back-off.
const exposedHeaders = "Content-Disposition, Retry-After"

// CORS returns middleware that applies CORS headers for allowed origins and
// answers preflight requests with 204. It is a pass-through when disabled or
// when no origins are configured.
func CORS(cfg *CORSConfig) Func {
	if !cfg.Enabled || len(cfg.Origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	allow := map[string]string{
		"Access-Control-Expose-Headers": exposedHeaders,
		"Access-Control-Allow-Methods":  strings.Join(cfg.AllowedMethods, ", "),
		"Access-Control-Allow-Headers":  strings.Join(cfg.AllowedHeaders, ", "),
	}
	if cfg.AllowCredentials {
		allow["Access-Control-Allow-Credentials"] = "true"
	}
	if cfg.MaxAge > 0 {
		allow["Access-Control-Max-Age"] = strconv.Itoa(cfg.MaxAge)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			if origin := r.Header.Get("Origin"); slices.Contains(cfg.Origins, origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				for k, v := range allow {
					h.Set(k, v)
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
