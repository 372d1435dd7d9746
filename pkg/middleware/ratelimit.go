package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyFunc identifies the caller a request is rate limited under.
type KeyFunc func(r *http.Request) string

// RemoteAddr keys requests by client address.
func RemoteAddr(r *http.Request) string {
	return r.RemoteAddr
}

type limiters struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	byKey map[string]*entry
	idle  time.Duration
}

type entry struct {
	limiter *rate.Limiter
	seen    time.Time
}

func (l *limiters) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byKey[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = e
	}
	e.seen = now

	if len(l.byKey) > 1024 {
		for k, v := range l.byKey {
			if now.Sub(v.seen) > l.idle {
				delete(l.byKey, k)
			}
		}
	}

	return e.limiter
}

// RateLimit returns middleware that applies a token bucket per caller key.
// Requests over the limit receive 429 with a Retry-After header.
// Passes through when disabled.
func RateLimit(cfg *RateLimitConfig, key KeyFunc) Func {
	l := &limiters{
		limit: rate.Every(time.Minute / time.Duration(max(cfg.RequestsPerMinute, 1))),
		burst: cfg.Burst,
		byKey: make(map[string]*entry),
		idle:  10 * time.Minute,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			if !l.get(key(r), time.Now()).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MaxBytes returns middleware that caps request body size at limit bytes.
// A non-positive limit disables the cap.
func MaxBytes(limit int64) Func {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
