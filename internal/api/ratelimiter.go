package api

import (
	"net/http"

	"golang.org/x/time/rate"
)

// writeLimiter decides whether another config write may run now.
type writeLimiter interface {
	Allow() bool
}

// writeBucket throttles saves and reloads of the config file, each of which
// rewrites or re-parses the whole document.
type writeBucket struct {
	limiter *rate.Limiter
}

func newWriteBucket(writesPerSecond float64, burst int) writeLimiter {
	if writesPerSecond <= 0 {
		writesPerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &writeBucket{limiter: rate.NewLimiter(rate.Limit(writesPerSecond), burst)}
}

func (b *writeBucket) Allow() bool {
	if b == nil || b.limiter == nil {
		return true
	}
	return b.limiter.Allow()
}

// writeLimitMiddleware rejects PUT and POST requests beyond the write budget.
// Reads are served from memory and are never limited.
func writeLimitMiddleware(limiter writeLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isMutating(r.Method) || limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "Too many writes", "config writes are rate limited, retry shortly")
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}
