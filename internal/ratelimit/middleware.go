package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/stagecrew/backend-offers/internal/common"
)

// Config names the limited resource and its thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler rejects requests over the limit with 429 before they reach the
// route. Limiter errors fail open so a Redis outage does not take the API
// down with it.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// Middleware wraps next with the configured limit.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(h.Config.Max))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIPKey derives the limit key from the remote address, preferring the
// first X-Forwarded-For hop when present.
func ClientIPKey(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			for i := 0; i < len(fwd); i++ {
				if fwd[i] == ',' {
					return scope + ":" + fwd[:i]
				}
			}
			return scope + ":" + fwd
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return scope + ":" + r.RemoteAddr
		}
		return scope + ":" + host
	}
}
