package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"
)

const throttleKeyPrefix = "RATELIMIT:"

// Counter is a shared fixed-window counter. Incr bumps the count under key,
// starting the window on the first hit, and reports the count together with
// the time remaining until the window resets.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, retryAfter time.Duration, err error)
}

// Policy limits one route scope to Max requests per Window per client IP.
type Policy struct {
	Scope  string
	Max    int64
	Window time.Duration
}

// Throttle returns middleware enforcing the policy against the shared
// counter. The count survives restarts and is shared across replicas. A
// counter failure fails open: the request proceeds and the error is logged.
func Throttle(counter Counter, p Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := throttleKeyPrefix + p.Scope + ":" + realIP(r)
			count, retryAfter, err := counter.Incr(r.Context(), key, p.Window)
			if err != nil {
				slog.Error("rate limit counter unavailable", "scope", p.Scope, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if count > p.Max {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "Too Many Requests",
					"message": fmt.Sprintf("You have sent too many requests. Please try again in %d seconds.", seconds),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
