package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/betaione/telegram-bind/internal/ratelimit"
	"github.com/betaione/telegram-bind/pkg/config"
)

// RateLimit enforces a per-client-IP quota for one endpoint. The bind
// confirm endpoint is the main target: the token is the only authorization,
// so brute-force attempts must be throttled. Limiter failures fail open —
// a broken Redis must not take the bind flow down with it.
func RateLimit(limiter ratelimit.Limiter, rule config.RateLimitRule, name string, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		if limiter == nil || !rule.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := name + ":" + clientIP(r)

			result, err := limiter.Check(r.Context(), key, rule.Limit, rule.Window)
			if err != nil {
				log.Warn("rate limiter check failed", slog.String("endpoint", name), slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
				if retryAfter < 1 {
					retryAfter = 1
				}

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Too many requests"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	// chi's RealIP middleware rewrites RemoteAddr from X-Forwarded-For.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
