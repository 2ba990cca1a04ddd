package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/observability"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/ratelimit"
)

const tooManyRequestsReply = "Demasiadas solicitudes, intentá más tarde."

// KeyFunc derives the rate limit key for a request.
type KeyFunc func(r *http.Request) string

// ClientIP keys on the remote address. Run chi's RealIP first so proxies
// are accounted for.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// UserOrIP keys on the authenticated user and falls back to the client IP.
// Run Auth first.
func UserOrIP(r *http.Request) string {
	if id := UserFromContext(r.Context()); id != "" {
		return "user:" + id
	}
	return "ip:" + ClientIP(r)
}

// KeyFuncFor maps the configured key name to a KeyFunc.
func KeyFuncFor(name string) KeyFunc {
	if name == "user" {
		return UserOrIP
	}
	return ClientIP
}

// RateLimit admits requests through limiter. Every admitted or denied
// response carries X-RateLimit-* headers; denials add Retry-After. If the
// limiter itself fails the request is let through.
func RateLimit(limiter ratelimit.Limiter, keyFunc KeyFunc, logger *observability.Logger) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	now := time.Now

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			d, err := limiter.Admit(r.Context(), key, now())
			if err != nil {
				logger.WithContext(r.Context()).Warn().
					Err(err).
					Str("key", key).
					Msg("Rate limiter unavailable, admitting request")
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetUnix(), 10))

			if !d.Allowed {
				h.Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds()))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"reply": tooManyRequestsReply})

				logger.WithContext(r.Context()).Info().
					Str("key", key).
					Int("retry_after", d.RetryAfterSeconds()).
					Msg("Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
