package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical-ai/spherical/libs/shop-assistant/cmd/assistant-api/handlers"
	"github.com/spherical-ai/spherical/libs/shop-assistant/cmd/assistant-api/middleware"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/observability"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/ratelimit"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps holds everything the router serves.
type RouterDeps struct {
	Assistant        handlers.Responder
	Limiter          ratelimit.Limiter // nil disables rate limiting
	RateLimitKey     middleware.KeyFunc
	Auth             middleware.AuthConfig
	DB               Pinger
	RequestTimeout   time.Duration
	MaxMessageLength int
}

// NewRouter creates the API router.
func NewRouter(logger *observability.Logger, deps RouterDeps) http.Handler {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 10 * time.Second
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(deps.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "shop-assistant"})
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.DB != nil {
			if err := deps.DB.PingContext(r.Context()); err != nil {
				logger.WithContext(r.Context()).Warn().Err(err).Msg("Readiness check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	chatHandler := handlers.NewChatHandler(logger, deps.Assistant, handlers.ChatHandlerConfig{
		MaxMessageLength: deps.MaxMessageLength,
		BodyIdentity:     !deps.Auth.Enabled,
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Auth))
		if deps.Limiter != nil {
			r.Use(middleware.RateLimit(deps.Limiter, deps.RateLimitKey, logger))
		}

		r.Post("/chat", chatHandler.Post)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
