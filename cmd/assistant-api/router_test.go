package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/spherical/libs/shop-assistant/cmd/assistant-api/middleware"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/chat"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/nlu"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/observability"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/orders"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/ratelimit"
)

type echoAssistant struct {
	lastCaller  orders.Caller
	lastVehicle nlu.Vehicle
}

func (e *echoAssistant) Respond(ctx context.Context, message string, caller orders.Caller) string {
	e.lastCaller = caller
	e.lastVehicle = chat.VehicleFromContext(ctx)
	return "echo: " + message
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func newTestRouter(deps RouterDeps) http.Handler {
	return NewRouter(observability.NopLogger(), deps)
}

func postChat(t *testing.T, h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(RouterDeps{Assistant: &echoAssistant{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestRouter_Ready(t *testing.T) {
	ok := newTestRouter(RouterDeps{Assistant: &echoAssistant{}, DB: pinger{}})
	rec := httptest.NewRecorder()
	ok.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newTestRouter(RouterDeps{Assistant: &echoAssistant{}, DB: pinger{err: errors.New("down")}})
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_Chat(t *testing.T) {
	assistant := &echoAssistant{}
	h := newTestRouter(RouterDeps{Assistant: assistant, MaxMessageLength: 20})

	tests := []struct {
		name   string
		body   string
		status int
		reply  string
	}{
		{"ok", `{"message":"hola"}`, http.StatusOK, "echo: hola"},
		{"malformed json", `{"message":`, http.StatusBadRequest, ""},
		{"missing message", `{"userId":"u1"}`, http.StatusBadRequest, ""},
		{"too long", `{"message":"` + strings.Repeat("a", 21) + `"}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postChat(t, h, tt.body, nil)
			assert.Equal(t, tt.status, rec.Code)
			if tt.reply != "" {
				var resp map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.reply, resp["reply"])
			}
		})
	}
}

func TestRouter_Vehicle(t *testing.T) {
	assistant := &echoAssistant{}
	h := newTestRouter(RouterDeps{Assistant: assistant})

	rec := postChat(t, h, `{"message":"filtro de aceite","vehicle":{"model":"Gol","engine":"1.6","year":2012}}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, nlu.Vehicle{Model: "Gol", Engine: "1.6", Year: 2012}, assistant.lastVehicle)

	rec = postChat(t, h, `{"message":"filtro de aceite"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, assistant.lastVehicle.IsZero())

	rec = postChat(t, h, `{"message":"filtro","vehicle":{"year":1800}}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_CallerIdentity(t *testing.T) {
	assistant := &echoAssistant{}
	h := newTestRouter(RouterDeps{Assistant: assistant})

	postChat(t, h, `{"message":"mis compras"}`, map[string]string{
		"X-User-ID":    "u-admin",
		"X-User-Roles": "customer, Admin",
	})
	assert.Equal(t, orders.Caller{UserID: "u-admin", IsAdmin: true}, assistant.lastCaller)

	// body user id fills in only for anonymous callers and never grants admin
	postChat(t, h, `{"message":"mis compras","userId":"u-body"}`, nil)
	assert.Equal(t, orders.Caller{UserID: "u-body"}, assistant.lastCaller)

	postChat(t, h, `{"message":"mis compras","userId":"u-body"}`, map[string]string{"X-User-ID": "u-header"})
	assert.Equal(t, "u-header", assistant.lastCaller.UserID)
}

func TestRouter_BearerTokens(t *testing.T) {
	assistant := &echoAssistant{}
	h := newTestRouter(RouterDeps{
		Assistant: assistant,
		Auth: middleware.AuthConfig{
			Enabled: true,
			Tokens:  []middleware.Token{{Token: "s3cret", UserID: "ops", Roles: []middleware.Role{middleware.RoleAdmin}}},
		},
	})

	rec := postChat(t, h, `{"message":"hola"}`, map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orders.Caller{UserID: "ops", IsAdmin: true}, assistant.lastCaller)

	rec = postChat(t, h, `{"message":"hola"}`, map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// dev headers are ignored once tokens are enforced
	rec = postChat(t, h, `{"message":"hola"}`, map[string]string{"X-User-ID": "x", "X-User-Roles": "admin"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orders.Caller{}, assistant.lastCaller)
}

func TestRouter_BearerTokensIgnoreBodyUserID(t *testing.T) {
	assistant := &echoAssistant{}
	h := newTestRouter(RouterDeps{
		Assistant: assistant,
		Auth: middleware.AuthConfig{
			Enabled: true,
			Tokens:  []middleware.Token{{Token: "s3cret", UserID: "ops"}},
		},
	})

	body := `{"message":"estado del pedido 3f1c2b7a-9d4e-4c1a-8b2f-0a1b2c3d4e5f","userId":"victim-user"}`

	rec := postChat(t, h, body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orders.Caller{}, assistant.lastCaller)

	rec = postChat(t, h, body, map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orders.Caller{UserID: "ops"}, assistant.lastCaller)
}

func TestRouter_RateLimit(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(ratelimit.Config{Window: time.Minute, Max: 2})
	defer limiter.Close()

	h := newTestRouter(RouterDeps{
		Assistant:    &echoAssistant{},
		Limiter:      limiter,
		RateLimitKey: middleware.ClientIP,
	})

	for i := 0; i < 2; i++ {
		rec := postChat(t, h, `{"message":"hola"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(1-i), rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
		assert.Empty(t, rec.Header().Get("Retry-After"))
	}

	rec := postChat(t, h, `{"message":"hola"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.True(t, retry > 0 && retry <= 60)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Demasiadas solicitudes, intentá más tarde.", resp["reply"])

	// another client has its own budget
	rec = postChat(t, h, `{"message":"hola"}`, map[string]string{"X-Real-IP": "10.0.0.9"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// health is never limited
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
