package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{BaseURL: srv.URL, Token: "s3cret"})
}

func TestClient_Chat(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat", r.URL.Path)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hola", req.Message)

		w.Header().Set("X-RateLimit-Limit", "10")
		w.Header().Set("X-RateLimit-Remaining", "9")
		w.Header().Set("X-RateLimit-Reset", "1700000060")
		_ = json.NewEncoder(w).Encode(map[string]string{"reply": "Puedo buscar productos"})
	})

	resp, err := c.Chat(context.Background(), ChatRequest{Message: "hola"})
	require.NoError(t, err)
	assert.Equal(t, "Puedo buscar productos", resp.Reply)
	assert.Equal(t, 10, resp.Limit)
	assert.Equal(t, 9, resp.Remaining)
	assert.Equal(t, int64(1700000060), resp.ResetAt.Unix())
}

func TestClient_ChatVehicle(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"model": "gol", "year": float64(2012)}, body["vehicle"])
		assert.NotContains(t, body, "userId")
		_ = json.NewEncoder(w).Encode(map[string]string{"reply": "ok"})
	})

	_, err := c.Chat(context.Background(), ChatRequest{Message: "filtro", Vehicle: &Vehicle{Model: "gol", Year: 2012}})
	require.NoError(t, err)
}

func TestClient_ChatErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "42")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"reply":"Demasiadas solicitudes, intentá más tarde."}`))
			},
			check: func(t *testing.T, err error) {
				var rl *RateLimitError
				require.True(t, errors.As(err, &rl))
				assert.Equal(t, 42*time.Second, rl.RetryAfter)
				assert.Equal(t, "Demasiadas solicitudes, intentá más tarde.", rl.Reply)
			},
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name: "validation",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"message is required"}`))
			},
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
				assert.Equal(t, "message is required", apiErr.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, tt.handler)
			resp, err := c.Chat(context.Background(), ChatRequest{Message: "x"})
			assert.Nil(t, resp)
			tt.check(t, err)
		})
	}
}

func TestClient_Ready(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"healthy","service":"shop-assistant"}`))
	})

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "shop-assistant", health.Service)

	ready, err := c.Ready(context.Background())
	require.Error(t, err)
	assert.Equal(t, "unavailable", ready.Status)
}
