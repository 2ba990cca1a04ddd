// Package assistant provides the public Go SDK for the shop assistant API.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ErrUnauthorized is returned when the API rejects the bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// RateLimitError is returned when the caller is over budget.
type RateLimitError struct {
	Reply      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// APIError is any other non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("assistant api: %d %s", e.StatusCode, e.Message)
}

// Client is the public SDK client for the shop assistant.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new shop assistant client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8090"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: cfg.HTTPClient,
	}
}

// ChatRequest is the body of POST /api/v1/chat. UserID is honoured only by
// servers running without bearer tokens.
type ChatRequest struct {
	Message string   `json:"message"`
	UserID  string   `json:"userId,omitempty"`
	Vehicle *Vehicle `json:"vehicle,omitempty"`
}

// Vehicle narrows product searches to parts for the shopper's car.
type Vehicle struct {
	Model  string `json:"model,omitempty"`
	Engine string `json:"engine,omitempty"`
	Year   int    `json:"year,omitempty"`
}

// ChatResponse carries the assistant's reply and the caller's remaining
// budget as reported by the rate limit headers.
type ChatResponse struct {
	Reply     string    `json:"reply"`
	Limit     int       `json:"-"`
	Remaining int       `json:"-"`
	ResetAt   time.Time `json:"-"`
}

// Chat sends one message.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var out ChatResponse
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		out.Limit = headerInt(resp.Header, "X-RateLimit-Limit")
		out.Remaining = headerInt(resp.Header, "X-RateLimit-Remaining")
		if reset := headerInt(resp.Header, "X-RateLimit-Reset"); reset > 0 {
			out.ResetAt = time.Unix(int64(reset), 0)
		}
		return &out, nil
	case http.StatusTooManyRequests:
		var body struct {
			Reply string `json:"reply"`
		}
		_ = json.Unmarshal(data, &body)
		return nil, &RateLimitError{
			Reply:      body.Reply,
			RetryAfter: time.Duration(headerInt(resp.Header, "Retry-After")) * time.Second,
		}
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	default:
		var body struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: body.Error}
	}
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}

// Health checks liveness.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return c.status(ctx, "/health")
}

// Ready checks that the API can reach its database.
func (c *Client) Ready(ctx context.Context) (*HealthResponse, error) {
	return c.status(ctx, "/ready")
}

func (c *Client) status(ctx context.Context, path string) (*HealthResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var out HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &out, &APIError{StatusCode: resp.StatusCode, Message: out.Status}
	}
	return &out, nil
}

func headerInt(h http.Header, key string) int {
	n, _ := strconv.Atoi(h.Get(key))
	return n
}
