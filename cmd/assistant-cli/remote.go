package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/chat"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/orders"
	"github.com/spherical-ai/spherical/libs/shop-assistant/pkg/assistant"
)

// remoteResponder answers through a running API server.
type remoteResponder struct {
	client *assistant.Client
}

func newRemoteResponder(baseURL, token string) *remoteResponder {
	return &remoteResponder{client: assistant.NewClient(assistant.ClientConfig{BaseURL: baseURL, Token: token})}
}

func (r *remoteResponder) Respond(ctx context.Context, message string, caller orders.Caller) string {
	req := assistant.ChatRequest{Message: message, UserID: caller.UserID}
	if v := chat.VehicleFromContext(ctx); !v.IsZero() {
		req.Vehicle = &assistant.Vehicle{Model: v.Model, Engine: v.Engine, Year: v.Year}
	}

	resp, err := r.client.Chat(ctx, req)
	if err == nil {
		return resp.Reply
	}

	var rl *assistant.RateLimitError
	if errors.As(err, &rl) {
		return rl.Reply
	}
	logger.Warn().Err(err).Str("message", message).Msg("Remote chat failed")
	return fmt.Sprintf("error: %v", err)
}
