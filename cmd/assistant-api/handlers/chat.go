// Package handlers provides HTTP handlers for the assistant API.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/spherical-ai/spherical/libs/shop-assistant/cmd/assistant-api/middleware"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/chat"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/nlu"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/observability"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/orders"
)

var validate = validator.New()

// Responder answers one chat message.
type Responder interface {
	Respond(ctx context.Context, message string, caller orders.Caller) string
}

// ChatHandler handles chat messages.
type ChatHandler struct {
	logger           *observability.Logger
	assistant        Responder
	maxMessageLength int
	bodyIdentity     bool
}

// ChatHandlerConfig configures a ChatHandler.
type ChatHandlerConfig struct {
	MaxMessageLength int
	// BodyIdentity lets the body userId stand in for an anonymous caller.
	// Only development header mode sets it; with bearer tokens the body is
	// never a source of identity.
	BodyIdentity bool
}

// NewChatHandler creates a chat handler.
func NewChatHandler(logger *observability.Logger, assistant Responder, cfg ChatHandlerConfig) *ChatHandler {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = 1000
	}
	return &ChatHandler{
		logger:           logger,
		assistant:        assistant,
		maxMessageLength: cfg.MaxMessageLength,
		bodyIdentity:     cfg.BodyIdentity,
	}
}

// ChatRequestDTO is the body of POST /chat.
type ChatRequestDTO struct {
	Message string      `json:"message" validate:"required"`
	UserID  string      `json:"userId,omitempty" validate:"omitempty,max=128"`
	Vehicle *VehicleDTO `json:"vehicle,omitempty"`
}

// VehicleDTO is the shopper's car, used to narrow product searches.
type VehicleDTO struct {
	Model  string `json:"model,omitempty" validate:"max=64"`
	Engine string `json:"engine,omitempty" validate:"max=64"`
	Year   int    `json:"year,omitempty" validate:"omitempty,min=1950,max=2100"`
}

// ChatResponseDTO is the reply envelope.
type ChatResponseDTO struct {
	Reply string `json:"reply"`
}

// Post handles POST /api/v1/chat. Malformed bodies get 400; everything
// else gets 200 with a reply, including pipeline failures.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChatRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	if err := validate.Var(req.Message, fmt.Sprintf("max=%d", h.maxMessageLength)); err != nil {
		h.writeError(w, http.StatusBadRequest, "message too long", fmt.Sprintf("max %d characters", h.maxMessageLength))
		return
	}

	caller := middleware.CallerFromContext(ctx)
	if caller.UserID == "" && h.bodyIdentity {
		// A body user id never carries admin rights.
		caller.UserID = req.UserID
	}

	if req.Vehicle != nil {
		ctx = chat.WithVehicle(ctx, nlu.Vehicle{
			Model:  req.Vehicle.Model,
			Engine: req.Vehicle.Engine,
			Year:   req.Vehicle.Year,
		})
	}

	reply := h.assistant.Respond(ctx, req.Message, caller)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ChatResponseDTO{Reply: reply}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *ChatHandler) writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{
		"error": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	_ = json.NewEncoder(w).Encode(resp)
}
