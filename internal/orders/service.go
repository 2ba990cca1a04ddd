// Package orders resolves order questions and enforces who may see what.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/observability"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/storage"
)

var (
	// ErrForbidden matches every *ForbiddenError.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated is returned when an operation needs a caller identity.
	ErrUnauthenticated = errors.New("caller identity required")
)

// ForbiddenError is an authorization failure carrying the message to show
// the caller.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// Is makes errors.Is(err, ErrForbidden) hold.
func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// Caller is who is asking.
type Caller struct {
	UserID  string
	IsAdmin bool
}

// Store is the order data the service reads.
type Store interface {
	GetOrderWithItems(ctx context.Context, id string) (*storage.Order, error)
	ListOrdersForUser(ctx context.Context, userID string, limit int) ([]storage.Order, error)
	FindUserByEmail(ctx context.Context, email string) (*storage.UserRef, error)
}

// Config bounds list sizes.
type Config struct {
	RecentLimit  int
	MaxRecent    int
	ByEmailLimit int
}

// Service looks orders up on behalf of a caller.
type Service struct {
	store  Store
	logger *observability.Logger
	config Config
}

// NewService creates an order service.
func NewService(store Store, logger *observability.Logger, cfg Config) *Service {
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 5
	}
	if cfg.MaxRecent < cfg.RecentLimit {
		cfg.MaxRecent = 20
	}
	if cfg.ByEmailLimit <= 0 {
		cfg.ByEmailLimit = 5
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{store: store, logger: logger.WithComponent("orders"), config: cfg}
}

// ByID returns the order if the caller owns it or is an admin. A missing
// order is (nil, nil).
func (s *Service) ByID(ctx context.Context, caller Caller, id string) (*storage.Order, error) {
	order, err := s.store.GetOrderWithItems(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}

	if !caller.IsAdmin && (caller.UserID == "" || caller.UserID != order.UserID) {
		s.logger.WithContext(ctx).Warn().
			Str("order_id", id).
			Str("caller", caller.UserID).
			Msg("Order access denied")
		return nil, &ForbiddenError{Message: "No tenés permiso para ver esta orden."}
	}
	return order, nil
}

// Recent returns the caller's newest orders. limit <= 0 selects the default;
// larger values are capped.
func (s *Service) Recent(ctx context.Context, caller Caller, limit int) ([]storage.Order, error) {
	if caller.UserID == "" {
		return nil, ErrUnauthenticated
	}
	orders, err := s.store.ListOrdersForUser(ctx, caller.UserID, s.recentLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ByEmail returns the newest orders of the account with the given email.
// Only admins may use it. An unknown email yields an empty list.
func (s *Service) ByEmail(ctx context.Context, caller Caller, email string) ([]storage.Order, error) {
	if !caller.IsAdmin {
		return nil, &ForbiddenError{Message: "Solo admin puede buscar por email."}
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	orders, err := s.store.ListOrdersForUser(ctx, user.ID, s.config.ByEmailLimit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *Service) recentLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.config.RecentLimit
	case limit > s.config.MaxRecent:
		return s.config.MaxRecent
	default:
		return limit
	}
}
