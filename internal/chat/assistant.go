// Package chat answers a single free-text message: it classifies the
// message, runs the matching lookup and renders the reply text.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/monitoring"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/nlu"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/observability"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/orders"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/retrieval"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/storage"
)

// Searcher runs product searches and point lookups.
type Searcher interface {
	Search(ctx context.Context, criteria nlu.SearchCriteria) retrieval.Result
	Product(ctx context.Context, id string) (*storage.Product, bool)
}

// OrderLookup resolves order questions for a caller.
type OrderLookup interface {
	ByID(ctx context.Context, caller orders.Caller, id string) (*storage.Order, error)
	Recent(ctx context.Context, caller orders.Caller, limit int) ([]storage.Order, error)
	ByEmail(ctx context.Context, caller orders.Caller, email string) ([]storage.Order, error)
}

// Assistant is the message dispatcher.
type Assistant struct {
	classifier *nlu.Classifier
	search     Searcher
	orders     OrderLookup
	audit      *monitoring.AuditLogger
	logger     *observability.Logger
}

// NewAssistant wires a dispatcher. audit and logger may be nil.
func NewAssistant(classifier *nlu.Classifier, search Searcher, orderLookup OrderLookup, audit *monitoring.AuditLogger, logger *observability.Logger) *Assistant {
	if classifier == nil {
		classifier = nlu.NewClassifier(nil)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Assistant{
		classifier: classifier,
		search:     search,
		orders:     orderLookup,
		audit:      audit,
		logger:     logger.WithComponent("chat"),
	}
}

// Respond always returns reply text. Failures are logged and turned into
// one of the fixed messages.
func (a *Assistant) Respond(ctx context.Context, message string, caller orders.Caller) (reply string) {
	start := time.Now()
	log := a.logger.WithContext(ctx)

	intent := a.classifier.Classify(message)
	log.Debug().
		Str("intent", string(intent.Kind())).
		Interface("args", intent).
		Msg("Intent classified")

	event := monitoring.AuditEvent{
		Intent: string(intent.Kind()),
		UserID: caller.UserID,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Chat dispatch panicked")
			reply = msgInternalError
			event.Outcome = monitoring.OutcomeError
		}
		event.LatencyMs = time.Since(start).Milliseconds()
		a.audit.Record(ctx, event)
	}()

	text, err := a.dispatch(ctx, intent, caller, &event)
	if err != nil {
		return a.replyForError(ctx, intent, err, &event)
	}
	return text
}

func (a *Assistant) dispatch(ctx context.Context, intent nlu.Intent, caller orders.Caller, event *monitoring.AuditEvent) (string, error) {
	switch it := intent.(type) {
	case nlu.ProductSearch:
		res := a.search.Search(ctx, VehicleFromContext(ctx).Apply(it.Criteria))
		event.Strategy = string(res.Strategy)
		event.Degraded = res.Degraded
		event.ResultCount = len(res.Items)
		if len(res.Items) == 0 {
			event.Outcome = monitoring.OutcomeEmpty
			return msgNoProducts, nil
		}
		event.Outcome = monitoring.OutcomeAnswered
		return renderProducts(res.Items), nil

	case nlu.OrderByID:
		order, err := a.orders.ByID(ctx, caller, it.ID)
		if err != nil {
			return "", err
		}
		if order == nil {
			event.Outcome = monitoring.OutcomeEmpty
			return orderNotFound(it.ID), nil
		}
		event.ResultCount = 1
		event.Outcome = monitoring.OutcomeAnswered
		return renderOrder(order), nil

	case nlu.OrderMine:
		list, err := a.orders.Recent(ctx, caller, it.Limit)
		if err != nil {
			return "", err
		}
		event.ResultCount = len(list)
		if len(list) == 0 {
			event.Outcome = monitoring.OutcomeEmpty
			return msgNoPurchases, nil
		}
		event.Outcome = monitoring.OutcomeAnswered
		return renderOrderList(list), nil

	case nlu.OrderByEmail:
		list, err := a.orders.ByEmail(ctx, caller, it.Email)
		if err != nil {
			return "", err
		}
		event.ResultCount = len(list)
		if len(list) == 0 {
			event.Outcome = monitoring.OutcomeEmpty
			return noOrdersForEmail(it.Email), nil
		}
		event.Outcome = monitoring.OutcomeAnswered
		return renderOrderList(list), nil

	case nlu.ProductRating:
		p, ok := a.search.Product(ctx, it.ProductID)
		if !ok {
			event.Outcome = monitoring.OutcomeEmpty
			return msgProductNotFound, nil
		}
		event.ResultCount = 1
		event.Outcome = monitoring.OutcomeAnswered
		return renderRating(p), nil

	default:
		event.Outcome = monitoring.OutcomeAnswered
		return msgHelp, nil
	}
}

func (a *Assistant) replyForError(ctx context.Context, intent nlu.Intent, err error, event *monitoring.AuditEvent) string {
	var forbidden *orders.ForbiddenError
	switch {
	case errors.As(err, &forbidden):
		event.Outcome = monitoring.OutcomeForbidden
		return forbidden.Message
	case errors.Is(err, orders.ErrUnauthenticated):
		event.Outcome = monitoring.OutcomeForbidden
		return msgLoginRequired
	default:
		event.Outcome = monitoring.OutcomeError
		a.logger.WithContext(ctx).Error().
			Err(err).
			Str("operation", string(intent.Kind())).
			Msg("Chat dispatch failed")
		return msgInternalError
	}
}
