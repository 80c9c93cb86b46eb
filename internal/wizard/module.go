// Package wizard provides the AI quote-drafting conversation module.
package wizard

import (
	"context"
	"time"

	catalogservice "quotebuilder_backend/internal/catalog/service"
	apphttp "quotebuilder_backend/internal/http"
	identityservice "quotebuilder_backend/internal/identity/service"
	quotesservice "quotebuilder_backend/internal/quotes/service"
	"quotebuilder_backend/internal/wizard/handler"
	"quotebuilder_backend/internal/wizard/repository"
	"quotebuilder_backend/internal/wizard/service"
	"quotebuilder_backend/platform/ai/reasoner"
	"quotebuilder_backend/platform/logger"
	"quotebuilder_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Module represents the wizard domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new wizard module with all dependencies wired.
// The session store lives in Redis; catalog, quotes, and identity are the
// sibling modules the conversation loop collaborates with.
func NewModule(
	rdb *redis.Client,
	client reasoner.Client,
	catalog *catalogservice.Service,
	quotes *quotesservice.Service,
	identity *identityservice.Service,
	log *logger.Logger,
	val *validator.Validator,
	sessionTTL time.Duration,
	maxReasonerCalls int,
	searchLimit int,
) *Module {
	store := repository.New(rdb, sessionTTL)
	svc := service.New(
		store,
		client,
		catalog,
		quotes,
		entitlementsAdapter{identity: identity},
		log,
		maxReasonerCalls,
		searchLimit,
	)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "wizard"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	wizard := ctx.Protected.Group("/wizard")
	m.handler.RegisterRoutes(wizard)
}

// entitlementsAdapter bridges identity's defaults type to the reasoner's.
type entitlementsAdapter struct {
	identity *identityservice.Service
}

func (a entitlementsAdapter) CanAccessWizard(ctx context.Context, userID uuid.UUID) (bool, error) {
	return a.identity.CanAccessWizard(ctx, userID)
}

func (a entitlementsAdapter) UserDefaults(ctx context.Context, userID uuid.UUID) (reasoner.UserDefaults, error) {
	defaults, err := a.identity.UserDefaults(ctx, userID)
	if err != nil {
		return reasoner.UserDefaults{}, err
	}
	return reasoner.UserDefaults{
		MarkupPercent:  defaults.MarkupPercent,
		LaborRateCents: defaults.LaborRateCents,
	}, nil
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
