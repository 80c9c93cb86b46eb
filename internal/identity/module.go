// Package identity provides the user accounts and entitlements domain module.
package identity

import (
	"time"

	apphttp "quotebuilder_backend/internal/http"
	"quotebuilder_backend/internal/identity/handler"
	"quotebuilder_backend/internal/identity/repository"
	"quotebuilder_backend/internal/identity/service"
	"quotebuilder_backend/platform/logger"
	"quotebuilder_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the identity domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new identity module with all dependencies wired
func NewModule(pool *pgxpool.Pool, log *logger.Logger, val *validator.Validator, jwtSecret string, tokenTTL time.Duration) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log, jwtSecret, tokenTTL)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "identity"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	auth := ctx.V1.Group("/auth")
	auth.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterPublicRoutes(auth)

	users := ctx.Protected.Group("/users")
	m.handler.RegisterRoutes(users)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
