package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quotebuilder_backend/internal/catalog"
	"quotebuilder_backend/internal/config"
	apphttp "quotebuilder_backend/internal/http"
	"quotebuilder_backend/internal/http/router"
	"quotebuilder_backend/internal/identity"
	"quotebuilder_backend/internal/quotes"
	"quotebuilder_backend/internal/wizard"
	"quotebuilder_backend/migrations"
	"quotebuilder_backend/platform/ai/reasoner"
	"quotebuilder_backend/platform/db"
	"quotebuilder_backend/platform/logger"
	"quotebuilder_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg.DatabaseURL, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid redis url", "error", err)
		panic("invalid redis url: " + err.Error())
	}
	rdb := redis.NewClient(redisOpt)
	defer func() { _ = rdb.Close() }()

	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	log.Info("redis connection established")

	reasonerClient, err := reasoner.New(ctx, reasoner.Config{
		Provider: cfg.Reasoner.Provider,
		BaseURL:  cfg.Reasoner.BaseURL,
		APIKey:   cfg.Reasoner.APIKey,
		Model:    cfg.Reasoner.Model,
		Timeout:  cfg.Reasoner.Timeout,
	})
	if err != nil {
		log.Error("failed to initialize reasoner client", "error", err)
		panic("failed to initialize reasoner client: " + err.Error())
	}
	log.Info("reasoner client initialized", "provider", cfg.Reasoner.Provider, "model", cfg.Reasoner.Model)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	identityModule := identity.NewModule(pool, log, val, cfg.JWTSecret, cfg.AccessTokenTTL)
	catalogModule := catalog.NewModule(pool, log, val)
	quotesModule := quotes.NewModule(pool, log, val)
	wizardModule := wizard.NewModule(
		rdb,
		reasonerClient,
		catalogModule.Service(),
		quotesModule.Service(),
		identityModule.Service(),
		log,
		val,
		cfg.Wizard.SessionTTL,
		cfg.Wizard.MaxReasonerCalls,
		cfg.Wizard.CatalogSearchLimit,
	)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			identityModule,
			catalogModule,
			quotesModule,
			wizardModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
