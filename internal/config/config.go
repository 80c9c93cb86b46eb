// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ReasonerConfig configures the remote reasoning client.
type ReasonerConfig struct {
	Provider string // "chatapi" or "gemini"
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// WizardConfig configures the quote wizard orchestrator.
type WizardConfig struct {
	// MaxReasonerCalls bounds the number of reasoning-service round trips
	// within a single conversation turn.
	MaxReasonerCalls int
	// SessionTTL is how long an idle wizard session survives in Redis.
	SessionTTL time.Duration
	// CatalogSearchLimit caps results returned by a single catalog lookup.
	CatalogSearchLimit int
}

// SchedulerConfig configures background maintenance jobs.
type SchedulerConfig struct {
	SessionSweepInterval time.Duration
	DraftRetention       time.Duration
}

type Config struct {
	Env            string
	HTTPAddr       string
	DatabaseURL    string
	RedisURL       string
	JWTSecret      string
	AccessTokenTTL time.Duration
	CORSOrigins    []string
	CORSAllowAll   bool
	Reasoner       ReasonerConfig
	Wizard         WizardConfig
	Scheduler      SchedulerConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		AccessTokenTTL: mustDuration(getEnv("JWT_ACCESS_TTL", "15m")),
		CORSOrigins:    corsOrigins,
		CORSAllowAll:   corsAllowAll,
		Reasoner: ReasonerConfig{
			Provider: getEnv("REASONER_PROVIDER", "chatapi"),
			BaseURL:  getEnv("REASONER_BASE_URL", "https://api.moonshot.ai/v1"),
			APIKey:   getEnv("REASONER_API_KEY", ""),
			Model:    getEnv("REASONER_MODEL", ""),
			Timeout:  mustDuration(getEnv("REASONER_TIMEOUT", "60s")),
		},
		Wizard: WizardConfig{
			MaxReasonerCalls:   mustInt(getEnv("WIZARD_MAX_REASONER_CALLS", "5")),
			SessionTTL:         mustDuration(getEnv("WIZARD_SESSION_TTL", "24h")),
			CatalogSearchLimit: mustInt(getEnv("WIZARD_CATALOG_SEARCH_LIMIT", "5")),
		},
		Scheduler: SchedulerConfig{
			SessionSweepInterval: mustDuration(getEnv("SESSION_SWEEP_INTERVAL", "1h")),
			DraftRetention:       mustDuration(getEnv("DRAFT_QUOTE_RETENTION", "720h")),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Reasoner.Provider != "chatapi" && cfg.Reasoner.Provider != "gemini" {
		return nil, fmt.Errorf("REASONER_PROVIDER must be 'chatapi' or 'gemini'")
	}
	if cfg.Reasoner.APIKey == "" {
		return nil, fmt.Errorf("REASONER_API_KEY is required")
	}
	if cfg.Wizard.MaxReasonerCalls < 1 {
		return nil, fmt.Errorf("WIZARD_MAX_REASONER_CALLS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
