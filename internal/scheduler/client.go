package scheduler

import (
	"crypto/tls"
	"fmt"

	"quotebuilder_backend/internal/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Periodic enqueues the maintenance tasks on their configured intervals.
// It wraps asynq's scheduler so cmd/scheduler only has to call Run.
type Periodic struct {
	scheduler *asynq.Scheduler
}

// NewPeriodic registers the session sweep and draft cleanup entries.
func NewPeriodic(cfg *config.Config) (*Periodic, error) {
	opt, err := redisClientOpt(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, nil)

	// Both maintenance tasks run on the sweep interval.
	spec := fmt.Sprintf("@every %s", cfg.Scheduler.SessionSweepInterval)
	if _, err := scheduler.Register(spec, NewWizardSessionSweepTask()); err != nil {
		return nil, err
	}

	cleanupTask, err := NewQuoteDraftCleanupTask(QuoteDraftCleanupPayload{
		RetentionHours: int(cfg.Scheduler.DraftRetention.Hours()),
	})
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(spec, cleanupTask); err != nil {
		return nil, err
	}

	return &Periodic{scheduler: scheduler}, nil
}

// Run blocks until the scheduler stops.
func (p *Periodic) Run() error {
	if p == nil || p.scheduler == nil {
		return nil
	}
	return p.scheduler.Run()
}

// Shutdown stops the scheduler.
func (p *Periodic) Shutdown() {
	if p == nil || p.scheduler == nil {
		return
	}
	p.scheduler.Shutdown()
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		tlsConfig = opt.TLSConfig.Clone()
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
