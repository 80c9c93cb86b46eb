package scheduler

import (
	"context"
	"time"

	"quotebuilder_backend/internal/config"
	quotesrepo "quotebuilder_backend/internal/quotes/repository"
	wizardrepo "quotebuilder_backend/internal/wizard/repository"
	"quotebuilder_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Worker processes the maintenance tasks: sweeping leaked wizard session
// keys and deleting stale empty draft quotes.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	quotes *quotesrepo.Repository
	wizard *wizardrepo.Store
	log    *logger.Logger
}

func NewWorker(cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 2,
		Queues: map[string]int{
			"default": 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		quotes: quotesrepo.New(pool),
		wizard: wizardrepo.New(rdb, cfg.Wizard.SessionTTL),
		log:    log,
	}

	mux.HandleFunc(TaskWizardSessionSweep, w.handleSessionSweep)
	mux.HandleFunc(TaskQuoteDraftCleanup, w.handleDraftCleanup)

	return w, nil
}

func (w *Worker) handleSessionSweep(ctx context.Context, _ *asynq.Task) error {
	removed, err := w.wizard.SweepExpired(ctx)
	if err != nil {
		w.log.Error("wizard session sweep failed", "error", err)
		return err
	}
	if removed > 0 {
		w.log.Info("swept leaked wizard sessions", "removed", removed)
	}
	return nil
}

func (w *Worker) handleDraftCleanup(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseQuoteDraftCleanupPayload(task)
	if err != nil {
		return err
	}

	before := time.Now().Add(-payload.Retention())
	removed, err := w.quotes.DeleteStaleEmptyDrafts(ctx, before)
	if err != nil {
		w.log.DatabaseError("delete stale empty drafts", err)
		return err
	}
	if removed > 0 {
		w.log.Info("deleted stale empty draft quotes", "removed", removed, "olderThan", before)
	}
	return nil
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
