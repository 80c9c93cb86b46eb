package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskWizardSessionSweep = "wizard.sessions.sweep"

const TaskQuoteDraftCleanup = "quotes.draft.cleanup"

// QuoteDraftCleanupPayload scopes one cleanup run. Retention is resolved at
// enqueue time so the worker needs no config of its own.
type QuoteDraftCleanupPayload struct {
	RetentionHours int `json:"retentionHours"`
}

// Retention returns the retention window, falling back to 30 days.
func (p QuoteDraftCleanupPayload) Retention() time.Duration {
	if p.RetentionHours <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(p.RetentionHours) * time.Hour
}

func NewWizardSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskWizardSessionSweep, nil)
}

func NewQuoteDraftCleanupTask(payload QuoteDraftCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuoteDraftCleanup, data), nil
}

func ParseQuoteDraftCleanupPayload(task *asynq.Task) (QuoteDraftCleanupPayload, error) {
	var payload QuoteDraftCleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return QuoteDraftCleanupPayload{}, err
	}
	return payload, nil
}
