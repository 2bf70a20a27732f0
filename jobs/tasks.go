// Package jobs runs background maintenance through Asynq.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPrune trims audit rows beyond the retention window.
	TaskAuditPrune = "audit:prune"
	// TaskSessionPrune removes expired session rows.
	TaskSessionPrune = "sessions:prune"
)

// PrunePayload carries the retention horizon for prune tasks.
type PrunePayload struct {
	Retention time.Duration `json:"retention"`
}

// AuditPruner removes audit rows older than retention.
type AuditPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// SessionPruner removes session rows expired before a cutoff.
type SessionPruner interface {
	PruneSessions(ctx context.Context, before time.Time) (int64, error)
}

// JobMetrics records job outcomes.
type JobMetrics interface {
	RecordJob(task, result string)
}

// NewAuditPruneTask constructs the audit prune task.
func NewAuditPruneTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(PrunePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}

// NewSessionPruneTask constructs the session prune task.
func NewSessionPruneTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskSessionPrune, nil), nil
}

// NewAuditPruneHandler returns the handler for TaskAuditPrune.
func NewAuditPruneHandler(logger *slog.Logger, pruner AuditPruner, metrics JobMetrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload PrunePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Retention <= 0 {
			return asynq.SkipRetry
		}
		removed, err := pruner.Prune(ctx, payload.Retention)
		if err != nil {
			if metrics != nil {
				metrics.RecordJob(TaskAuditPrune, "error")
			}
			return err
		}
		if metrics != nil {
			metrics.RecordJob(TaskAuditPrune, "ok")
		}
		logger.Info("audit prune finished", slog.Int64("removed", removed))
		return nil
	}
}

// NewSessionPruneHandler returns the handler for TaskSessionPrune.
func NewSessionPruneHandler(logger *slog.Logger, pruner SessionPruner, metrics JobMetrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := pruner.PruneSessions(ctx, time.Now().UTC())
		if err != nil {
			if metrics != nil {
				metrics.RecordJob(TaskSessionPrune, "error")
			}
			return err
		}
		if metrics != nil {
			metrics.RecordJob(TaskSessionPrune, "ok")
		}
		logger.Info("session prune finished", slog.Int64("removed", removed))
		return nil
	}
}
