package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPrune trims audit log entries older than the retention window.
	TaskAuditPrune = "audit:prune"
)

// AuditPrunePayload carries the retention window for an audit prune run.
type AuditPrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewAuditPruneTask constructs an Asynq task for pruning the audit log.
func NewAuditPruneTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditPrunePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}

// systemIdentity is the remote-session context maintenance jobs run under.
var systemIdentity = &shared.Identity{Username: "system", Role: shared.RoleAdmin, Clearance: 10}

// AuditPruneJob deletes audit entries past the retention window through the
// remote procedure layer.
type AuditPruneJob struct {
	invoker gateway.Invoker
	logger  *slog.Logger
}

// NewAuditPruneJob constructs the prune job.
func NewAuditPruneJob(invoker gateway.Invoker, logger *slog.Logger) *AuditPruneJob {
	return &AuditPruneJob{invoker: invoker, logger: logger}
}

// Handle processes TaskAuditPrune tasks.
func (j *AuditPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AuditPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionDays <= 0 {
		return asynq.SkipRetry
	}
	res, err := j.invoker.Invoke(ctx, systemIdentity, "sp_prune_audit_log", payload.RetentionDays)
	if err != nil {
		if j.logger != nil {
			j.logger.Error("audit prune", slog.Any("error", err))
		}
		return err
	}
	if j.logger != nil {
		pruned := int64(0)
		if rec, ok := res.First(); ok {
			pruned, _ = rec.Int64("pruned")
		}
		j.logger.Info("audit prune complete",
			slog.Int("retention_days", payload.RetentionDays),
			slog.Int64("pruned", pruned))
	}
	return nil
}
