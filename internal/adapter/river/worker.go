package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// AuditWorker drains the audit outbox. Each job becomes one structured
// log line on the daemon's logger.
type AuditWorker struct {
	river.WorkerDefaults[AuditJobArgs]
	logger *slog.Logger
}

// Work processes a single audit job.
func (w *AuditWorker) Work(ctx context.Context, job *river.Job[AuditJobArgs]) error {
	w.logger.InfoContext(ctx, "audit",
		"event", job.Args.Event,
		"value", job.Args.Value,
		"variant", job.Args.Variant,
		"category", job.Args.Category,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
