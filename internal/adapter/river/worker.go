package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// ProvisioningEventWorker processes provisioning event jobs from the River
// queue. For now it logs the event; this is the hook point for operator
// notifications or webhook delivery.
type ProvisioningEventWorker struct {
	river.WorkerDefaults[ProvisioningEventArgs]
}

// Work processes a single provisioning event job.
func (w *ProvisioningEventWorker) Work(ctx context.Context, job *river.Job[ProvisioningEventArgs]) error {
	slog.InfoContext(ctx, "provisioning event",
		"event_type", job.Args.EventType,
		"tenant_id", job.Args.TenantID,
		"tenant_slug", job.Args.Slug,
		"stack_name", job.Args.StackName,
		"status", job.Args.Status,
		"message", job.Args.Message,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
