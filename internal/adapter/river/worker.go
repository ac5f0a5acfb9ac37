package river

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/workshops/internal/domain"
)

// EventWorker processes domain event jobs from the River queue.
// It logs the event; notification delivery would hook in here.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
	logger *slog.Logger
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	w.logger.InfoContext(ctx, "processing event",
		"event", job.Args.Event,
		"workshop_id", job.Args.WorkshopID,
		"user_id", job.Args.UserID,
		"occupancy", job.Args.Occupancy,
		"capacity", job.Args.Capacity,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}

// OccupancyAuditArgs schedules one comparison of every workshop's occupancy
// against its registrations.
type OccupancyAuditArgs struct{}

// Kind returns the unique job type identifier used by River's job routing.
func (OccupancyAuditArgs) Kind() string { return "occupancy.audit" }

// OccupancyAuditWorker reports drift between occupancy and the registration
// ledger. It never repairs it: admissions stay the only writer of occupancy.
type OccupancyAuditWorker struct {
	river.WorkerDefaults[OccupancyAuditArgs]
	auditor domain.OccupancyAuditor
	logger  *slog.Logger
}

// Work runs a single audit.
func (w *OccupancyAuditWorker) Work(ctx context.Context, _ *river.Job[OccupancyAuditArgs]) error {
	drift, err := w.auditor.OccupancyDrift(ctx)
	if err != nil {
		return fmt.Errorf("auditing occupancy: %w", err)
	}

	for _, d := range drift {
		w.logger.ErrorContext(ctx, "occupancy drift detected",
			"workshop_id", d.WorkshopID,
			"occupancy", d.Occupancy,
			"registrations", d.Registrations,
		)
	}

	w.logger.InfoContext(ctx, "occupancy audit finished", "drifted", len(drift))
	return nil
}
