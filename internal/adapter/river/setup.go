package river

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/neomorfeo/workshops/internal/domain"
)

// Options configures the workers registered on a client.
type Options struct {
	// Auditor enables the periodic occupancy audit when set.
	Auditor       domain.OccupancyAuditor
	AuditInterval time.Duration
	Logger        *slog.Logger
}

// Setup creates a River client on SQLite with the workers registered and runs
// River's internal migrations. The caller must call client.Start() to begin
// processing jobs and client.Stop() for graceful shutdown.
func Setup(ctx context.Context, db *sql.DB, opts Options) (*Client, error) {
	return setup[*sql.Tx](ctx, riversqlite.New(db), opts)
}

// SetupPostgres is Setup for a PostgreSQL pool.
func SetupPostgres(ctx context.Context, pool *pgxpool.Pool, opts Options) (*river.Client[pgx.Tx], error) {
	return setup[pgx.Tx](ctx, riverpgxv5.New(pool), opts)
}

func setup[TTx any](ctx context.Context, driver riverdriver.Driver[TTx], opts Options) (*river.Client[TTx], error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Run River's own migrations (creates river_job, river_leader, etc.).
	// These are separate from the app's goose migrations.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("running river migrations: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &EventWorker{logger: logger})

	var periodic []*river.PeriodicJob
	if opts.Auditor != nil {
		river.AddWorker(workers, &OccupancyAuditWorker{auditor: opts.Auditor, logger: logger})

		interval := opts.AuditInterval
		if interval <= 0 {
			interval = 15 * time.Minute
		}
		periodic = append(periodic, river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return OccupancyAuditArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}

	client, err := river.NewClient(driver, &river.Config{
		Logger: logger,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, nil
}
