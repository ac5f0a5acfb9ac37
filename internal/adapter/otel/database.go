package otel

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultBusyTimeout is used when OpenDB is given no admission timeout.
const DefaultBusyTimeout = 5 * time.Second

// OpenDB opens the portal's SQLite database with OpenTelemetry
// instrumentation. busyTimeout is how long a statement waits for the write
// lock; it should match the admission timeout so a blocked admission fails
// as unavailable instead of hanging.
func OpenDB(dataSourceName string, busyTimeout time.Duration) (*sql.DB, error) {
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}
	attrs := otelsql.WithAttributes(semconv.DBSystemSqlite, StorageDriverKey.String("sqlite"))

	db, err := otelsql.Open("sqlite", dataSourceName, attrs)
	if err != nil {
		return nil, fmt.Errorf("opening workshop database: %w", err)
	}

	// One connection is shared by the store and River. It also serializes
	// every write transaction, which admissions rely on.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout.Milliseconds()),
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := otelsql.RegisterDBStatsMetrics(db, attrs); err != nil {
		db.Close()
		return nil, fmt.Errorf("registering db stats metrics: %w", err)
	}

	return db, nil
}
