// Package postgres implements the portal's persistence ports on PostgreSQL.
//
// Admissions lock the workshop row with SELECT ... FOR UPDATE, so concurrent
// registrations for one workshop are serialized by the database while other
// workshops proceed in parallel.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/workshops/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time checks.
var (
	_ domain.Store             = (*Store)(nil)
	_ domain.OccupancyAuditor  = (*Store)(nil)
	_ domain.ProfileRepository = (*Store)(nil)
)

// DefaultLockTimeout bounds how long an admission waits for a workshop row.
const DefaultLockTimeout = 5 * time.Second

// Store implements domain.Store on a pgx connection pool.
type Store struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// New connects to PostgreSQL, runs migrations, and returns a ready store.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if err := Migrate(pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool, lockTimeout: DefaultLockTimeout}, nil
}

// SetLockTimeout changes how long an admission waits for a row lock.
func (s *Store) SetLockTimeout(d time.Duration) {
	s.lockTimeout = d
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Pool returns the underlying pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Migrate applies the embedded schema migrations through a database/sql view
// of the pool.
func Migrate(pool *pgxpool.Pool) error {
	// The sql.DB keeps no idle connections of its own; the pool owns them.
	db := stdlib.OpenDBFromPool(pool)

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const (
	codeUniqueViolation      = "23505"
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// classify maps lock contention onto domain.ErrUnavailable.
func classify(err error, op string) error {
	switch pgCode(err) {
	case codeLockNotAvailable, codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %s: %v", domain.ErrUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// classifyTx is classify for transaction boundaries. A deadline that expires
// mid-transaction surfaces as a closed transaction, not as a context error.
func classifyTx(ctx context.Context, err error, op string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", domain.ErrUnavailable, op, err)
	}
	return classify(err, op)
}
