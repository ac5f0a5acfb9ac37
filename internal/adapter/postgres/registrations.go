package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/neomorfeo/workshops/internal/domain"
)

// WithinWorkshop runs fn in one transaction. The first GetWorkshop through tx
// takes the row lock; waiting longer than the lock timeout yields
// domain.ErrUnavailable.
func (s *Store) WithinWorkshop(ctx context.Context, workshopID string, fn func(ctx context.Context, tx domain.AdmissionTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classifyTx(ctx, err, "beginning admission for "+workshopID)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`SELECT set_config('lock_timeout', $1, true)`,
		fmt.Sprintf("%dms", s.lockTimeout.Milliseconds()),
	); err != nil {
		return classify(err, "setting lock timeout")
	}

	if err := fn(ctx, &admissionTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyTx(ctx, err, "committing admission for "+workshopID)
	}
	return nil
}

type admissionTx struct {
	tx pgx.Tx
}

func (a *admissionTx) GetWorkshop(ctx context.Context, id string) (domain.Workshop, error) {
	return getWorkshop(ctx, a.tx, `SELECT `+workshopColumns+` FROM workshops WHERE id = $1 FOR UPDATE`, id)
}

func (a *admissionTx) InsertRegistrationIfAbsent(ctx context.Context, r domain.Registration) (bool, error) {
	tag, err := a.tx.Exec(ctx,
		`INSERT INTO registrations (id, user_id, workshop_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, workshop_id) DO NOTHING`,
		r.ID, r.UserID, r.WorkshopID, r.CreatedAt,
	)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return false, nil
		}
		return false, classify(err, "inserting registration")
	}
	return tag.RowsAffected() == 1, nil
}

func (a *admissionTx) IncrementOccupancyIfBelowCapacity(ctx context.Context, workshopID string) (bool, error) {
	tag, err := a.tx.Exec(ctx,
		`UPDATE workshops SET occupancy = occupancy + 1
		 WHERE id = $1 AND occupancy < capacity`,
		workshopID,
	)
	if err != nil {
		return false, classify(err, "incrementing occupancy")
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListRegistrationsFor(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT workshop_id FROM registrations WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing registrations: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) ListRegistrationsByWorkshop(ctx context.Context, workshopID string) ([]domain.Registration, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, workshop_id, created_at
		 FROM registrations WHERE workshop_id = $1
		 ORDER BY created_at, id`,
		workshopID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing registrations: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Registration, error) {
		var r domain.Registration
		var createdAt time.Time
		if err := row.Scan(&r.ID, &r.UserID, &r.WorkshopID, &createdAt); err != nil {
			return domain.Registration{}, err
		}
		r.CreatedAt = createdAt.UTC()
		return r, nil
	})
}

// OccupancyDrift returns every workshop whose occupancy differs from its
// registration count.
func (s *Store) OccupancyDrift(ctx context.Context) ([]domain.OccupancyDrift, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT w.id, w.occupancy, COUNT(r.id)::int
		 FROM workshops w
		 LEFT JOIN registrations r ON r.workshop_id = w.id
		 GROUP BY w.id, w.occupancy
		 HAVING w.occupancy <> COUNT(r.id)
		 ORDER BY w.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("auditing occupancy: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OccupancyDrift, error) {
		var d domain.OccupancyDrift
		err := row.Scan(&d.WorkshopID, &d.Occupancy, &d.Registrations)
		return d, err
	})
}
