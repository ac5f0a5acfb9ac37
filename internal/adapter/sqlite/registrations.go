package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neomorfeo/workshops/internal/domain"
)

// WithinWorkshop runs fn in one transaction. With a single connection every
// transaction is serialized, which covers the per-workshop requirement.
func (s *Store) WithinWorkshop(ctx context.Context, workshopID string, fn func(ctx context.Context, tx domain.AdmissionTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyTx(ctx, err, "beginning admission for "+workshopID)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &admissionTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return classifyTx(ctx, err, "committing admission for "+workshopID)
	}
	return nil
}

type admissionTx struct {
	tx *sql.Tx
}

func (a *admissionTx) GetWorkshop(ctx context.Context, id string) (domain.Workshop, error) {
	return getWorkshop(ctx, a.tx, id)
}

func (a *admissionTx) InsertRegistrationIfAbsent(ctx context.Context, r domain.Registration) (bool, error) {
	result, err := a.tx.ExecContext(ctx,
		`INSERT INTO registrations (id, user_id, workshop_id, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, workshop_id) DO NOTHING`,
		r.ID, r.UserID, r.WorkshopID, formatTime(r.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, classify(err, "inserting registration")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n == 1, nil
}

func (a *admissionTx) IncrementOccupancyIfBelowCapacity(ctx context.Context, workshopID string) (bool, error) {
	result, err := a.tx.ExecContext(ctx,
		`UPDATE workshops SET occupancy = occupancy + 1
		 WHERE id = ? AND occupancy < capacity`,
		workshopID,
	)
	if err != nil {
		return false, classify(err, "incrementing occupancy")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *Store) ListRegistrationsFor(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT workshop_id FROM registrations WHERE user_id = ? ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing registrations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning registration row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ListRegistrationsByWorkshop(ctx context.Context, workshopID string) ([]domain.Registration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, workshop_id, created_at
		 FROM registrations WHERE workshop_id = ?
		 ORDER BY created_at, id`,
		workshopID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing registrations: %w", err)
	}
	defer rows.Close()

	var regs []domain.Registration
	for rows.Next() {
		var r domain.Registration
		var createdAt string
		if err := rows.Scan(&r.ID, &r.UserID, &r.WorkshopID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning registration row: %w", err)
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		regs = append(regs, r)
	}
	return regs, rows.Err()
}

// OccupancyDrift returns every workshop whose occupancy differs from its
// registration count.
func (s *Store) OccupancyDrift(ctx context.Context) ([]domain.OccupancyDrift, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT w.id, w.occupancy, COUNT(r.id)
		 FROM workshops w
		 LEFT JOIN registrations r ON r.workshop_id = w.id
		 GROUP BY w.id, w.occupancy
		 HAVING w.occupancy <> COUNT(r.id)
		 ORDER BY w.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("auditing occupancy: %w", err)
	}
	defer rows.Close()

	var drift []domain.OccupancyDrift
	for rows.Next() {
		var d domain.OccupancyDrift
		if err := rows.Scan(&d.WorkshopID, &d.Occupancy, &d.Registrations); err != nil {
			return nil, fmt.Errorf("scanning drift row: %w", err)
		}
		drift = append(drift, d)
	}
	return drift, rows.Err()
}
