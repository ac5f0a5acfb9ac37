package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/neomorfeo/workshops/internal/domain"
)

const workshopColumns = `id, title, description, start_at, end_at, location,
	capacity, occupancy, COALESCE(image_url, ''), created_at, updated_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) CreateWorkshop(ctx context.Context, w domain.Workshop) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO workshops (id, title, description, start_at, end_at, location,
		     capacity, occupancy, image_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)`,
		w.ID, w.Title, w.Description, w.StartsAt, w.EndsAt, w.Location,
		w.Capacity, w.Occupancy, w.ImageURL, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return classify(err, "inserting workshop")
	}
	return nil
}

func (s *Store) GetWorkshop(ctx context.Context, id string) (domain.Workshop, error) {
	return getWorkshop(ctx, s.pool, `SELECT `+workshopColumns+` FROM workshops WHERE id = $1`, id)
}

func getWorkshop(ctx context.Context, q querier, query, id string) (domain.Workshop, error) {
	w, err := scanWorkshop(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Workshop{}, domain.ErrWorkshopNotFound
	}
	if err != nil {
		return domain.Workshop{}, classify(err, "scanning workshop")
	}
	return w, nil
}

func (s *Store) ListWorkshops(ctx context.Context, filter domain.ListFilter) ([]domain.Workshop, error) {
	query := `SELECT ` + workshopColumns + ` FROM workshops`
	var args []any

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		query += fmt.Sprintf(` WHERE title ILIKE $%d`, len(args))
	}

	if filter.Order == domain.OrderStartDesc {
		query += ` ORDER BY start_at DESC, id`
	} else {
		query += ` ORDER BY start_at ASC, id`
	}

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing workshops: %w", err)
	}
	defer rows.Close()

	var workshops []domain.Workshop
	for rows.Next() {
		w, err := scanWorkshop(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workshop row: %w", err)
		}
		workshops = append(workshops, w)
	}

	return workshops, rows.Err()
}

// UpdateWorkshop replaces the definition columns only; occupancy is untouched.
func (s *Store) UpdateWorkshop(ctx context.Context, id string, def domain.Definition) (domain.Workshop, error) {
	w, err := scanWorkshop(s.pool.QueryRow(ctx,
		`UPDATE workshops
		 SET title = $2, description = $3, start_at = $4, end_at = $5, location = $6,
		     capacity = $7, image_url = NULLIF($8, ''), updated_at = $9
		 WHERE id = $1
		 RETURNING `+workshopColumns,
		id, def.Title, def.Description, def.StartsAt, def.EndsAt, def.Location,
		def.Capacity, def.ImageURL, time.Now().UTC(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Workshop{}, domain.ErrWorkshopNotFound
	}
	if err != nil {
		return domain.Workshop{}, classify(err, "updating workshop")
	}
	return w, nil
}

// DeleteWorkshop removes the workshop; the foreign key cascades its registrations.
func (s *Store) DeleteWorkshop(ctx context.Context, id string) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, classify(err, "beginning delete")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the row first so no admission lands between the count and the delete.
	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM workshops WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrWorkshopNotFound
	}
	if err != nil {
		return 0, classify(err, "locking workshop")
	}

	var registrations int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE workshop_id = $1`, id,
	).Scan(&registrations); err != nil {
		return 0, fmt.Errorf("counting registrations: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM workshops WHERE id = $1`, id); err != nil {
		return 0, classify(err, "deleting workshop")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, classify(err, "committing delete")
	}
	return registrations, nil
}

func scanWorkshop(row pgx.Row) (domain.Workshop, error) {
	var w domain.Workshop
	err := row.Scan(&w.ID, &w.Title, &w.Description, &w.StartsAt, &w.EndsAt, &w.Location,
		&w.Capacity, &w.Occupancy, &w.ImageURL, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return domain.Workshop{}, err
	}

	w.StartsAt = w.StartsAt.UTC()
	w.EndsAt = w.EndsAt.UTC()
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
