package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neomorfeo/workshops/internal/domain"
)

const workshopColumns = `id, title, description, start_at, end_at, location,
	capacity, occupancy, image_url, created_at, updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) CreateWorkshop(ctx context.Context, w domain.Workshop) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workshops (`+workshopColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Title, w.Description,
		formatTime(w.StartsAt), formatTime(w.EndsAt),
		w.Location, w.Capacity, w.Occupancy, nullString(w.ImageURL),
		formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	if err != nil {
		return classify(err, "inserting workshop")
	}
	return nil
}

func (s *Store) GetWorkshop(ctx context.Context, id string) (domain.Workshop, error) {
	return getWorkshop(ctx, s.db, id)
}

func getWorkshop(ctx context.Context, q queryer, id string) (domain.Workshop, error) {
	w, err := scanWorkshop(q.QueryRowContext(ctx,
		`SELECT `+workshopColumns+` FROM workshops WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Workshop{}, domain.ErrWorkshopNotFound
	}
	if err != nil {
		return domain.Workshop{}, fmt.Errorf("scanning workshop: %w", err)
	}
	return w, nil
}

func (s *Store) ListWorkshops(ctx context.Context, filter domain.ListFilter) ([]domain.Workshop, error) {
	query := `SELECT ` + workshopColumns + ` FROM workshops`
	var args []any

	if q := strings.TrimSpace(filter.Query); q != "" {
		query += ` WHERE title LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(q)+"%")
	}

	if filter.Order == domain.OrderStartDesc {
		query += ` ORDER BY start_at DESC, id`
	} else {
		query += ` ORDER BY start_at ASC, id`
	}

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Workshop{}, classify(err, "beginning update")
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE workshops
		 SET title = ?, description = ?, start_at = ?, end_at = ?, location = ?,
		     capacity = ?, image_url = ?, updated_at = ?
		 WHERE id = ?`,
		def.Title, def.Description, formatTime(def.StartsAt), formatTime(def.EndsAt),
		def.Location, def.Capacity, nullString(def.ImageURL),
		formatTime(time.Now()), id,
	)
	if err != nil {
		return domain.Workshop{}, classify(err, "updating workshop")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return domain.Workshop{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return domain.Workshop{}, domain.ErrWorkshopNotFound
	}

	w, err := getWorkshop(ctx, tx, id)
	if err != nil {
		return domain.Workshop{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Workshop{}, classify(err, "committing update")
	}
	return w, nil
}

// DeleteWorkshop removes the workshop; the foreign key cascades its registrations.
func (s *Store) DeleteWorkshop(ctx context.Context, id string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(err, "beginning delete")
	}
	defer func() { _ = tx.Rollback() }()

	var registrations int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE workshop_id = ?`, id,
	).Scan(&registrations); err != nil {
		return 0, fmt.Errorf("counting registrations: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM workshops WHERE id = ?`, id)
	if err != nil {
		return 0, classify(err, "deleting workshop")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return 0, domain.ErrWorkshopNotFound
	}

	if err := tx.Commit(); err != nil {
		return 0, classify(err, "committing delete")
	}
	return registrations, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanWorkshop(row scanner) (domain.Workshop, error) {
	var w domain.Workshop
	var startAt, endAt, createdAt, updatedAt string
	var imageURL sql.NullString

	err := row.Scan(&w.ID, &w.Title, &w.Description, &startAt, &endAt, &w.Location,
		&w.Capacity, &w.Occupancy, &imageURL, &createdAt, &updatedAt)
	if err != nil {
		return domain.Workshop{}, err
	}

	w.ImageURL = imageURL.String
	for _, f := range []struct {
		dst *time.Time
		src string
	}{
		{&w.StartsAt, startAt},
		{&w.EndsAt, endAt},
		{&w.CreatedAt, createdAt},
		{&w.UpdatedAt, updatedAt},
	} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return domain.Workshop{}, err
		}
	}

	return w, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
