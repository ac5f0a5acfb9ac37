package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/workshops/internal/domain"
)

func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var p domain.Profile
	var updatedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, full_name, address, city, phone_number, updated_at
		 FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.FullName, &p.Address, &p.City, &p.PhoneNumber, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("scanning profile: %w", err)
	}

	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p domain.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, full_name, address, city, phone_number, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		     full_name = excluded.full_name,
		     address = excluded.address,
		     city = excluded.city,
		     phone_number = excluded.phone_number,
		     updated_at = excluded.updated_at`,
		p.UserID, p.FullName, p.Address, p.City, p.PhoneNumber, formatTime(time.Now()),
	)
	if err != nil {
		return classify(err, "upserting profile")
	}
	return nil
}
