package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/neomorfeo/workshops/internal/domain"
)

func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var p domain.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, full_name, address, city, phone_number, updated_at
		 FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.FullName, &p.Address, &p.City, &p.PhoneNumber, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("scanning profile: %w", err)
	}

	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p domain.Profile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, full_name, address, city, phone_number, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
		     full_name = EXCLUDED.full_name,
		     address = EXCLUDED.address,
		     city = EXCLUDED.city,
		     phone_number = EXCLUDED.phone_number,
		     updated_at = EXCLUDED.updated_at`,
		p.UserID, p.FullName, p.Address, p.City, p.PhoneNumber, time.Now().UTC(),
	)
	if err != nil {
		return classify(err, "upserting profile")
	}
	return nil
}
