package domain

import "time"

// Registration is the immutable fact that one user was admitted to one workshop.
type Registration struct {
	ID         string
	UserID     string
	WorkshopID string
	CreatedAt  time.Time
}

// NewRegistration stamps a registration with the current time.
func NewRegistration(id, userID, workshopID string) Registration {
	return Registration{
		ID:         id,
		UserID:     userID,
		WorkshopID: workshopID,
		CreatedAt:  time.Now().UTC(),
	}
}

// OccupancyDrift describes a workshop whose denormalized occupancy does not
// match the number of registrations referencing it.
type OccupancyDrift struct {
	WorkshopID    string
	Occupancy     int
	Registrations int
}
