package domain

import "context"

// WorkshopCatalog defines persistence of workshop definitions.
// Implementations never modify occupancy outside an admission.
type WorkshopCatalog interface {
	CreateWorkshop(ctx context.Context, w Workshop) error
	GetWorkshop(ctx context.Context, id string) (Workshop, error)
	ListWorkshops(ctx context.Context, filter ListFilter) ([]Workshop, error)
	// UpdateWorkshop replaces the definition and returns the stored workshop
	// with its current occupancy.
	UpdateWorkshop(ctx context.Context, id string, def Definition) (Workshop, error)
	// DeleteWorkshop removes the workshop and cascades its registrations,
	// returning how many registrations were removed.
	DeleteWorkshop(ctx context.Context, id string) (int, error)
}

// RegistrationLedger defines read access to the authoritative registrations.
type RegistrationLedger interface {
	ListRegistrationsFor(ctx context.Context, userID string) ([]string, error)
	ListRegistrationsByWorkshop(ctx context.Context, workshopID string) ([]Registration, error)
}

// AdmissionTx is the view of the store inside one serialized admission unit.
// Every effect made through it commits or rolls back together.
type AdmissionTx interface {
	GetWorkshop(ctx context.Context, id string) (Workshop, error)
	// InsertRegistrationIfAbsent inserts unless (UserID, WorkshopID) exists.
	// It reports false, without inserting, on conflict.
	InsertRegistrationIfAbsent(ctx context.Context, r Registration) (bool, error)
	// IncrementOccupancyIfBelowCapacity reports false, without effect, when
	// the workshop is already at or above capacity.
	IncrementOccupancyIfBelowCapacity(ctx context.Context, workshopID string) (bool, error)
}

// Store is the full persistence contract of the portal.
type Store interface {
	WorkshopCatalog
	RegistrationLedger
	// WithinWorkshop runs fn in one transaction serialized on the workshop
	// row. fn returning an error rolls back every effect made through tx.
	WithinWorkshop(ctx context.Context, workshopID string, fn func(ctx context.Context, tx AdmissionTx) error) error
}

// OccupancyAuditor compares denormalized occupancy against the ledger.
type OccupancyAuditor interface {
	OccupancyDrift(ctx context.Context) ([]OccupancyDrift, error)
}

// ProfileRepository persists registrant profiles.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
	UpsertProfile(ctx context.Context, p Profile) error
}

// EventPublisher defines the contract for emitting domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
