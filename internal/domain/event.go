package domain

import "time"

// EventKind names something that happened to a workshop.
type EventKind string

const (
	EventWorkshopCreated      EventKind = "workshop.created"
	EventWorkshopUpdated      EventKind = "workshop.updated"
	EventWorkshopDeleted      EventKind = "workshop.deleted"
	EventRegistrationAdmitted EventKind = "registration.admitted"
)

// Event is a domain event emitted after a change has been committed.
type Event struct {
	Kind       EventKind
	WorkshopID string
	// UserID is the registrant for admissions and the acting admin otherwise.
	UserID    string
	Capacity  int
	Occupancy int
	// Removed counts registrations cascaded by a workshop deletion.
	Removed    int
	OccurredAt time.Time
}
