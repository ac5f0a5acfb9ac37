package domain

import (
	"strings"
	"time"
)

// Definition is the admin-editable part of a workshop. Occupancy is not part
// of it: only admission changes occupancy.
type Definition struct {
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	Location    string
	Capacity    int
	ImageURL    string
}

// Validate checks the definition invariants: a title and location are
// present, the workshop ends after it starts, and at least one seat exists.
func (d Definition) Validate() error {
	switch {
	case strings.TrimSpace(d.Title) == "":
		return &DefinitionError{Field: "title", Reason: "must not be empty"}
	case strings.TrimSpace(d.Location) == "":
		return &DefinitionError{Field: "location", Reason: "must not be empty"}
	case d.StartsAt.IsZero():
		return &DefinitionError{Field: "start", Reason: "must be set"}
	case !d.EndsAt.After(d.StartsAt):
		return &DefinitionError{Field: "end", Reason: "must be after start"}
	case d.Capacity < 1:
		return &DefinitionError{Field: "capacity", Reason: "must be at least 1"}
	}
	return nil
}

// Workshop is a capacity-bounded, time-boxed event users register for.
type Workshop struct {
	ID string
	Definition
	Occupancy int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWorkshop creates a workshop with no registrations.
func NewWorkshop(id string, def Definition) Workshop {
	now := time.Now().UTC()
	def.StartsAt = def.StartsAt.UTC()
	def.EndsAt = def.EndsAt.UTC()
	return Workshop{
		ID:         id,
		Definition: def,
		Occupancy:  0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Remaining returns the number of open seats. A workshop whose capacity was
// reduced below its occupancy has zero remaining seats, never a negative count.
func (w Workshop) Remaining() int {
	return max(w.Capacity-w.Occupancy, 0)
}

// IsFull reports whether the workshop is closed to new admissions.
func (w Workshop) IsFull() bool {
	return w.Occupancy >= w.Capacity
}

// Order selects the sort direction of a catalog listing by start time.
type Order string

const (
	OrderStartAsc  Order = "asc"
	OrderStartDesc Order = "desc"
)

// ListFilter holds optional criteria for listing workshops.
type ListFilter struct {
	// Query matches workshop titles case-insensitively.
	Query  string
	Order  Order
	Limit  int
	Offset int
}
