package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for admission and authorization outcomes.
var (
	ErrWorkshopNotFound  = errors.New("workshop not found")
	ErrAlreadyRegistered = errors.New("already registered for this workshop")
	ErrCapacityExceeded  = errors.New("workshop is full")
	ErrForbidden         = errors.New("admin role required")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrUnavailable       = errors.New("workshop is busy, try again")
	ErrProfileNotFound   = errors.New("profile not found")
)

// DefinitionError is returned when a workshop definition is malformed.
type DefinitionError struct {
	Field  string
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
