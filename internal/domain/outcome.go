package domain

import (
	"context"
	"errors"
)

// Outcome is the caller-visible result of an admission or admin operation.
type Outcome string

const (
	OutcomeAdmitted          Outcome = "admitted"
	OutcomeAlreadyRegistered Outcome = "already_registered"
	OutcomeCapacityExceeded  Outcome = "capacity_exceeded"
	OutcomeNotFound          Outcome = "not_found"
	OutcomeForbidden         Outcome = "forbidden"
	OutcomeUnauthenticated   Outcome = "unauthenticated"
	OutcomeUnavailable       Outcome = "unavailable"

	// OutcomeInvalid and OutcomeError are not policy outcomes: the first
	// reports a malformed definition, the second an internal failure.
	OutcomeInvalid Outcome = "invalid"
	OutcomeError   Outcome = "error"
)

// OutcomeOf classifies an operation error. A nil error means success.
func OutcomeOf(err error) Outcome {
	var defErr *DefinitionError
	switch {
	case err == nil:
		return OutcomeAdmitted
	case errors.Is(err, ErrWorkshopNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrAlreadyRegistered):
		return OutcomeAlreadyRegistered
	case errors.Is(err, ErrCapacityExceeded):
		return OutcomeCapacityExceeded
	case errors.Is(err, ErrForbidden):
		return OutcomeForbidden
	case errors.Is(err, ErrUnauthenticated):
		return OutcomeUnauthenticated
	case errors.Is(err, ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return OutcomeUnavailable
	case errors.As(err, &defErr):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

// Retryable reports whether the caller may retry the operation later.
// Only contention is retryable; policy rejections are final.
func (o Outcome) Retryable() bool {
	return o == OutcomeUnavailable
}
