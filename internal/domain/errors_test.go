package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/neomorfeo/workshops/internal/domain"
)

func TestDefinitionError_Error(t *testing.T) {
	err := &domain.DefinitionError{Field: "capacity", Reason: "must be at least 1"}
	want := "invalid capacity: must be at least 1"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestOutcomeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domain.Outcome
	}{
		{"nil", nil, domain.OutcomeAdmitted},
		{"not found", domain.ErrWorkshopNotFound, domain.OutcomeNotFound},
		{"wrapped duplicate", fmt.Errorf("registering: %w", domain.ErrAlreadyRegistered), domain.OutcomeAlreadyRegistered},
		{"full", domain.ErrCapacityExceeded, domain.OutcomeCapacityExceeded},
		{"forbidden", domain.ErrForbidden, domain.OutcomeForbidden},
		{"anonymous", domain.ErrUnauthenticated, domain.OutcomeUnauthenticated},
		{"busy", domain.ErrUnavailable, domain.OutcomeUnavailable},
		{"deadline", fmt.Errorf("begin: %w", context.DeadlineExceeded), domain.OutcomeUnavailable},
		{"definition", &domain.DefinitionError{Field: "end", Reason: "must be after start"}, domain.OutcomeInvalid},
		{"internal", errors.New("disk on fire"), domain.OutcomeError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.OutcomeOf(tc.err); got != tc.want {
				t.Errorf("OutcomeOf(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestOutcome_Retryable(t *testing.T) {
	if !domain.OutcomeUnavailable.Retryable() {
		t.Error("unavailable should be retryable")
	}
	for _, o := range []domain.Outcome{
		domain.OutcomeAlreadyRegistered,
		domain.OutcomeCapacityExceeded,
		domain.OutcomeForbidden,
		domain.OutcomeUnauthenticated,
		domain.OutcomeNotFound,
	} {
		if o.Retryable() {
			t.Errorf("%q should be final", o)
		}
	}
}
