package http

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/workshops/internal/domain"
)

// toHumaError translates domain errors to Huma HTTP errors. Policy
// rejections carry their outcome so callers can tell the 409s apart.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrProfileNotFound) {
		return huma.Error404NotFound("profile not found")
	}

	outcome := domain.OutcomeOf(err)
	detail := &huma.ErrorDetail{Location: "outcome", Value: string(outcome)}

	switch outcome {
	case domain.OutcomeNotFound:
		return huma.Error404NotFound(domain.ErrWorkshopNotFound.Error(), detail)
	case domain.OutcomeAlreadyRegistered:
		return huma.Error409Conflict(domain.ErrAlreadyRegistered.Error(), detail)
	case domain.OutcomeCapacityExceeded:
		return huma.Error409Conflict(domain.ErrCapacityExceeded.Error(), detail)
	case domain.OutcomeForbidden:
		return huma.Error403Forbidden(domain.ErrForbidden.Error(), detail)
	case domain.OutcomeUnauthenticated:
		return huma.Error401Unauthorized(domain.ErrUnauthenticated.Error(), detail)
	case domain.OutcomeUnavailable:
		return huma.ErrorWithHeaders(
			huma.Error503ServiceUnavailable(domain.ErrUnavailable.Error(), detail),
			http.Header{"Retry-After": []string{"1"}},
		)
	case domain.OutcomeInvalid:
		var defErr *domain.DefinitionError
		errors.As(err, &defErr)
		return huma.Error422UnprocessableEntity(defErr.Error(), &huma.ErrorDetail{
			Location: "body." + defErr.Field,
			Message:  defErr.Reason,
			Value:    string(outcome),
		})
	}

	return huma.Error500InternalServerError("internal server error")
}
