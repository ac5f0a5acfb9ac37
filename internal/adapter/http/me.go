package http

import (
	"context"
	"maps"
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/workshops/internal/app"
	"github.com/neomorfeo/workshops/internal/domain"
)

// ProfileResponse is the API representation of a registrant profile.
type ProfileResponse struct {
	UserID      string `json:"user_id" doc:"Owner of the profile"`
	FullName    string `json:"full_name"`
	Address     string `json:"address"`
	City        string `json:"city"`
	PhoneNumber string `json:"phone_number"`
	UpdatedAt   string `json:"updated_at" doc:"Last update timestamp (RFC 3339)"`
}

func toProfileResponse(p domain.Profile) ProfileResponse {
	return ProfileResponse{
		UserID:      p.UserID,
		FullName:    p.FullName,
		Address:     p.Address,
		City:        p.City,
		PhoneNumber: p.PhoneNumber,
		UpdatedAt:   p.UpdatedAt.UTC().Format(timestampFormat),
	}
}

type MyRegistrationsOutput struct {
	Body struct {
		WorkshopIDs []string `json:"workshop_ids" doc:"Workshops the caller has joined"`
	}
}

type ProfileOutput struct {
	Body ProfileResponse
}

type SaveProfileInput struct {
	Body struct {
		FullName    string `json:"full_name" minLength:"3" maxLength:"100"`
		Address     string `json:"address" minLength:"5" maxLength:"200"`
		City        string `json:"city" minLength:"1" maxLength:"100"`
		PhoneNumber string `json:"phone_number" pattern:"^\\+?[0-9]{10,15}$" doc:"10 to 15 digits, optional leading +"`
	}
}

func registerMe(api huma.API, portal *app.Portal) {
	huma.Register(api, huma.Operation{
		OperationID: "list-my-registrations",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/registrations",
		Summary:     "List the workshops the caller has joined",
		Tags:        []string{"Me"},
	}, func(ctx context.Context, _ *struct{}) (*MyRegistrationsOutput, error) {
		set, err := portal.MyRegistrations(ctx, IdentityFrom(ctx))
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &MyRegistrationsOutput{}
		out.Body.WorkshopIDs = slices.Sorted(maps.Keys(set))
		if out.Body.WorkshopIDs == nil {
			out.Body.WorkshopIDs = []string{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-my-profile",
		Method:      http.MethodGet,
		Path:        "/api/v1/me/profile",
		Summary:     "Get the caller's registrant profile",
		Tags:        []string{"Me"},
	}, func(ctx context.Context, _ *struct{}) (*ProfileOutput, error) {
		p, err := portal.Profile(ctx, IdentityFrom(ctx))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ProfileOutput{Body: toProfileResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-my-profile",
		Method:      http.MethodPut,
		Path:        "/api/v1/me/profile",
		Summary:     "Create or replace the caller's registrant profile",
		Tags:        []string{"Me"},
	}, func(ctx context.Context, input *SaveProfileInput) (*ProfileOutput, error) {
		p, err := portal.SaveProfile(ctx, IdentityFrom(ctx), domain.Profile{
			FullName:    input.Body.FullName,
			Address:     input.Body.Address,
			City:        input.Body.City,
			PhoneNumber: input.Body.PhoneNumber,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ProfileOutput{Body: toProfileResponse(p)}, nil
	})
}
