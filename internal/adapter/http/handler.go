package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/workshops/internal/app"
	"github.com/neomorfeo/workshops/internal/domain"
)

const timestampFormat = time.RFC3339

// WorkshopResponse is the API representation of a workshop.
type WorkshopResponse struct {
	ID          string `json:"id" doc:"Unique identifier"`
	Title       string `json:"title" doc:"Display title"`
	Description string `json:"description" doc:"Free-form description"`
	StartsAt    string `json:"starts_at" doc:"Start time (RFC 3339, UTC)"`
	EndsAt      string `json:"ends_at" doc:"End time (RFC 3339, UTC)"`
	Location    string `json:"location" doc:"Where the workshop takes place"`
	ImageURL    string `json:"image_url,omitempty" doc:"Cover image"`
	Capacity    int    `json:"capacity" doc:"Maximum number of registrations"`
	Occupancy   int    `json:"occupancy" doc:"Current number of registrations"`
	Remaining   int    `json:"remaining" doc:"Open seats"`
	Full        bool   `json:"full" doc:"Whether the workshop accepts no more registrations"`
	Registered  bool   `json:"registered" doc:"Whether the caller holds a registration"`
	CreatedAt   string `json:"created_at" doc:"Creation timestamp (RFC 3339)"`
	UpdatedAt   string `json:"updated_at" doc:"Last update timestamp (RFC 3339)"`
}

func toWorkshopResponse(w domain.Workshop, registered bool) WorkshopResponse {
	return WorkshopResponse{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		StartsAt:    w.StartsAt.UTC().Format(timestampFormat),
		EndsAt:      w.EndsAt.UTC().Format(timestampFormat),
		Location:    w.Location,
		ImageURL:    w.ImageURL,
		Capacity:    w.Capacity,
		Occupancy:   w.Occupancy,
		Remaining:   w.Remaining(),
		Full:        w.IsFull(),
		Registered:  registered,
		CreatedAt:   w.CreatedAt.UTC().Format(timestampFormat),
		UpdatedAt:   w.UpdatedAt.UTC().Format(timestampFormat),
	}
}

// RegistrationResponse is the API representation of a registration.
type RegistrationResponse struct {
	ID         string `json:"id" doc:"Unique identifier"`
	UserID     string `json:"user_id" doc:"Registered user"`
	WorkshopID string `json:"workshop_id" doc:"Workshop joined"`
	CreatedAt  string `json:"created_at" doc:"Admission timestamp (RFC 3339)"`
}

func toRegistrationResponse(r domain.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:         r.ID,
		UserID:     r.UserID,
		WorkshopID: r.WorkshopID,
		CreatedAt:  r.CreatedAt.UTC().Format(timestampFormat),
	}
}

// WorkshopBody is the admin-editable definition of a workshop.
type WorkshopBody struct {
	Title       string    `json:"title" minLength:"1" maxLength:"200" doc:"Display title"`
	Description string    `json:"description,omitempty" maxLength:"5000" doc:"Free-form description"`
	StartsAt    time.Time `json:"starts_at" doc:"Start time (RFC 3339)"`
	EndsAt      time.Time `json:"ends_at" doc:"End time (RFC 3339), after starts_at"`
	Location    string    `json:"location" minLength:"1" maxLength:"200" doc:"Where the workshop takes place"`
	Capacity    int       `json:"capacity" minimum:"1" doc:"Maximum number of registrations"`
	ImageURL    string    `json:"image_url,omitempty" maxLength:"2048" doc:"Cover image"`
}

func (b WorkshopBody) definition() domain.Definition {
	return domain.Definition{
		Title:       b.Title,
		Description: b.Description,
		StartsAt:    b.StartsAt,
		EndsAt:      b.EndsAt,
		Location:    b.Location,
		Capacity:    b.Capacity,
		ImageURL:    b.ImageURL,
	}
}

// --- List Workshops ---

type ListWorkshopsInput struct {
	Query  string `query:"q" required:"false" maxLength:"200" doc:"Case-insensitive title search"`
	Order  string `query:"order" required:"false" default:"asc" enum:"asc,desc" doc:"Sort by start time"`
	Limit  int    `query:"limit" required:"false" default:"50" minimum:"0" maximum:"200" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" minimum:"0" doc:"Pagination offset"`
}

type ListWorkshopsOutput struct {
	Body []WorkshopResponse
}

// --- Get Workshop ---

type WorkshopIDInput struct {
	ID string `path:"id" doc:"Workshop ID"`
}

type WorkshopOutput struct {
	Body WorkshopResponse
}

// --- Create / Update Workshop ---

type CreateWorkshopInput struct {
	Body WorkshopBody
}

type UpdateWorkshopInput struct {
	ID   string `path:"id" doc:"Workshop ID"`
	Body WorkshopBody
}

// --- Delete Workshop ---

type DeleteWorkshopOutput struct {
	Body struct {
		ID                   string `json:"id" doc:"Deleted workshop"`
		RegistrationsRemoved int    `json:"registrations_removed" doc:"Registrations removed with the workshop"`
	}
}

// --- Roster ---

type RosterOutput struct {
	Body []RegistrationResponse
}

// --- Register ---

type AdmissionResult struct {
	Outcome      string               `json:"outcome" doc:"Admission outcome" enum:"admitted"`
	Registration RegistrationResponse `json:"registration" doc:"The new registration"`
}

type RegisterOutput struct {
	Body AdmissionResult
}

// Register adds all portal API routes to the Huma API.
func Register(api huma.API, portal *app.Portal) {
	registerWorkshops(api, portal)
	registerMe(api, portal)

	huma.Register(api, huma.Operation{
		OperationID: "healthz",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Liveness probe",
		Tags:        []string{"Health"},
	}, func(_ context.Context, _ *struct{}) (*HealthOutput, error) {
		out := &HealthOutput{}
		out.Body.Status = "ok"
		return out, nil
	})
}

type HealthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func registerWorkshops(api huma.API, portal *app.Portal) {
	huma.Register(api, huma.Operation{
		OperationID: "list-workshops",
		Method:      http.MethodGet,
		Path:        "/api/v1/workshops",
		Summary:     "List workshops with current occupancy",
		Tags:        []string{"Workshops"},
	}, func(ctx context.Context, input *ListWorkshopsInput) (*ListWorkshopsOutput, error) {
		who := IdentityFrom(ctx)
		workshops, err := portal.ListWorkshops(ctx, domain.ListFilter{
			Query:  input.Query,
			Order:  domain.Order(input.Order),
			Limit:  input.Limit,
			Offset: input.Offset,
		})
		if err != nil {
			return nil, toHumaError(err)
		}

		mine, err := registeredSet(ctx, portal, who)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]WorkshopResponse, len(workshops))
		for i, w := range workshops {
			_, registered := mine[w.ID]
			resp[i] = toWorkshopResponse(w, registered)
		}
		return &ListWorkshopsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-workshop",
		Method:      http.MethodGet,
		Path:        "/api/v1/workshops/{id}",
		Summary:     "Get a workshop by ID",
		Tags:        []string{"Workshops"},
	}, func(ctx context.Context, input *WorkshopIDInput) (*WorkshopOutput, error) {
		w, err := portal.GetWorkshop(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		mine, err := registeredSet(ctx, portal, IdentityFrom(ctx))
		if err != nil {
			return nil, toHumaError(err)
		}
		_, registered := mine[w.ID]

		return &WorkshopOutput{Body: toWorkshopResponse(w, registered)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-workshop",
		Method:        http.MethodPost,
		Path:          "/api/v1/workshops",
		Summary:       "Create a workshop",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateWorkshopInput) (*WorkshopOutput, error) {
		w, err := portal.Admin.Create(ctx, IdentityFrom(ctx), input.Body.definition())
		if err != nil {
			return nil, toHumaError(err)
		}
		return &WorkshopOutput{Body: toWorkshopResponse(w, false)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-workshop",
		Method:      http.MethodPut,
		Path:        "/api/v1/workshops/{id}",
		Summary:     "Replace a workshop definition",
		Description: "Occupancy is preserved. A capacity below the current occupancy closes the workshop to new registrations.",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *UpdateWorkshopInput) (*WorkshopOutput, error) {
		w, err := portal.Admin.Update(ctx, IdentityFrom(ctx), input.ID, input.Body.definition())
		if err != nil {
			return nil, toHumaError(err)
		}
		return &WorkshopOutput{Body: toWorkshopResponse(w, false)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-workshop",
		Method:      http.MethodDelete,
		Path:        "/api/v1/workshops/{id}",
		Summary:     "Delete a workshop and its registrations",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *WorkshopIDInput) (*DeleteWorkshopOutput, error) {
		removed, err := portal.Admin.Delete(ctx, IdentityFrom(ctx), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &DeleteWorkshopOutput{}
		out.Body.ID = input.ID
		out.Body.RegistrationsRemoved = removed
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-workshop-registrations",
		Method:      http.MethodGet,
		Path:        "/api/v1/workshops/{id}/registrations",
		Summary:     "List the registrations of a workshop",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *WorkshopIDInput) (*RosterOutput, error) {
		regs, err := portal.Admin.Registrations(ctx, IdentityFrom(ctx), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]RegistrationResponse, len(regs))
		for i, r := range regs {
			resp[i] = toRegistrationResponse(r)
		}
		return &RosterOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "register-for-workshop",
		Method:        http.MethodPost,
		Path:          "/api/v1/workshops/{id}/registrations",
		Summary:       "Register the caller for a workshop",
		Description:   "Rejections carry the outcome in errors[0].value: already_registered, capacity_exceeded, not_found, unauthenticated or unavailable. Only unavailable is worth retrying.",
		Tags:          []string{"Registrations"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *WorkshopIDInput) (*RegisterOutput, error) {
		reg, err := portal.Register(ctx, IdentityFrom(ctx), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RegisterOutput{Body: AdmissionResult{
			Outcome:      string(domain.OutcomeAdmitted),
			Registration: toRegistrationResponse(reg),
		}}, nil
	})
}

// registeredSet returns the workshops the caller joined; empty for anonymous
// callers.
func registeredSet(ctx context.Context, portal *app.Portal, who domain.Identity) (map[string]struct{}, error) {
	if who.IsAnonymous() {
		return nil, nil
	}
	return portal.MyRegistrations(ctx, who)
}
