package app

import (
	"context"
	"log/slog"

	"github.com/neomorfeo/workshops/internal/domain"
)

// Portal is the core's surface toward the presentation layer. It owns the
// per-workshop serialization gate shared by admissions and admin changes.
type Portal struct {
	Admission *AdmissionController
	Admin     *AdminWorkshopManager

	store    domain.Store
	profiles domain.ProfileRepository
	logger   *slog.Logger
}

// New wires the portal around the given adapters.
func New(store domain.Store, profiles domain.ProfileRepository, publisher domain.EventPublisher, opts ...Option) *Portal {
	o := buildOptions(opts)
	locks := newWorkshopLocks()

	return &Portal{
		Admission: newAdmissionController(store, publisher, locks, o),
		Admin: &AdminWorkshopManager{
			store:     store,
			publisher: publisher,
			locks:     locks,
			timeout:   o.timeout,
			logger:    o.logger,
		},
		store:    store,
		profiles: profiles,
		logger:   o.logger,
	}
}

// Register admits who to a workshop. See AdmissionController.Register.
func (p *Portal) Register(ctx context.Context, who domain.Identity, workshopID string) (domain.Registration, error) {
	return p.Admission.Register(ctx, who, workshopID)
}

// ListWorkshops returns the catalog with current occupancy. Anyone may read it.
func (p *Portal) ListWorkshops(ctx context.Context, filter domain.ListFilter) ([]domain.Workshop, error) {
	return p.store.ListWorkshops(ctx, filter)
}

// GetWorkshop returns a single workshop.
func (p *Portal) GetWorkshop(ctx context.Context, id string) (domain.Workshop, error) {
	return p.store.GetWorkshop(ctx, id)
}

// MyRegistrations returns the IDs of the workshops who has joined.
func (p *Portal) MyRegistrations(ctx context.Context, who domain.Identity) (map[string]struct{}, error) {
	if who.IsAnonymous() {
		return nil, domain.ErrUnauthenticated
	}

	ids, err := p.store.ListRegistrationsFor(ctx, who.UserID)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Profile returns the caller's registrant profile.
func (p *Portal) Profile(ctx context.Context, who domain.Identity) (domain.Profile, error) {
	if who.IsAnonymous() {
		return domain.Profile{}, domain.ErrUnauthenticated
	}
	return p.profiles.GetProfile(ctx, who.UserID)
}

// SaveProfile stores the caller's registrant profile. The profile always
// belongs to the caller, whatever UserID it carries.
func (p *Portal) SaveProfile(ctx context.Context, who domain.Identity, profile domain.Profile) (domain.Profile, error) {
	if who.IsAnonymous() {
		return domain.Profile{}, domain.ErrUnauthenticated
	}

	profile.UserID = who.UserID
	if err := p.profiles.UpsertProfile(ctx, profile); err != nil {
		return domain.Profile{}, err
	}
	return p.profiles.GetProfile(ctx, who.UserID)
}
