package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/workshops/internal/domain"
)

// AdminWorkshopManager is the only writer of workshop definitions. Every
// operation passes the admin gate before it touches the store.
type AdminWorkshopManager struct {
	store     domain.Store
	publisher domain.EventPublisher
	locks     *workshopLocks
	timeout   time.Duration
	logger    *slog.Logger
}

// Create validates the definition and persists a workshop with no registrations.
func (m *AdminWorkshopManager) Create(ctx context.Context, who domain.Identity, def domain.Definition) (domain.Workshop, error) {
	if err := authorize(who, domain.RoleAdmin); err != nil {
		return domain.Workshop{}, err
	}
	if err := def.Validate(); err != nil {
		return domain.Workshop{}, err
	}

	id, err := generateID()
	if err != nil {
		return domain.Workshop{}, fmt.Errorf("generating workshop id: %w", err)
	}

	w := domain.NewWorkshop(id, def)
	if err := m.store.CreateWorkshop(ctx, w); err != nil {
		return domain.Workshop{}, fmt.Errorf("creating workshop: %w", err)
	}

	m.logger.InfoContext(ctx, "workshop created",
		"workshop_id", w.ID,
		"capacity", w.Capacity,
		"admin_id", who.UserID,
	)
	publish(ctx, m.publisher, m.logger, domain.Event{
		Kind:       domain.EventWorkshopCreated,
		WorkshopID: w.ID,
		UserID:     who.UserID,
		Capacity:   w.Capacity,
		OccurredAt: w.CreatedAt,
	})

	return w, nil
}

// Update replaces a workshop's definition. A capacity below the current
// occupancy is accepted: existing registrations stay and the workshop is
// closed to admissions until capacity exceeds occupancy again.
func (m *AdminWorkshopManager) Update(ctx context.Context, who domain.Identity, id string, def domain.Definition) (domain.Workshop, error) {
	if err := authorize(who, domain.RoleAdmin); err != nil {
		return domain.Workshop{}, err
	}
	if err := def.Validate(); err != nil {
		return domain.Workshop{}, err
	}
	def.StartsAt = def.StartsAt.UTC()
	def.EndsAt = def.EndsAt.UTC()

	var w domain.Workshop
	err := m.locks.within(ctx, id, m.timeout, func(ctx context.Context) error {
		var err error
		w, err = m.store.UpdateWorkshop(ctx, id, def)
		return err
	})
	if err != nil {
		return domain.Workshop{}, err
	}

	if w.Occupancy > w.Capacity {
		m.logger.InfoContext(ctx, "capacity reduced below occupancy; registrations kept",
			"workshop_id", id,
			"capacity", w.Capacity,
			"occupancy", w.Occupancy,
		)
	}
	publish(ctx, m.publisher, m.logger, domain.Event{
		Kind:       domain.EventWorkshopUpdated,
		WorkshopID: id,
		UserID:     who.UserID,
		Capacity:   w.Capacity,
		Occupancy:  w.Occupancy,
		OccurredAt: w.UpdatedAt,
	})

	return w, nil
}

// Delete removes a workshop together with every registration referencing it
// and returns how many registrations were removed.
func (m *AdminWorkshopManager) Delete(ctx context.Context, who domain.Identity, id string) (int, error) {
	if err := authorize(who, domain.RoleAdmin); err != nil {
		return 0, err
	}

	var removed int
	err := m.locks.within(ctx, id, m.timeout, func(ctx context.Context) error {
		var err error
		removed, err = m.store.DeleteWorkshop(ctx, id)
		return err
	})
	if err != nil {
		return 0, err
	}

	m.logger.InfoContext(ctx, "workshop deleted",
		"workshop_id", id,
		"registrations_removed", removed,
		"admin_id", who.UserID,
	)
	publish(ctx, m.publisher, m.logger, domain.Event{
		Kind:       domain.EventWorkshopDeleted,
		WorkshopID: id,
		UserID:     who.UserID,
		Removed:    removed,
		OccurredAt: time.Now().UTC(),
	})

	return removed, nil
}

// Registrations lists the roster of a workshop.
func (m *AdminWorkshopManager) Registrations(ctx context.Context, who domain.Identity, id string) ([]domain.Registration, error) {
	if err := authorize(who, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := m.store.GetWorkshop(ctx, id); err != nil {
		return nil, err
	}
	return m.store.ListRegistrationsByWorkshop(ctx, id)
}
