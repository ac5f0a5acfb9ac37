package app_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/neomorfeo/workshops/internal/domain"
)

// --- Mocks ---

// mockStore keeps workshops and registrations in memory. WithinWorkshop
// works on a copy of the state and swaps it in only when fn succeeds.
type mockStore struct {
	mu        sync.Mutex
	workshops map[string]domain.Workshop
	regs      []domain.Registration
}

func newMockStore() *mockStore {
	return &mockStore{workshops: make(map[string]domain.Workshop)}
}

func (m *mockStore) CreateWorkshop(_ context.Context, w domain.Workshop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workshops[w.ID] = w
	return nil
}

func (m *mockStore) GetWorkshop(_ context.Context, id string) (domain.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workshops[id]
	if !ok {
		return domain.Workshop{}, domain.ErrWorkshopNotFound
	}
	return w, nil
}

func (m *mockStore) ListWorkshops(_ context.Context, filter domain.ListFilter) ([]domain.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Workshop, 0, len(m.workshops))
	for _, w := range m.workshops {
		if strings.Contains(strings.ToLower(w.Title), strings.ToLower(filter.Query)) {
			out = append(out, w)
		}
	}
	slices.SortFunc(out, func(a, b domain.Workshop) int { return a.StartsAt.Compare(b.StartsAt) })
	return out, nil
}

func (m *mockStore) UpdateWorkshop(_ context.Context, id string, def domain.Definition) (domain.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workshops[id]
	if !ok {
		return domain.Workshop{}, domain.ErrWorkshopNotFound
	}
	w.Definition = def
	w.UpdatedAt = time.Now().UTC()
	m.workshops[id] = w
	return w, nil
}

func (m *mockStore) DeleteWorkshop(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workshops[id]; !ok {
		return 0, domain.ErrWorkshopNotFound
	}
	delete(m.workshops, id)
	before := len(m.regs)
	m.regs = slices.DeleteFunc(m.regs, func(r domain.Registration) bool { return r.WorkshopID == id })
	return before - len(m.regs), nil
}

func (m *mockStore) ListRegistrationsFor(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, r := range m.regs {
		if r.UserID == userID {
			ids = append(ids, r.WorkshopID)
		}
	}
	return ids, nil
}

func (m *mockStore) ListRegistrationsByWorkshop(_ context.Context, workshopID string) ([]domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Registration
	for _, r := range m.regs {
		if r.WorkshopID == workshopID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) WithinWorkshop(ctx context.Context, _ string, fn func(context.Context, domain.AdmissionTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &mockTx{
		workshops: maps.Clone(m.workshops),
		regs:      slices.Clone(m.regs),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.workshops = tx.workshops
	m.regs = tx.regs
	return nil
}

func (m *mockStore) occupancy(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workshops[id].Occupancy
}

func (m *mockStore) registrationCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.regs {
		if r.WorkshopID == id {
			n++
		}
	}
	return n
}

type mockTx struct {
	workshops map[string]domain.Workshop
	regs      []domain.Registration
}

func (t *mockTx) GetWorkshop(_ context.Context, id string) (domain.Workshop, error) {
	w, ok := t.workshops[id]
	if !ok {
		return domain.Workshop{}, domain.ErrWorkshopNotFound
	}
	return w, nil
}

func (t *mockTx) InsertRegistrationIfAbsent(_ context.Context, r domain.Registration) (bool, error) {
	for _, existing := range t.regs {
		if existing.UserID == r.UserID && existing.WorkshopID == r.WorkshopID {
			return false, nil
		}
	}
	t.regs = append(t.regs, r)
	return true, nil
}

func (t *mockTx) IncrementOccupancyIfBelowCapacity(_ context.Context, workshopID string) (bool, error) {
	w := t.workshops[workshopID]
	if w.Occupancy >= w.Capacity {
		return false, nil
	}
	w.Occupancy++
	t.workshops[workshopID] = w
	return true, nil
}

// stallingStore never finishes an admission transaction before ctx expires.
type stallingStore struct {
	*mockStore
}

func (s stallingStore) WithinWorkshop(ctx context.Context, _ string, _ func(context.Context, domain.AdmissionTx) error) error {
	<-ctx.Done()
	return ctx.Err()
}

// overrunningStore runs the admission steps, then outlives ctx the way a slow
// commit does: the transaction is rolled back under it and nothing is kept.
type overrunningStore struct {
	*mockStore
}

func (s overrunningStore) WithinWorkshop(ctx context.Context, workshopID string, fn func(context.Context, domain.AdmissionTx) error) error {
	s.mu.Lock()
	tx := &mockTx{
		workshops: maps.Clone(s.workshops),
		regs:      slices.Clone(s.regs),
	}
	s.mu.Unlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	<-ctx.Done()
	return fmt.Errorf("committing admission for %s: %w", workshopID, sql.ErrTxDone)
}

type mockProfiles struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
}

func newMockProfiles() *mockProfiles {
	return &mockProfiles{profiles: make(map[string]domain.Profile)}
}

func (m *mockProfiles) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return p, nil
}

func (m *mockProfiles) UpsertProfile(_ context.Context, p domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.UpdatedAt = time.Now().UTC()
	m.profiles[p.UserID] = p
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, e domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockPublisher) kinds() []domain.EventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EventKind, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Kind)
	}
	return out
}

var errBrokerDown = errors.New("broker down")

// --- Fixtures ---

var (
	admin = domain.Identity{UserID: "admin-1", Roles: []domain.Role{domain.RoleUser, domain.RoleAdmin}}
	alice = domain.Identity{UserID: "alice", Roles: []domain.Role{domain.RoleUser}}
	bob   = domain.Identity{UserID: "bob", Roles: []domain.Role{domain.RoleUser}}
)

func definition(title string, capacity int) domain.Definition {
	start := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)
	return domain.Definition{
		Title:    title,
		StartsAt: start,
		EndsAt:   start.Add(2 * time.Hour),
		Location: "Room 1",
		Capacity: capacity,
	}
}
