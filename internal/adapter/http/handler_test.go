package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	adapter "github.com/neomorfeo/workshops/internal/adapter/http"
	"github.com/neomorfeo/workshops/internal/adapter/auth"
	"github.com/neomorfeo/workshops/internal/adapter/sqlite"
	"github.com/neomorfeo/workshops/internal/app"
	"github.com/neomorfeo/workshops/internal/domain"
)

// noopPublisher is a no-op EventPublisher for tests.
type noopPublisher struct{}

func (p *noopPublisher) Publish(_ context.Context, _ domain.Event) error {
	return nil
}

type testServer struct {
	*httptest.Server
	tokens *auth.TokenService
}

// newTestServer creates a full-stack httptest.Server with SQLite in-memory.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	portal := app.New(store, store, &noopPublisher{}, app.WithLogger(logger))
	tokens := auth.NewTokenService("test-key", "workshops", "workshops-api")

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(adapter.Identity(tokens, logger))

	api := humachi.New(router, huma.DefaultConfig("workshops", "0.1.0"))
	adapter.Register(api, portal)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, tokens: tokens}
}

func (s *testServer) token(t *testing.T, userID string, roles ...domain.Role) string {
	t.Helper()
	token, err := s.tokens.Issue(domain.Identity{UserID: userID, Roles: roles}, time.Hour)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}
	return token
}

func (s *testServer) admin(t *testing.T) string {
	return s.token(t, "admin-1", domain.RoleUser, domain.RoleAdmin)
}

// doRequest performs an HTTP request with context (avoids noctx linter).
func doRequest(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, reader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

type problem struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Errors []struct {
		Location string `json:"location"`
		Value    any    `json:"value"`
	} `json:"errors"`
}

// expectOutcome asserts the status code and the outcome detail of a rejection.
func expectOutcome(t *testing.T, resp *http.Response, status int, outcome domain.Outcome) {
	t.Helper()
	defer resp.Body.Close()

	if resp.StatusCode != status {
		t.Fatalf("status = %d, want %d", resp.StatusCode, status)
	}

	p := decode[problem](t, resp)
	for _, e := range p.Errors {
		if e.Location == "outcome" && e.Value == string(outcome) {
			return
		}
	}
	t.Errorf("errors = %+v, want outcome %q", p.Errors, outcome)
}

func workshopJSON(title string, capacity int) string {
	return fmt.Sprintf(`{"title":%q,"description":"hands-on","starts_at":"2026-11-02T09:00:00+07:00",`+
		`"ends_at":"2026-11-02T11:00:00+07:00","location":"Room 4","capacity":%d}`, title, capacity)
}

// mustCreateWorkshop creates a workshop via the API and returns its response.
func mustCreateWorkshop(t *testing.T, srv *testServer, title string, capacity int) adapter.WorkshopResponse {
	t.Helper()

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/workshops", srv.admin(t), workshopJSON(title, capacity))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create workshop: status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	return decode[adapter.WorkshopResponse](t, resp)
}

func register(t *testing.T, srv *testServer, token, workshopID string) *http.Response {
	t.Helper()
	return doRequest(t, http.MethodPost, srv.URL+"/api/v1/workshops/"+workshopID+"/registrations", token, "")
}

// --- Workshops ---

func TestCreateWorkshop(t *testing.T) {
	srv := newTestServer(t)
	w := mustCreateWorkshop(t, srv, "Intro to Go", 10)

	if w.ID == "" {
		t.Error("ID should not be empty")
	}
	if w.StartsAt != "2026-11-02T02:00:00Z" {
		t.Errorf("StartsAt = %q, want UTC %q", w.StartsAt, "2026-11-02T02:00:00Z")
	}
	if w.Occupancy != 0 || w.Remaining != 10 || w.Full {
		t.Errorf("occupancy/remaining/full = %d/%d/%v, want 0/10/false", w.Occupancy, w.Remaining, w.Full)
	}
}

func TestCreateWorkshop_RoleGate(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/workshops", "", workshopJSON("X", 1))
	expectOutcome(t, resp, http.StatusUnauthorized, domain.OutcomeUnauthenticated)

	resp = doRequest(t, http.MethodPost, srv.URL+"/api/v1/workshops", srv.token(t, "alice", domain.RoleUser), workshopJSON("X", 1))
	expectOutcome(t, resp, http.StatusForbidden, domain.OutcomeForbidden)

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/workshops", "", "")
	defer resp.Body.Close()
	if got := decode[[]adapter.WorkshopResponse](t, resp); len(got) != 0 {
		t.Errorf("rejected creates left %d workshops", len(got))
	}
}

func TestCreateWorkshop_EndBeforeStart(t *testing.T) {
	srv := newTestServer(t)

	body := `{"title":"Backwards","starts_at":"2026-11-02T11:00:00Z","ends_at":"2026-11-02T09:00:00Z","location":"Room 4","capacity":5}`
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/workshops", srv.admin(t), body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestCreateWorkshop_ZeroCapacity(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/workshops", srv.admin(t), workshopJSON("Empty", 0))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestGetWorkshop_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/workshops/nonexistent", "", "")
	expectOutcome(t, resp, http.StatusNotFound, domain.OutcomeNotFound)
}

func TestListWorkshops_SearchAndOrder(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.admin(t)

	for i, title := range []string{"Intro to Go", "Pottery", "Go concurrency"} {
		body := fmt.Sprintf(`{"title":%q,"starts_at":"2026-11-0%dT09:00:00Z","ends_at":"2026-11-0%dT11:00:00Z","location":"Room 4","capacity":5}`,
			title, i+1, i+1)
		resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/workshops", admin, body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %q: status = %d", title, resp.StatusCode)
		}
	}

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/workshops?q=go&order=desc", "", "")
	defer resp.Body.Close()

	got := decode[[]adapter.WorkshopResponse](t, resp)
	if len(got) != 2 {
		t.Fatalf("got %d workshops, want 2", len(got))
	}
	if got[0].Title != "Go concurrency" {
		t.Errorf("first = %q, want %q", got[0].Title, "Go concurrency")
	}
}

func TestUpdateWorkshop_ShrinkClosesWorkshop(t *testing.T) {
	srv := newTestServer(t)
	w := mustCreateWorkshop(t, srv, "Intro", 5)

	for _, user := range []string{"alice", "bob"} {
		resp := register(t, srv, srv.token(t, user, domain.RoleUser), w.ID)
		resp.Body.Close()
	}

	resp := doRequest(t, http.MethodPut, srv.URL+"/api/v1/workshops/"+w.ID, srv.admin(t), workshopJSON("Intro", 1))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	got := decode[adapter.WorkshopResponse](t, resp)
	if got.Occupancy != 2 || got.Remaining != 0 || !got.Full {
		t.Errorf("occupancy/remaining/full = %d/%d/%v, want 2/0/true", got.Occupancy, got.Remaining, got.Full)
	}

	resp = register(t, srv, srv.token(t, "carol", domain.RoleUser), w.ID)
	expectOutcome(t, resp, http.StatusConflict, domain.OutcomeCapacityExceeded)
}

func TestUpdateWorkshop_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPut, srv.URL+"/api/v1/workshops/nonexistent", srv.admin(t), workshopJSON("X", 1))
	expectOutcome(t, resp, http.StatusNotFound, domain.OutcomeNotFound)
}

func TestDeleteWorkshop_Cascades(t *testing.T) {
	srv := newTestServer(t)
	w := mustCreateWorkshop(t, srv, "Intro", 5)
	alice := srv.token(t, "alice", domain.RoleUser)

	resp := register(t, srv, alice, w.ID)
	resp.Body.Close()

	resp = doRequest(t, http.MethodDelete, srv.URL+"/api/v1/workshops/"+w.ID, srv.admin(t), "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	deleted := decode[struct {
		RegistrationsRemoved int `json:"registrations_removed"`
	}](t, resp)
	if deleted.RegistrationsRemoved != 1 {
		t.Errorf("RegistrationsRemoved = %d, want 1", deleted.RegistrationsRemoved)
	}

	resp2 := doRequest(t, http.MethodGet, srv.URL+"/api/v1/me/registrations", alice, "")
	defer resp2.Body.Close()

	mine := decode[struct {
		WorkshopIDs []string `json:"workshop_ids"`
	}](t, resp2)
	if len(mine.WorkshopIDs) != 0 {
		t.Errorf("registrations after delete = %v, want none", mine.WorkshopIDs)
	}

	resp3 := doRequest(t, http.MethodDelete, srv.URL+"/api/v1/workshops/"+w.ID, srv.admin(t), "")
	expectOutcome(t, resp3, http.StatusNotFound, domain.OutcomeNotFound)
}

// --- Registrations ---

func TestRegister_Admitted(t *testing.T) {
	srv := newTestServer(t)
	w := mustCreateWorkshop(t, srv, "Intro", 10)
	alice := srv.token(t, "alice", domain.RoleUser)

	resp := register(t, srv, alice, w.ID)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	result := decode[adapter.AdmissionResult](t, resp)
	if result.Outcome != "admitted" {
		t.Errorf("Outcome = %q, want %q", result.Outcome, "admitted")
	}
	if result.Registration.UserID != "alice" || result.Registration.WorkshopID != w.ID {
		t.Errorf("registration = %+v", result.Registration)
	}

	resp2 := doRequest(t, http.MethodGet, srv.URL+"/api/v1/workshops/"+w.ID, alice, "")
	defer resp2.Body.Close()

	got := decode[adapter.WorkshopResponse](t, resp2)
	if got.Occupancy != 1 || got.Remaining != 9 {
		t.Errorf("occupancy/remaining = %d/%d, want 1/9", got.Occupancy, got.Remaining)
	}
	if !got.Registered {
		t.Error("Registered should be true for the registered caller")
	}
}

func TestRegister_Duplicate(t *testing.T) {
	srv := newTestServer(t)
	w := mustCreateWorkshop(t, srv, "Intro", 10)
	alice := srv.token(t, "alice", domain.RoleUser)

	resp := register(t, srv, alice, w.ID)
	resp.Body.Close()

	expectOutcome(t, register(t, srv, alice, w.ID), http.StatusConflict, domain.OutcomeAlreadyRegistered)
}

func TestRegister_Full(t *testing.T) {
	srv := newTestServer(t)
	w := mustCreateWorkshop(t, srv, "Intro", 1)

	resp := register(t, srv, srv.token(t, "alice", domain.RoleUser), w.ID)
	resp.Body.Close()

	expectOutcome(t, register(t, srv, srv.token(t, "bob", domain.RoleUser), w.ID), http.StatusConflict, domain.OutcomeCapacityExceeded)
}

func TestRegister_NotFound(t *testing.T) {
	srv := newTestServer(t)

	expectOutcome(t, register(t, srv, srv.token(t, "alice", domain.RoleUser), "nonexistent"), http.StatusNotFound, domain.OutcomeNotFound)
}

func TestRegister_Anonymous(t *testing.T) {
	srv := newTestServer(t)
	w := mustCreateWorkshop(t, srv, "Intro", 1)

	expectOutcome(t, register(t, srv, "", w.ID), http.StatusUnauthorized, domain.OutcomeUnauthenticated)
}

func TestRegister_InvalidToken(t *testing.T) {
	srv := newTestServer(t)
	w := mustCreateWorkshop(t, srv, "Intro", 1)

	expectOutcome(t, register(t, srv, "not-a-token", w.ID), http.StatusUnauthorized, domain.OutcomeUnauthenticated)
}

func TestRoster(t *testing.T) {
	srv := newTestServer(t)
	w := mustCreateWorkshop(t, srv, "Intro", 5)

	for _, user := range []string{"alice", "bob"} {
		resp := register(t, srv, srv.token(t, user, domain.RoleUser), w.ID)
		resp.Body.Close()
	}

	url := srv.URL + "/api/v1/workshops/" + w.ID + "/registrations"
	expectOutcome(t, doRequest(t, http.MethodGet, url, srv.token(t, "alice", domain.RoleUser), ""), http.StatusForbidden, domain.OutcomeForbidden)

	resp := doRequest(t, http.MethodGet, url, srv.admin(t), "")
	defer resp.Body.Close()

	roster := decode[[]adapter.RegistrationResponse](t, resp)
	if len(roster) != 2 {
		t.Fatalf("got %d registrations, want 2", len(roster))
	}
}

// --- Me ---

func TestProfile(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.token(t, "alice", domain.RoleUser)
	url := srv.URL + "/api/v1/me/profile"

	resp := doRequest(t, http.MethodGet, url, alice, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	body := `{"full_name":"Alice Anderson","address":"Jl. Merdeka 1","city":"Bandung","phone_number":"+6281234567890"}`
	resp = doRequest(t, http.MethodPut, url, alice, body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	p := decode[adapter.ProfileResponse](t, resp)
	if p.UserID != "alice" || p.City != "Bandung" {
		t.Errorf("profile = %+v", p)
	}
}

func TestProfile_InvalidPhone(t *testing.T) {
	srv := newTestServer(t)

	body := `{"full_name":"Alice Anderson","address":"Jl. Merdeka 1","city":"Bandung","phone_number":"12ab"}`
	resp := doRequest(t, http.MethodPut, srv.URL+"/api/v1/me/profile", srv.token(t, "alice", domain.RoleUser), body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestMyRegistrations_Anonymous(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/me/registrations", "", "")
	expectOutcome(t, resp, http.StatusUnauthorized, domain.OutcomeUnauthenticated)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/healthz", "", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}
