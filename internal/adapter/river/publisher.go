package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/workshops/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher[*sql.Tx])(nil)

// EventJobArgs carries the data needed to process a domain event asynchronously.
// River serializes this as JSON into its job queue table. It is a snapshot of
// the committed change, so the worker never needs to query the database.
type EventJobArgs struct {
	Event      string    `json:"event"`
	WorkshopID string    `json:"workshop_id"`
	UserID     string    `json:"user_id,omitempty"`
	Capacity   int       `json:"capacity,omitempty"`
	Occupancy  int       `json:"occupancy,omitempty"`
	Removed    int       `json:"removed,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (EventJobArgs) Kind() string { return "event.published" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher[TTx any] struct {
	client *river.Client[TTx]
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher[TTx any](client *river.Client[TTx]) *Publisher[TTx] {
	return &Publisher[TTx]{client: client}
}

// Publish enqueues a domain event as an async job in River.
func (p *Publisher[TTx]) Publish(ctx context.Context, event domain.Event) error {
	_, err := p.client.Insert(ctx, EventJobArgs{
		Event:      string(event.Kind),
		WorkshopID: event.WorkshopID,
		UserID:     event.UserID,
		Capacity:   event.Capacity,
		Occupancy:  event.Occupancy,
		Removed:    event.Removed,
		OccurredAt: event.OccurredAt,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing event job: %w", err)
	}
	return nil
}
