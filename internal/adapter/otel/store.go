package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/workshops/internal/domain"
)

const tracerName = "github.com/neomorfeo/workshops/internal/adapter/otel"

// TracingStore wraps a domain.Store with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
// Steps inside an admission get child spans of Store.WithinWorkshop.
type TracingStore struct {
	next   domain.Store
	tracer trace.Tracer
}

// Compile-time check: TracingStore implements domain.Store.
var _ domain.Store = (*TracingStore)(nil)

// NewTracingStore creates a tracing decorator around the given store.
func NewTracingStore(next domain.Store) *TracingStore {
	return &TracingStore{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

// end records err on span and ends it.
func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *TracingStore) CreateWorkshop(ctx context.Context, w domain.Workshop) error {
	ctx, span := s.tracer.Start(ctx, "Store.CreateWorkshop",
		trace.WithAttributes(
			attribute.String("workshop.id", w.ID),
			attribute.Int("workshop.capacity", w.Capacity),
		),
	)

	err := s.next.CreateWorkshop(ctx, w)
	end(span, err)
	return err
}

func (s *TracingStore) GetWorkshop(ctx context.Context, id string) (domain.Workshop, error) {
	ctx, span := s.tracer.Start(ctx, "Store.GetWorkshop",
		trace.WithAttributes(attribute.String("workshop.id", id)),
	)

	w, err := s.next.GetWorkshop(ctx, id)
	end(span, err)
	return w, err
}

func (s *TracingStore) ListWorkshops(ctx context.Context, filter domain.ListFilter) ([]domain.Workshop, error) {
	ctx, span := s.tracer.Start(ctx, "Store.ListWorkshops",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
			attribute.String("filter.order", string(filter.Order)),
		),
	)

	if filter.Query != "" {
		span.SetAttributes(attribute.String("filter.query", filter.Query))
	}

	workshops, err := s.next.ListWorkshops(ctx, filter)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(workshops)))
	}
	end(span, err)
	return workshops, err
}

func (s *TracingStore) UpdateWorkshop(ctx context.Context, id string, def domain.Definition) (domain.Workshop, error) {
	ctx, span := s.tracer.Start(ctx, "Store.UpdateWorkshop",
		trace.WithAttributes(
			attribute.String("workshop.id", id),
			attribute.Int("workshop.capacity", def.Capacity),
		),
	)

	w, err := s.next.UpdateWorkshop(ctx, id, def)
	if err == nil {
		span.SetAttributes(attribute.Int("workshop.occupancy", w.Occupancy))
	}
	end(span, err)
	return w, err
}

func (s *TracingStore) DeleteWorkshop(ctx context.Context, id string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "Store.DeleteWorkshop",
		trace.WithAttributes(attribute.String("workshop.id", id)),
	)

	removed, err := s.next.DeleteWorkshop(ctx, id)
	if err == nil {
		span.SetAttributes(attribute.Int("registrations.removed", removed))
	}
	end(span, err)
	return removed, err
}

func (s *TracingStore) ListRegistrationsFor(ctx context.Context, userID string) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "Store.ListRegistrationsFor",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)

	ids, err := s.next.ListRegistrationsFor(ctx, userID)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(ids)))
	}
	end(span, err)
	return ids, err
}

func (s *TracingStore) ListRegistrationsByWorkshop(ctx context.Context, workshopID string) ([]domain.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "Store.ListRegistrationsByWorkshop",
		trace.WithAttributes(attribute.String("workshop.id", workshopID)),
	)

	regs, err := s.next.ListRegistrationsByWorkshop(ctx, workshopID)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(regs)))
	}
	end(span, err)
	return regs, err
}

func (s *TracingStore) WithinWorkshop(ctx context.Context, workshopID string, fn func(ctx context.Context, tx domain.AdmissionTx) error) error {
	ctx, span := s.tracer.Start(ctx, "Store.WithinWorkshop",
		trace.WithAttributes(attribute.String("workshop.id", workshopID)),
	)

	err := s.next.WithinWorkshop(ctx, workshopID, func(ctx context.Context, tx domain.AdmissionTx) error {
		return fn(ctx, &tracingTx{next: tx, tracer: s.tracer})
	})
	outcome := domain.OutcomeOf(err)
	span.SetAttributes(attribute.String("admission.outcome", string(outcome)))

	// Policy rejections are answers, not span errors.
	switch outcome {
	case domain.OutcomeError, domain.OutcomeUnavailable:
		end(span, err)
	default:
		span.End()
	}
	return err
}

type tracingTx struct {
	next   domain.AdmissionTx
	tracer trace.Tracer
}

func (t *tracingTx) GetWorkshop(ctx context.Context, id string) (domain.Workshop, error) {
	ctx, span := t.tracer.Start(ctx, "AdmissionTx.GetWorkshop")
	w, err := t.next.GetWorkshop(ctx, id)
	end(span, err)
	return w, err
}

func (t *tracingTx) InsertRegistrationIfAbsent(ctx context.Context, r domain.Registration) (bool, error) {
	ctx, span := t.tracer.Start(ctx, "AdmissionTx.InsertRegistrationIfAbsent",
		trace.WithAttributes(attribute.String("user.id", r.UserID)),
	)
	inserted, err := t.next.InsertRegistrationIfAbsent(ctx, r)
	span.SetAttributes(attribute.Bool("inserted", inserted))
	end(span, err)
	return inserted, err
}

func (t *tracingTx) IncrementOccupancyIfBelowCapacity(ctx context.Context, workshopID string) (bool, error) {
	ctx, span := t.tracer.Start(ctx, "AdmissionTx.IncrementOccupancyIfBelowCapacity")
	ok, err := t.next.IncrementOccupancyIfBelowCapacity(ctx, workshopID)
	span.SetAttributes(attribute.Bool("incremented", ok))
	end(span, err)
	return ok, err
}
