package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/neomorfeo/workshops/internal/domain"
)

const meterName = "github.com/neomorfeo/workshops/internal/app"

// AdmissionController decides whether a user may join a workshop and, on
// admission, records the registration and the occupancy change as one unit.
// It is the only writer of registrations and of occupancy.
type AdmissionController struct {
	store     domain.Store
	publisher domain.EventPublisher
	locks     *workshopLocks
	timeout   time.Duration
	logger    *slog.Logger
	outcomes  metric.Int64Counter
}

func newAdmissionController(store domain.Store, publisher domain.EventPublisher, locks *workshopLocks, o options) *AdmissionController {
	outcomes, err := otel.Meter(meterName).Int64Counter("workshops.admission.outcomes",
		metric.WithDescription("Registration attempts by outcome"),
	)
	if err != nil {
		o.logger.Warn("admission outcome counter unavailable", "error", err)
	}

	return &AdmissionController{
		store:     store,
		publisher: publisher,
		locks:     locks,
		timeout:   o.timeout,
		logger:    o.logger,
		outcomes:  outcomes,
	}
}

// Register admits who to the workshop. Checks run in order and short-circuit:
// the caller is authenticated, the workshop exists, the caller holds no
// registration for it, and a seat is free. Policy rejections are returned as
// domain sentinel errors and are final; only domain.ErrUnavailable is
// retryable.
func (c *AdmissionController) Register(ctx context.Context, who domain.Identity, workshopID string) (domain.Registration, error) {
	reg, err := c.register(ctx, who, workshopID)

	outcome := domain.OutcomeOf(err)
	if c.outcomes != nil {
		c.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
	}

	switch outcome {
	case domain.OutcomeAdmitted:
		c.logger.InfoContext(ctx, "registration admitted",
			"workshop_id", workshopID,
			"user_id", who.UserID,
			"registration_id", reg.ID,
		)
	case domain.OutcomeError:
		c.logger.ErrorContext(ctx, "registration failed",
			"workshop_id", workshopID,
			"user_id", who.UserID,
			"error", err,
		)
	default:
		c.logger.InfoContext(ctx, "registration rejected",
			"workshop_id", workshopID,
			"user_id", who.UserID,
			"outcome", string(outcome),
		)
	}

	return reg, err
}

func (c *AdmissionController) register(ctx context.Context, who domain.Identity, workshopID string) (domain.Registration, error) {
	if who.IsAnonymous() {
		return domain.Registration{}, domain.ErrUnauthenticated
	}

	id, err := generateID()
	if err != nil {
		return domain.Registration{}, fmt.Errorf("generating registration id: %w", err)
	}
	reg := domain.NewRegistration(id, who.UserID, workshopID)

	var admitted domain.Workshop
	err = c.locks.within(ctx, workshopID, c.timeout, func(ctx context.Context) error {
		return c.store.WithinWorkshop(ctx, workshopID, func(ctx context.Context, tx domain.AdmissionTx) error {
			w, err := tx.GetWorkshop(ctx, workshopID)
			if err != nil {
				return err
			}

			inserted, err := tx.InsertRegistrationIfAbsent(ctx, reg)
			if err != nil {
				return fmt.Errorf("inserting registration: %w", err)
			}
			if !inserted {
				return domain.ErrAlreadyRegistered
			}

			// Rolling back on a full workshop also discards the insert above.
			ok, err := tx.IncrementOccupancyIfBelowCapacity(ctx, workshopID)
			if err != nil {
				return fmt.Errorf("incrementing occupancy: %w", err)
			}
			if !ok {
				return domain.ErrCapacityExceeded
			}

			w.Occupancy++
			admitted = w
			return nil
		})
	})
	if err != nil {
		return domain.Registration{}, err
	}

	c.publish(ctx, domain.Event{
		Kind:       domain.EventRegistrationAdmitted,
		WorkshopID: workshopID,
		UserID:     who.UserID,
		Capacity:   admitted.Capacity,
		Occupancy:  admitted.Occupancy,
		OccurredAt: reg.CreatedAt,
	})

	return reg, nil
}

// publish emits an event for a committed change. A failure cannot undo the
// change, so it is logged rather than returned.
func (c *AdmissionController) publish(ctx context.Context, event domain.Event) {
	publish(ctx, c.publisher, c.logger, event)
}

func publish(ctx context.Context, publisher domain.EventPublisher, logger *slog.Logger, event domain.Event) {
	if err := publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.WarnContext(ctx, "publishing event failed",
			"event", string(event.Kind),
			"workshop_id", event.WorkshopID,
			"error", err,
		)
	}
}

// asUnavailable folds deadline expiry into domain.ErrUnavailable so callers
// see contention as the one retryable outcome. Once ctx has expired, a store
// failure such as a transaction rolled back under it counts as expiry too;
// policy rejections keep their outcome.
func asUnavailable(ctx context.Context, err error) error {
	switch {
	case err == nil, errors.Is(err, domain.ErrUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded) && domain.OutcomeOf(err) == domain.OutcomeError:
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return err
}
