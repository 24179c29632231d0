package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Client enqueues background tasks.
type Client struct {
	A *asynq.Client
}

// EnqueueRecalculate schedules an asynchronous recomputation of offer totals.
// Tasks for the same offer are deduplicated while one is still pending.
func (c Client) EnqueueRecalculate(ctx context.Context, offerID uuid.UUID) error {
	if c.A == nil {
		return errors.New("jobs: task client not configured")
	}
	if offerID == uuid.Nil {
		return errors.New("jobs: offer id is required")
	}
	payload, err := json.Marshal(RecalculatePayload{OfferID: offerID})
	if err != nil {
		return fmt.Errorf("jobs: marshal payload: %w", err)
	}
	task := asynq.NewTask(TypeOfferRecalculate, payload)
	_, err = c.A.EnqueueContext(ctx, task,
		asynq.TaskID("recalc:"+offerID.String()),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueReservationExpiry schedules a release of the reservation at the given time.
func (c Client) EnqueueReservationExpiry(ctx context.Context, reservationID uuid.UUID, at time.Time) error {
	if c.A == nil {
		return errors.New("jobs: task client not configured")
	}
	if reservationID == uuid.Nil {
		return errors.New("jobs: reservation id is required")
	}
	payload, err := json.Marshal(ReservationExpirePayload{ReservationID: reservationID})
	if err != nil {
		return fmt.Errorf("jobs: marshal payload: %w", err)
	}
	task := asynq.NewTask(TypeReservationExpire, payload)
	_, err = c.A.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	return err
}
