package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/stagecrew/backend-offers/internal/obs"
)

// OfferRecalculator recomputes and persists totals for a single offer.
type OfferRecalculator interface {
	Recalculate(ctx context.Context, offerID uuid.UUID) error
}

// ReservationReleaser releases a reservation whose hold has expired.
type ReservationReleaser interface {
	ReleaseExpired(ctx context.Context, reservationID uuid.UUID) error
}

// Handlers bundles the services invoked by the worker.
type Handlers struct {
	Offers       OfferRecalculator
	Reservations ReservationReleaser
	Logger       zerolog.Logger
}

// NewMux registers all task handlers on an asynq ServeMux.
func NewMux(h Handlers) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeOfferRecalculate, h.handleOfferRecalculate)
	mux.HandleFunc(TypeReservationExpire, h.handleReservationExpire)
	return mux
}

func (h Handlers) handleOfferRecalculate(ctx context.Context, task *asynq.Task) error {
	if h.Offers == nil {
		return fmt.Errorf("offer recalculator not configured: %w", asynq.SkipRetry)
	}
	var payload RecalculatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.OfferID == uuid.Nil {
		return fmt.Errorf("offer id missing: %w", asynq.SkipRetry)
	}
	if err := h.Offers.Recalculate(ctx, payload.OfferID); err != nil {
		recordJobRun(TypeOfferRecalculate, "error")
		h.Logger.Error().Err(err).Str("offer_id", payload.OfferID.String()).Msg("offer recalculation failed")
		return err
	}
	recordJobRun(TypeOfferRecalculate, "ok")
	h.Logger.Info().Str("offer_id", payload.OfferID.String()).Msg("offer recalculated")
	return nil
}

func (h Handlers) handleReservationExpire(ctx context.Context, task *asynq.Task) error {
	if h.Reservations == nil {
		return fmt.Errorf("reservation releaser not configured: %w", asynq.SkipRetry)
	}
	var payload ReservationExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.ReservationID == uuid.Nil {
		return fmt.Errorf("reservation id missing: %w", asynq.SkipRetry)
	}
	if err := h.Reservations.ReleaseExpired(ctx, payload.ReservationID); err != nil {
		recordJobRun(TypeReservationExpire, "error")
		h.Logger.Error().Err(err).Str("reservation_id", payload.ReservationID.String()).Msg("reservation expiry failed")
		return err
	}
	recordJobRun(TypeReservationExpire, "ok")
	h.Logger.Info().Str("reservation_id", payload.ReservationID.String()).Msg("reservation expired")
	return nil
}

func recordJobRun(task, result string) {
	if obs.JobRunsTotal == nil {
		return
	}
	obs.JobRunsTotal.WithLabelValues(task, result).Inc()
}
