package jobs

import (
	"github.com/google/uuid"
)

// Task type names registered with the asynq mux.
const (
	TypeOfferRecalculate  = "offer:recalculate"
	TypeReservationExpire = "reservation:expire"
)

// RecalculatePayload carries the offer whose totals must be recomputed.
type RecalculatePayload struct {
	OfferID uuid.UUID `json:"offerId"`
}

// ReservationExpirePayload carries the reservation to release once its window passes.
type ReservationExpirePayload struct {
	ReservationID uuid.UUID `json:"reservationId"`
}
