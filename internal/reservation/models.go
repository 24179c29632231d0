package reservation

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a stock reservation.
type Status string

// Reservation lifecycle states.
const (
	StatusActive   Status = "active"
	StatusReleased Status = "released"
	StatusExpired  Status = "expired"
)

// Reservation holds a quantity of one catalog item for an offer over a time window.
type Reservation struct {
	ID            uuid.UUID `json:"id"`
	OfferID       uuid.UUID `json:"offerId"`
	CatalogItemID uuid.UUID `json:"catalogItemId"`
	Quantity      int       `json:"quantity"`
	StartsAt      time.Time `json:"startsAt"`
	EndsAt        time.Time `json:"endsAt"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}
