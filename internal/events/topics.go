package events

// Topic constants for domain events emitted by the platform.
const (
	TopicOfferCreated        = "offer.created"
	TopicOfferRecalculated   = "offer.recalculated"
	TopicOfferStatusChanged  = "offer.status_changed"
	TopicOfferDeleted        = "offer.deleted"
	TopicReservationCreated  = "reservation.created"
	TopicReservationReleased = "reservation.released"
)

// DefaultTopics returns the canonical list of topics emitted by the service.
func DefaultTopics() []string {
	return []string{
		TopicOfferCreated,
		TopicOfferRecalculated,
		TopicOfferStatusChanged,
		TopicOfferDeleted,
		TopicReservationCreated,
		TopicReservationReleased,
	}
}
