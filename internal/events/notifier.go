package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes emitted events to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify logs the event topic and aggregate.
func (n LogNotifier) Notify(_ context.Context, event DomainEvent) error {
	n.Logger.Info().
		Str("topic", event.Topic).
		Str("aggregate_id", event.AggregateID.String()).
		Str("event_id", event.ID.String()).
		Time("occurred_at", event.OccurredAt).
		Msg("domain event emitted")
	return nil
}
