package jobs

import (
	"context"

	"github.com/stagecrew/backend-offers/internal/events"
)

// EventScheduler enqueues background work in response to domain events. It
// implements events.Scheduler so the bus can fan out into the task queue.
type EventScheduler struct {
	Client Client
}

// Schedule reacts to events that require asynchronous follow-up. Recalculation
// events are ignored to avoid re-enqueueing the work that produced them.
func (s EventScheduler) Schedule(ctx context.Context, event events.DomainEvent) error {
	switch event.Topic {
	case events.TopicOfferCreated, events.TopicOfferStatusChanged:
		return s.Client.EnqueueRecalculate(ctx, event.AggregateID)
	default:
		return nil
	}
}
