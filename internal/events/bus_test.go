package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stagecrew/backend-offers/internal/events"
)

type stubStore struct {
	lastTopic     string
	lastAggregate uuid.UUID
	lastPayload   []byte
	err           error
}

func (s *stubStore) InsertDomainEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.DomainEvent, error) {
	if s.err != nil {
		return events.DomainEvent{}, s.err
	}
	s.lastTopic = topic
	s.lastAggregate = aggregateID
	s.lastPayload = payload
	return events.DomainEvent{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}, nil
}

type captureScheduler struct {
	events []events.DomainEvent
}

func (c *captureScheduler) Schedule(_ context.Context, event events.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

type captureNotifier struct {
	events []events.DomainEvent
}

func (c *captureNotifier) Notify(_ context.Context, event events.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	scheduler := &captureScheduler{}
	notifier := &captureNotifier{}
	bus := events.Bus{
		Store:     store,
		Scheduler: scheduler,
		Notifiers: []events.Notifier{notifier},
	}

	aggregate := uuid.New()
	payload := map[string]any{"offerId": aggregate.String()}
	ctx := context.Background()
	event, err := bus.Emit(ctx, events.TopicOfferCreated, aggregate, payload)
	require.NoError(t, err)
	require.Equal(t, events.TopicOfferCreated, store.lastTopic)
	require.JSONEq(t, `{"offerId":"`+aggregate.String()+`"}`, string(store.lastPayload))
	require.Len(t, scheduler.events, 1)
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, scheduler.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, aggregate.String(), decoded["offerId"])
}

func TestEmitValidatesInput(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	ctx := context.Background()

	_, err := bus.Emit(ctx, " ", uuid.New(), nil)
	require.Error(t, err)

	_, err = bus.Emit(ctx, events.TopicOfferCreated, uuid.Nil, nil)
	require.Error(t, err)

	_, err = bus.Emit(ctx, events.TopicOfferCreated, uuid.New(), []byte("not json"))
	require.Error(t, err)
}

func TestEmitNilPayloadBecomesEmptyObject(t *testing.T) {
	store := &stubStore{}
	bus := events.Bus{Store: store}

	_, err := bus.Emit(context.Background(), events.TopicOfferDeleted, uuid.New(), nil)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(store.lastPayload))
}
