package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists domain events in Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

// InsertDomainEvent writes the event row and returns the stored record.
func (s *PGStore) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (DomainEvent, error) {
	if s == nil || s.Pool == nil {
		return DomainEvent{}, errors.New("events: pool not configured")
	}
	const query = `
		INSERT INTO domain_events (topic, aggregate_id, payload)
		VALUES ($1, $2, $3)
		RETURNING id, topic, aggregate_id, payload, occurred_at`

	var (
		id         pgtype.UUID
		gotTopic   string
		aggregate  pgtype.UUID
		rawPayload []byte
		occurredAt pgtype.Timestamptz
	)
	err := s.Pool.QueryRow(ctx, query, topic, pgtype.UUID{Bytes: aggregateID, Valid: true}, payload).
		Scan(&id, &gotTopic, &aggregate, &rawPayload, &occurredAt)
	if err != nil {
		return DomainEvent{}, err
	}
	return DomainEvent{
		ID:          uuid.UUID(id.Bytes),
		Topic:       gotTopic,
		AggregateID: uuid.UUID(aggregate.Bytes),
		Payload:     json.RawMessage(rawPayload),
		OccurredAt:  occurredAt.Time,
	}, nil
}
