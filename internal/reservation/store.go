package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stagecrew/backend-offers/internal/common"
)

// Store persists reservations in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

const columns = `id, offer_id, catalog_item_id, quantity, starts_at, ends_at, status, created_at`

// Create inserts an active reservation and returns the stored row.
func (s *Store) Create(ctx context.Context, r Reservation) (Reservation, error) {
	if s == nil || s.Pool == nil {
		return Reservation{}, errors.New("reservation: pool not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO reservations (offer_id, catalog_item_id, quantity, starts_at, ends_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+columns,
		pgtype.UUID{Bytes: r.OfferID, Valid: true},
		pgtype.UUID{Bytes: r.CatalogItemID, Valid: true},
		r.Quantity, r.StartsAt, r.EndsAt, string(StatusActive))
	return scan(row)
}

// Get loads one reservation.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Reservation, error) {
	if s == nil || s.Pool == nil {
		return Reservation{}, errors.New("reservation: pool not configured")
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+columns+` FROM reservations WHERE id = $1`,
		pgtype.UUID{Bytes: id, Valid: true})
	return scan(row)
}

// ListForOffer returns all reservations attached to an offer.
func (s *Store) ListForOffer(ctx context.Context, offerID uuid.UUID) ([]Reservation, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("reservation: pool not configured")
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+columns+` FROM reservations WHERE offer_id = $1 ORDER BY created_at`,
		pgtype.UUID{Bytes: offerID, Valid: true})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SumOverlapping returns the total active quantity of one catalog item
// reserved over any window overlapping [start, end).
func (s *Store) SumOverlapping(ctx context.Context, catalogItemID uuid.UUID, start, end time.Time) (int, error) {
	if s == nil || s.Pool == nil {
		return 0, errors.New("reservation: pool not configured")
	}
	var total int
	err := s.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM reservations
		WHERE catalog_item_id = $1
		  AND status = 'active'
		  AND starts_at < $3
		  AND ends_at > $2`,
		pgtype.UUID{Bytes: catalogItemID, Valid: true}, start, end).Scan(&total)
	return total, err
}

// SetStatus transitions a reservation to the given status. When from is
// non-empty the update only applies if the current status matches.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	if s == nil || s.Pool == nil {
		return errors.New("reservation: pool not configured")
	}
	query := `UPDATE reservations SET status = $2 WHERE id = $1`
	args := []any{pgtype.UUID{Bytes: id, Valid: true}, string(to)}
	if from != "" {
		query += ` AND status = $3`
		args = append(args, string(from))
	}
	tag, err := s.Pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func scan(row pgx.Row) (Reservation, error) {
	var (
		id            pgtype.UUID
		offerID       pgtype.UUID
		catalogItemID pgtype.UUID
		r             Reservation
		status        string
		startsAt      pgtype.Timestamptz
		endsAt        pgtype.Timestamptz
		createdAt     pgtype.Timestamptz
	)
	err := row.Scan(&id, &offerID, &catalogItemID, &r.Quantity, &startsAt, &endsAt, &status, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reservation{}, common.ErrNotFound
		}
		return Reservation{}, err
	}
	r.ID = uuid.UUID(id.Bytes)
	r.OfferID = uuid.UUID(offerID.Bytes)
	r.CatalogItemID = uuid.UUID(catalogItemID.Bytes)
	r.Status = Status(status)
	r.StartsAt = startsAt.Time
	r.EndsAt = endsAt.Time
	r.CreatedAt = createdAt.Time
	return r, nil
}
