package reservation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stagecrew/backend-offers/internal/catalog"
	"github.com/stagecrew/backend-offers/internal/common"
	"github.com/stagecrew/backend-offers/internal/events"
	"github.com/stagecrew/backend-offers/internal/lock"
	"github.com/stagecrew/backend-offers/internal/obs"
)

// Storage defines the persistence operations the reservation service needs.
type Storage interface {
	Create(ctx context.Context, r Reservation) (Reservation, error)
	Get(ctx context.Context, id uuid.UUID) (Reservation, error)
	ListForOffer(ctx context.Context, offerID uuid.UUID) ([]Reservation, error)
	SumOverlapping(ctx context.Context, catalogItemID uuid.UUID, start, end time.Time) (int, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to Status) error
}

// ItemSource loads catalog items for stock checks.
type ItemSource interface {
	GetItem(ctx context.Context, id uuid.UUID) (catalog.Item, error)
}

// ExpiryEnqueuer schedules automatic release of a reservation once its window passes.
type ExpiryEnqueuer interface {
	EnqueueReservationExpiry(ctx context.Context, reservationID uuid.UUID, at time.Time) error
}

// EventEmitter publishes domain events.
type EventEmitter interface {
	Emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) (events.DomainEvent, error)
}

// Service manages stock reservations. Concurrent reservations of the same
// catalog item serialize on a Redis lock so the stock check cannot race.
type Service struct {
	Store   Storage
	Items   ItemSource
	Locker  lock.Locker
	LockTTL time.Duration
	Events  EventEmitter
	Jobs    ExpiryEnqueuer
	Logger  zerolog.Logger
}

// ReserveInput captures the fields accepted when reserving stock.
type ReserveInput struct {
	OfferID       uuid.UUID
	CatalogItemID uuid.UUID
	Quantity      int
	StartsAt      time.Time
	EndsAt        time.Time
}

// Reserve holds stock for an offer over a time window. It fails with a
// conflict when overlapping active reservations would exceed the item's stock.
func (s *Service) Reserve(ctx context.Context, input ReserveInput) (Reservation, error) {
	if s == nil || s.Store == nil || s.Items == nil {
		return Reservation{}, errors.New("reservation service not configured")
	}
	if input.OfferID == uuid.Nil || input.CatalogItemID == uuid.Nil {
		return Reservation{}, common.NewAppError("VALIDATION_ERROR", "offer and catalog item are required", http.StatusBadRequest, nil)
	}
	if input.Quantity <= 0 {
		return Reservation{}, common.NewAppError("VALIDATION_ERROR", "quantity must be positive", http.StatusBadRequest, nil)
	}
	if !input.EndsAt.After(input.StartsAt) {
		return Reservation{}, common.NewAppError("VALIDATION_ERROR", "reservation window must end after it starts", http.StatusBadRequest, nil)
	}

	var created Reservation
	key := lock.ItemKey(input.CatalogItemID.String())
	err := s.Locker.WithLock(ctx, key, s.LockTTL, func(ctx context.Context) error {
		item, err := s.Items.GetItem(ctx, input.CatalogItemID)
		if err != nil {
			return err
		}
		reserved, err := s.Store.SumOverlapping(ctx, input.CatalogItemID, input.StartsAt, input.EndsAt)
		if err != nil {
			return fmt.Errorf("sum overlapping reservations: %w", err)
		}
		if reserved+input.Quantity > item.StockQuantity {
			recordConflict()
			return common.NewAppError("STOCK_CONFLICT",
				fmt.Sprintf("only %d of %d units available in that window", item.StockQuantity-reserved, item.StockQuantity),
				http.StatusConflict, common.ErrConflict)
		}
		created, err = s.Store.Create(ctx, Reservation{
			OfferID:       input.OfferID,
			CatalogItemID: input.CatalogItemID,
			Quantity:      input.Quantity,
			StartsAt:      input.StartsAt,
			EndsAt:        input.EndsAt,
		})
		if err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}

	s.emit(ctx, events.TopicReservationCreated, created.ID, map[string]any{
		"offerId":  created.OfferID.String(),
		"quantity": created.Quantity,
	})
	if s.Jobs != nil {
		if err := s.Jobs.EnqueueReservationExpiry(ctx, created.ID, created.EndsAt); err != nil {
			s.Logger.Warn().Err(err).Str("reservation_id", created.ID.String()).Msg("expiry enqueue failed")
		}
	}
	return created, nil
}

// Release frees an active reservation ahead of its expiry.
func (s *Service) Release(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("reservation service not configured")
	}
	if err := s.Store.SetStatus(ctx, id, StatusActive, StatusReleased); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewAppError("NOT_FOUND", "active reservation not found", http.StatusNotFound, err)
		}
		return err
	}
	s.emit(ctx, events.TopicReservationReleased, id, nil)
	return nil
}

// ReleaseExpired transitions a reservation to expired once its window has
// passed. Already released or expired reservations are left untouched.
func (s *Service) ReleaseExpired(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("reservation service not configured")
	}
	current, err := s.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}
	if current.Status != StatusActive {
		return nil
	}
	if err := s.Store.SetStatus(ctx, id, StatusActive, StatusExpired); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}
	s.emit(ctx, events.TopicReservationReleased, id, map[string]any{"reason": "expired"})
	return nil
}

// ListForOffer returns the reservations attached to an offer.
func (s *Service) ListForOffer(ctx context.Context, offerID uuid.UUID) ([]Reservation, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("reservation service not configured")
	}
	out, err := s.Store.ListForOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, aggregateID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Msg("event emission failed")
	}
}

func recordConflict() {
	if obs.ReservationConflictsTotal == nil {
		return
	}
	obs.ReservationConflictsTotal.Inc()
}
