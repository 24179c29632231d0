package offer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stagecrew/backend-offers/internal/cache"
	"github.com/stagecrew/backend-offers/internal/catalog"
	"github.com/stagecrew/backend-offers/internal/common"
	"github.com/stagecrew/backend-offers/internal/events"
	"github.com/stagecrew/backend-offers/internal/obs"
	"github.com/stagecrew/backend-offers/internal/pricing"
)

const listCachePrefix = "offers:list:"

// Storage defines the persistence operations the offer service needs.
type Storage interface {
	CreateOffer(ctx context.Context, o Offer, items []Item) (Offer, error)
	GetOffer(ctx context.Context, id uuid.UUID) (Offer, error)
	ListOffers(ctx context.Context, status string, page, perPage int) ([]Offer, int64, error)
	UpdateOffer(ctx context.Context, id uuid.UUID, patch Patch) (Offer, error)
	SaveTotals(ctx context.Context, id uuid.UUID, sum pricing.Summary, vat pricing.VatSummary) error
	DeleteOffer(ctx context.Context, id uuid.UUID) error
	ListItems(ctx context.Context, offerID uuid.UUID) ([]Item, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (Item, error)
	CreateItem(ctx context.Context, item Item) (Item, error)
	UpdateItem(ctx context.Context, itemID uuid.UUID, patch ItemPatch) (Item, error)
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
}

// PresetSource loads presets used to bootstrap new offers.
type PresetSource interface {
	GetPreset(ctx context.Context, id uuid.UUID) (catalog.Preset, error)
}

// EventEmitter publishes domain events.
type EventEmitter interface {
	Emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) (events.DomainEvent, error)
}

// Service orchestrates offer persistence, pricing, and event emission.
type Service struct {
	Store   Storage
	Presets PresetSource
	Events  EventEmitter
	Cache   *cache.JSONCache
	Logger  zerolog.Logger
}

// CreateInput captures the fields accepted when creating an offer.
type CreateInput struct {
	Title           string
	CustomerName    string
	EventDate       *time.Time
	DiscountPercent float64
	IsVatPayer      bool
	OwnerID         uuid.UUID
	PresetID        *uuid.UUID
}

// Create inserts a new draft offer, optionally seeded from a preset, and
// computes its initial totals.
func (s *Service) Create(ctx context.Context, input CreateInput) (Detail, error) {
	if s == nil || s.Store == nil {
		return Detail{}, errors.New("offer service not configured")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Detail{}, common.NewAppError("VALIDATION_ERROR", "title is required", http.StatusBadRequest, nil)
	}
	if input.OwnerID == uuid.Nil {
		return Detail{}, common.NewAppError("VALIDATION_ERROR", "owner is required", http.StatusBadRequest, nil)
	}
	if err := validateDiscount(input.DiscountPercent); err != nil {
		return Detail{}, err
	}

	var items []Item
	if input.PresetID != nil && *input.PresetID != uuid.Nil {
		if s.Presets == nil {
			return Detail{}, errors.New("offer service: preset source not configured")
		}
		preset, err := s.Presets.GetPreset(ctx, *input.PresetID)
		if err != nil {
			return Detail{}, err
		}
		for _, line := range preset.Items {
			items = append(items, Item{
				Category:    line.Category,
				Subcategory: line.Subcategory,
				Name:        line.Name,
				UnitPrice:   line.UnitPrice,
				Quantity:    line.Quantity,
				Duration:    line.Duration,
				SortOrder:   line.SortOrder,
			})
		}
	}

	created, err := s.Store.CreateOffer(ctx, Offer{
		Title:           title,
		CustomerName:    strings.TrimSpace(input.CustomerName),
		Status:          StatusDraft,
		EventDate:       input.EventDate,
		DiscountPercent: input.DiscountPercent,
		IsVatPayer:      input.IsVatPayer,
		OwnerID:         input.OwnerID,
	}, items)
	if err != nil {
		return Detail{}, fmt.Errorf("create offer: %w", err)
	}

	if err := s.Recalculate(ctx, created.ID); err != nil {
		return Detail{}, err
	}
	s.emit(ctx, events.TopicOfferCreated, created.ID, map[string]any{"title": created.Title})
	s.invalidateListCache(ctx)
	return s.Get(ctx, created.ID)
}

// Get loads one offer with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Detail, error) {
	if s == nil || s.Store == nil {
		return Detail{}, errors.New("offer service not configured")
	}
	o, err := s.Store.GetOffer(ctx, id)
	if err != nil {
		return Detail{}, notFoundOr(err, "offer not found")
	}
	items, err := s.Store.ListItems(ctx, id)
	if err != nil {
		return Detail{}, fmt.Errorf("list offer items: %w", err)
	}
	return Detail{Offer: o, Items: items}, nil
}

// ListResult is one page of the offer listing.
type ListResult struct {
	Offers []Offer `json:"offers"`
	Total  int64   `json:"total"`
}

// List returns a page of offers, cached briefly to absorb dashboard polling.
func (s *Service) List(ctx context.Context, status string, page, perPage int) (ListResult, error) {
	if s == nil || s.Store == nil {
		return ListResult{}, errors.New("offer service not configured")
	}
	key := fmt.Sprintf("%s%s:%d:%d", listCachePrefix, status, page, perPage)
	var cached ListResult
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err != nil {
		s.Logger.Warn().Err(err).Msg("offer list cache read failed")
	} else if ok {
		return cached, nil
	}

	offers, total, err := s.Store.ListOffers(ctx, status, page, perPage)
	if err != nil {
		return ListResult{}, fmt.Errorf("list offers: %w", err)
	}
	if offers == nil {
		offers = []Offer{}
	}
	result := ListResult{Offers: offers, Total: total}
	if err := s.Cache.SetJSON(ctx, key, result); err != nil {
		s.Logger.Warn().Err(err).Msg("offer list cache write failed")
	}
	return result, nil
}

// Update applies header changes. Changing the discount or VAT flag triggers a
// recalculation; a status change emits an event.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (Offer, error) {
	if s == nil || s.Store == nil {
		return Offer{}, errors.New("offer service not configured")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return Offer{}, common.NewAppError("VALIDATION_ERROR", "unknown offer status", http.StatusBadRequest, nil)
	}
	if patch.DiscountPercent != nil {
		if err := validateDiscount(*patch.DiscountPercent); err != nil {
			return Offer{}, err
		}
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return Offer{}, common.NewAppError("VALIDATION_ERROR", "title must not be empty", http.StatusBadRequest, nil)
	}

	before, err := s.Store.GetOffer(ctx, id)
	if err != nil {
		return Offer{}, notFoundOr(err, "offer not found")
	}

	updated, err := s.Store.UpdateOffer(ctx, id, patch)
	if err != nil {
		return Offer{}, notFoundOr(err, "offer not found")
	}

	if patch.DiscountPercent != nil || patch.IsVatPayer != nil {
		if err := s.Recalculate(ctx, id); err != nil {
			return Offer{}, err
		}
		updated, err = s.Store.GetOffer(ctx, id)
		if err != nil {
			return Offer{}, notFoundOr(err, "offer not found")
		}
	}
	if patch.Status != nil && *patch.Status != before.Status {
		s.emit(ctx, events.TopicOfferStatusChanged, id, map[string]any{
			"from": string(before.Status),
			"to":   string(*patch.Status),
		})
	}
	s.invalidateListCache(ctx)
	return updated, nil
}

// Delete removes the offer and its items.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("offer service not configured")
	}
	if err := s.Store.DeleteOffer(ctx, id); err != nil {
		return notFoundOr(err, "offer not found")
	}
	s.emit(ctx, events.TopicOfferDeleted, id, nil)
	s.invalidateListCache(ctx)
	return nil
}

// AddItem validates and inserts an item, then refreshes totals.
func (s *Service) AddItem(ctx context.Context, offerID uuid.UUID, item Item) (Item, error) {
	if s == nil || s.Store == nil {
		return Item{}, errors.New("offer service not configured")
	}
	item.Category = strings.TrimSpace(item.Category)
	item.Name = strings.TrimSpace(item.Name)
	if item.Category == "" || item.Name == "" {
		return Item{}, common.NewAppError("VALIDATION_ERROR", "category and name are required", http.StatusBadRequest, nil)
	}
	if err := validateItemNumbers(item.UnitPrice, item.Quantity, item.Duration); err != nil {
		return Item{}, err
	}
	if item.Quantity <= 0 {
		return Item{}, common.NewAppError("VALIDATION_ERROR", "quantity must be positive", http.StatusBadRequest, nil)
	}

	if _, err := s.Store.GetOffer(ctx, offerID); err != nil {
		return Item{}, notFoundOr(err, "offer not found")
	}
	item.OfferID = offerID
	created, err := s.Store.CreateItem(ctx, item)
	if err != nil {
		recordItemWrite("create", "error")
		return Item{}, fmt.Errorf("create offer item: %w", err)
	}
	recordItemWrite("create", "ok")
	if err := s.Recalculate(ctx, offerID); err != nil {
		return Item{}, err
	}
	s.invalidateListCache(ctx)
	return created, nil
}

// UpdateItem applies an item patch. Setting quantity to zero removes the row:
// a zero-quantity line is not part of the offer.
func (s *Service) UpdateItem(ctx context.Context, itemID uuid.UUID, patch ItemPatch) (Item, error) {
	if s == nil || s.Store == nil {
		return Item{}, errors.New("offer service not configured")
	}
	if patch.UnitPrice != nil && (math.IsNaN(*patch.UnitPrice) || *patch.UnitPrice < 0) {
		return Item{}, common.NewAppError("VALIDATION_ERROR", "unit price must be non-negative", http.StatusBadRequest, nil)
	}
	if patch.Quantity != nil && (math.IsNaN(*patch.Quantity) || *patch.Quantity < 0) {
		return Item{}, common.NewAppError("VALIDATION_ERROR", "quantity must be non-negative", http.StatusBadRequest, nil)
	}
	if patch.Duration != nil && (math.IsNaN(*patch.Duration) || *patch.Duration < 0.5) {
		return Item{}, common.NewAppError("VALIDATION_ERROR", "duration must be at least half a day", http.StatusBadRequest, nil)
	}

	existing, err := s.Store.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, notFoundOr(err, "offer item not found")
	}

	if patch.Quantity != nil && *patch.Quantity == 0 {
		if err := s.Store.DeleteItem(ctx, itemID); err != nil {
			recordItemWrite("delete", "error")
			return Item{}, notFoundOr(err, "offer item not found")
		}
		recordItemWrite("delete", "ok")
		if err := s.Recalculate(ctx, existing.OfferID); err != nil {
			return Item{}, err
		}
		s.invalidateListCache(ctx)
		existing.Quantity = 0
		return existing, nil
	}

	updated, err := s.Store.UpdateItem(ctx, itemID, patch)
	if err != nil {
		recordItemWrite("update", "error")
		return Item{}, notFoundOr(err, "offer item not found")
	}
	recordItemWrite("update", "ok")
	if err := s.Recalculate(ctx, updated.OfferID); err != nil {
		return Item{}, err
	}
	s.invalidateListCache(ctx)
	return updated, nil
}

// RemoveItem deletes an item and refreshes the offer totals.
func (s *Service) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("offer service not configured")
	}
	existing, err := s.Store.GetItem(ctx, itemID)
	if err != nil {
		return notFoundOr(err, "offer item not found")
	}
	if err := s.Store.DeleteItem(ctx, itemID); err != nil {
		recordItemWrite("delete", "error")
		return notFoundOr(err, "offer item not found")
	}
	recordItemWrite("delete", "ok")
	if err := s.Recalculate(ctx, existing.OfferID); err != nil {
		return err
	}
	s.invalidateListCache(ctx)
	return nil
}

// Recalculate recomputes and persists all pricing columns for an offer.
func (s *Service) Recalculate(ctx context.Context, offerID uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("offer service not configured")
	}
	o, err := s.Store.GetOffer(ctx, offerID)
	if err != nil {
		recordRecalc("error")
		return notFoundOr(err, "offer not found")
	}
	items, err := s.Store.ListItems(ctx, offerID)
	if err != nil {
		recordRecalc("error")
		return fmt.Errorf("list offer items: %w", err)
	}

	engineItems := make([]pricing.Item, 0, len(items))
	for _, item := range items {
		engineItems = append(engineItems, pricing.Item{
			Category:  item.Category,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Duration:  item.Duration,
		})
	}
	summary := pricing.Aggregate(engineItems, o.DiscountPercent)
	vat := pricing.WithVat(summary.TotalAmount, o.IsVatPayer)

	if err := s.Store.SaveTotals(ctx, offerID, summary, vat); err != nil {
		recordRecalc("error")
		return fmt.Errorf("save offer totals: %w", err)
	}
	recordRecalc("ok")
	s.emit(ctx, events.TopicOfferRecalculated, offerID, map[string]any{
		"totalAmount":  summary.TotalAmount,
		"totalWithVat": vat.TotalWithVat,
	})
	return nil
}

func (s *Service) emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, aggregateID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Msg("event emission failed")
	}
}

func (s *Service) invalidateListCache(ctx context.Context) {
	if err := s.Cache.InvalidatePrefix(ctx, listCachePrefix); err != nil {
		s.Logger.Warn().Err(err).Msg("offer list cache invalidation failed")
	}
}

func validateDiscount(pct float64) error {
	if math.IsNaN(pct) || pct < 0 || pct > 100 {
		return common.NewAppError("VALIDATION_ERROR", "discount percent must be between 0 and 100", http.StatusBadRequest, nil)
	}
	return nil
}

func validateItemNumbers(price, qty, duration float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return common.NewAppError("VALIDATION_ERROR", "unit price must be non-negative", http.StatusBadRequest, nil)
	}
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty < 0 {
		return common.NewAppError("VALIDATION_ERROR", "quantity must be non-negative", http.StatusBadRequest, nil)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0.5 {
		return common.NewAppError("VALIDATION_ERROR", "duration must be at least half a day", http.StatusBadRequest, nil)
	}
	return nil
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NewAppError("NOT_FOUND", message, http.StatusNotFound, err)
	}
	return err
}

func recordRecalc(result string) {
	if obs.OfferRecalcTotal == nil {
		return
	}
	obs.OfferRecalcTotal.WithLabelValues(result).Inc()
}

func recordItemWrite(op, result string) {
	if obs.OfferItemWritesTotal == nil {
		return
	}
	obs.OfferItemWritesTotal.WithLabelValues(op, result).Inc()
}
