package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stagecrew/backend-offers/internal/cache"
	"github.com/stagecrew/backend-offers/internal/common"
	"github.com/stagecrew/backend-offers/internal/pricing"
)

const (
	cacheKeyItems   = "catalog:items"
	cacheKeyPresets = "catalog:presets"
)

// Storage defines the persistence operations the catalog service needs.
type Storage interface {
	ListItems(ctx context.Context, category string) ([]Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (Item, error)
	CreateItem(ctx context.Context, item Item) (Item, error)
	ListPresets(ctx context.Context) ([]Preset, error)
	GetPreset(ctx context.Context, id uuid.UUID) (Preset, error)
}

// Service orchestrates catalog queries and caching.
type Service struct {
	Store  Storage
	Cache  *cache.JSONCache
	Logger zerolog.Logger
}

// ListItems returns catalog items, serving the unfiltered listing from cache when possible.
func (s *Service) ListItems(ctx context.Context, category string) ([]Item, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	category = strings.TrimSpace(category)
	cacheable := category == ""
	if cacheable {
		var cached []Item
		if ok, err := s.Cache.GetJSON(ctx, cacheKeyItems, &cached); err != nil {
			s.Logger.Warn().Err(err).Msg("catalog cache read failed")
		} else if ok {
			return cached, nil
		}
	}
	items, err := s.Store.ListItems(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	if cacheable {
		if err := s.Cache.SetJSON(ctx, cacheKeyItems, items); err != nil {
			s.Logger.Warn().Err(err).Msg("catalog cache write failed")
		}
	}
	return items, nil
}

// GetItem loads a single catalog item.
func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (Item, error) {
	if s == nil || s.Store == nil {
		return Item{}, errors.New("catalog service not configured")
	}
	item, err := s.Store.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return Item{}, common.NewAppError("NOT_FOUND", "catalog item not found", http.StatusNotFound, err)
		}
		return Item{}, fmt.Errorf("get catalog item: %w", err)
	}
	return item, nil
}

// CreateItem validates and inserts a catalog item, invalidating the listing cache.
func (s *Service) CreateItem(ctx context.Context, item Item) (Item, error) {
	if s == nil || s.Store == nil {
		return Item{}, errors.New("catalog service not configured")
	}
	item.Category = strings.TrimSpace(item.Category)
	item.Name = strings.TrimSpace(item.Name)
	if item.Category == "" || item.Name == "" {
		return Item{}, common.NewAppError("VALIDATION_ERROR", "category and name are required", http.StatusBadRequest, nil)
	}
	if math.IsNaN(item.UnitPrice) || item.UnitPrice < 0 {
		return Item{}, common.NewAppError("VALIDATION_ERROR", "unit price must be non-negative", http.StatusBadRequest, nil)
	}
	if item.StockQuantity < 0 {
		return Item{}, common.NewAppError("VALIDATION_ERROR", "stock quantity must be non-negative", http.StatusBadRequest, nil)
	}
	created, err := s.Store.CreateItem(ctx, item)
	if err != nil {
		return Item{}, fmt.Errorf("create catalog item: %w", err)
	}
	if err := s.Cache.Invalidate(ctx, cacheKeyItems); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
	return created, nil
}

// ListPresets returns the preset headers, cached.
func (s *Service) ListPresets(ctx context.Context) ([]Preset, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	var cached []Preset
	if ok, err := s.Cache.GetJSON(ctx, cacheKeyPresets, &cached); err != nil {
		s.Logger.Warn().Err(err).Msg("preset cache read failed")
	} else if ok {
		return cached, nil
	}
	presets, err := s.Store.ListPresets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	if err := s.Cache.SetJSON(ctx, cacheKeyPresets, presets); err != nil {
		s.Logger.Warn().Err(err).Msg("preset cache write failed")
	}
	return presets, nil
}

// GetPreset loads a preset with its lines sorted by category order then sort order.
func (s *Service) GetPreset(ctx context.Context, id uuid.UUID) (Preset, error) {
	if s == nil || s.Store == nil {
		return Preset{}, errors.New("catalog service not configured")
	}
	preset, err := s.Store.GetPreset(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return Preset{}, common.NewAppError("NOT_FOUND", "preset not found", http.StatusNotFound, err)
		}
		return Preset{}, fmt.Errorf("get preset: %w", err)
	}
	sortPresetItems(preset.Items)
	return preset, nil
}

func sortPresetItems(items []PresetItem) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && presetItemLess(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func presetItemLess(a, b PresetItem) bool {
	ra, rb := pricing.CategoryRank(a.Category), pricing.CategoryRank(b.Category)
	if ra != rb {
		return ra < rb
	}
	return a.SortOrder < b.SortOrder
}
