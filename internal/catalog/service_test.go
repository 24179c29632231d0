package catalog

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/stagecrew/backend-offers/internal/cache"
	"github.com/stagecrew/backend-offers/internal/common"
)

type fakeStore struct {
	items     []Item
	presets   map[uuid.UUID]Preset
	listCalls int
	created   []Item
}

func (f *fakeStore) ListItems(_ context.Context, category string) ([]Item, error) {
	f.listCalls++
	if category == "" {
		return f.items, nil
	}
	var out []Item
	for _, item := range f.items {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeStore) GetItem(_ context.Context, id uuid.UUID) (Item, error) {
	for _, item := range f.items {
		if item.ID == id {
			return item, nil
		}
	}
	return Item{}, common.ErrNotFound
}

func (f *fakeStore) CreateItem(_ context.Context, item Item) (Item, error) {
	item.ID = uuid.New()
	f.created = append(f.created, item)
	f.items = append(f.items, item)
	return item, nil
}

func (f *fakeStore) ListPresets(context.Context) ([]Preset, error) {
	var out []Preset
	for _, p := range f.presets {
		out = append(out, Preset{ID: p.ID, Name: p.Name, Description: p.Description})
	}
	return out, nil
}

func (f *fakeStore) GetPreset(_ context.Context, id uuid.UUID) (Preset, error) {
	if p, ok := f.presets[id]; ok {
		return p, nil
	}
	return Preset{}, common.ErrNotFound
}

func newTestService(t *testing.T, store *fakeStore) *Service {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Service{
		Store:  store,
		Cache:  cache.NewJSONCache(client, time.Minute),
		Logger: zerolog.Nop(),
	}
}

func TestListItemsUsesCache(t *testing.T) {
	store := &fakeStore{items: []Item{
		{ID: uuid.New(), Category: "Zvuková technika", Name: "Mixpult", UnitPrice: 1200},
	}}
	svc := newTestService(t, store)
	ctx := context.Background()

	first, err := svc.ListItems(ctx, "")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.ListItems(ctx, "")
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, 1, store.listCalls)
}

func TestListItemsCategoryFilterBypassesCache(t *testing.T) {
	store := &fakeStore{items: []Item{
		{ID: uuid.New(), Category: "Zvuková technika", Name: "Mixpult", UnitPrice: 1200},
		{ID: uuid.New(), Category: "Doprava", Name: "Dodávka", UnitPrice: 12},
	}}
	svc := newTestService(t, store)

	filtered, err := svc.ListItems(context.Background(), "Doprava")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, "Dodávka", filtered[0].Name)
}

func TestCreateItemInvalidatesCache(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.ListItems(ctx, "")
	require.NoError(t, err)

	_, err = svc.CreateItem(ctx, Item{Category: "Rigging", Name: "Traverza 2m", UnitPrice: 150})
	require.NoError(t, err)

	items, err := svc.ListItems(ctx, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestCreateItemValidation(t *testing.T) {
	svc := newTestService(t, &fakeStore{})
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, Item{Category: "", Name: "X"})
	require.Error(t, err)

	_, err = svc.CreateItem(ctx, Item{Category: "Rigging", Name: "X", UnitPrice: -5})
	require.Error(t, err)

	_, err = svc.CreateItem(ctx, Item{Category: "Rigging", Name: "X", StockQuantity: -1})
	require.Error(t, err)
}

func TestGetPresetSortsItems(t *testing.T) {
	presetID := uuid.New()
	store := &fakeStore{presets: map[uuid.UUID]Preset{
		presetID: {
			ID:   presetID,
			Name: "Klubový koncert",
			Items: []PresetItem{
				{Name: "Dodávka", Category: "Doprava", SortOrder: 0},
				{Name: "Zvukař", Category: "Technický personál", SortOrder: 0},
				{Name: "Reprobox", Category: "Zvuková technika", SortOrder: 1},
				{Name: "Mixpult", Category: "Zvuková technika", SortOrder: 0},
			},
		},
	}}
	svc := newTestService(t, store)

	preset, err := svc.GetPreset(context.Background(), presetID)
	require.NoError(t, err)
	names := make([]string, 0, len(preset.Items))
	for _, item := range preset.Items {
		names = append(names, item.Name)
	}
	require.Equal(t, []string{"Mixpult", "Reprobox", "Zvukař", "Dodávka"}, names)
}

func TestGetPresetNotFound(t *testing.T) {
	svc := newTestService(t, &fakeStore{presets: map[uuid.UUID]Preset{}})

	_, err := svc.GetPreset(context.Background(), uuid.New())
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}
