package offer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/stagecrew/backend-offers/internal/catalog"
	"github.com/stagecrew/backend-offers/internal/common"
	"github.com/stagecrew/backend-offers/internal/events"
	"github.com/stagecrew/backend-offers/internal/pricing"
)

type memStorage struct {
	offers map[uuid.UUID]Offer
	items  map[uuid.UUID]Item
}

func newMemStorage() *memStorage {
	return &memStorage{offers: map[uuid.UUID]Offer{}, items: map[uuid.UUID]Item{}}
}

func (m *memStorage) CreateOffer(_ context.Context, o Offer, items []Item) (Offer, error) {
	o.ID = uuid.New()
	now := time.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	m.offers[o.ID] = o
	for _, item := range items {
		item.ID = uuid.New()
		item.OfferID = o.ID
		m.items[item.ID] = item
	}
	return o, nil
}

func (m *memStorage) GetOffer(_ context.Context, id uuid.UUID) (Offer, error) {
	if o, ok := m.offers[id]; ok {
		return o, nil
	}
	return Offer{}, common.ErrNotFound
}

func (m *memStorage) ListOffers(_ context.Context, status string, page, perPage int) ([]Offer, int64, error) {
	var out []Offer
	for _, o := range m.offers {
		if status == "" || string(o.Status) == status {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memStorage) UpdateOffer(_ context.Context, id uuid.UUID, patch Patch) (Offer, error) {
	o, ok := m.offers[id]
	if !ok {
		return Offer{}, common.ErrNotFound
	}
	if patch.Title != nil {
		o.Title = *patch.Title
	}
	if patch.CustomerName != nil {
		o.CustomerName = *patch.CustomerName
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.EventDate != nil {
		o.EventDate = patch.EventDate
	}
	if patch.DiscountPercent != nil {
		o.DiscountPercent = *patch.DiscountPercent
	}
	if patch.IsVatPayer != nil {
		o.IsVatPayer = *patch.IsVatPayer
	}
	if patch.GroupID != nil {
		o.GroupID = patch.GroupID
	}
	m.offers[id] = o
	return o, nil
}

func (m *memStorage) SaveTotals(_ context.Context, id uuid.UUID, sum pricing.Summary, vat pricing.VatSummary) error {
	o, ok := m.offers[id]
	if !ok {
		return common.ErrNotFound
	}
	o.SubtotalEquipment = sum.SubtotalEquipment
	o.SubtotalPersonnel = sum.SubtotalPersonnel
	o.SubtotalTransport = sum.SubtotalTransport
	o.DiscountAmount = sum.DiscountAmount
	o.TotalAmount = sum.TotalAmount
	o.VatAmount = vat.VatAmount
	o.TotalWithVat = vat.TotalWithVat
	m.offers[id] = o
	return nil
}

func (m *memStorage) DeleteOffer(_ context.Context, id uuid.UUID) error {
	if _, ok := m.offers[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.offers, id)
	for itemID, item := range m.items {
		if item.OfferID == id {
			delete(m.items, itemID)
		}
	}
	return nil
}

func (m *memStorage) ListItems(_ context.Context, offerID uuid.UUID) ([]Item, error) {
	var out []Item
	for _, item := range m.items {
		if item.OfferID == offerID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memStorage) GetItem(_ context.Context, itemID uuid.UUID) (Item, error) {
	if item, ok := m.items[itemID]; ok {
		return item, nil
	}
	return Item{}, common.ErrNotFound
}

func (m *memStorage) CreateItem(_ context.Context, item Item) (Item, error) {
	item.ID = uuid.New()
	m.items[item.ID] = item
	return item, nil
}

func (m *memStorage) UpdateItem(_ context.Context, itemID uuid.UUID, patch ItemPatch) (Item, error) {
	item, ok := m.items[itemID]
	if !ok {
		return Item{}, common.ErrNotFound
	}
	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.UnitPrice != nil {
		item.UnitPrice = *patch.UnitPrice
	}
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
	if patch.Duration != nil {
		item.Duration = *patch.Duration
	}
	if patch.SortOrder != nil {
		item.SortOrder = *patch.SortOrder
	}
	m.items[itemID] = item
	return item, nil
}

func (m *memStorage) DeleteItem(_ context.Context, itemID uuid.UUID) error {
	if _, ok := m.items[itemID]; !ok {
		return common.ErrNotFound
	}
	delete(m.items, itemID)
	return nil
}

type stubPresets struct {
	preset catalog.Preset
	err    error
}

func (s stubPresets) GetPreset(context.Context, uuid.UUID) (catalog.Preset, error) {
	return s.preset, s.err
}

type recordingEmitter struct {
	topics []string
}

func (r *recordingEmitter) Emit(_ context.Context, topic string, aggregateID uuid.UUID, _ any) (events.DomainEvent, error) {
	r.topics = append(r.topics, topic)
	return events.DomainEvent{ID: uuid.New(), Topic: topic, AggregateID: aggregateID}, nil
}

func newService(store *memStorage) (*Service, *recordingEmitter) {
	emitter := &recordingEmitter{}
	return &Service{
		Store:  store,
		Events: emitter,
		Logger: zerolog.Nop(),
	}, emitter
}

func TestCreateComputesTotals(t *testing.T) {
	store := newMemStorage()
	svc, emitter := newService(store)
	svc.Presets = stubPresets{preset: catalog.Preset{
		Items: []catalog.PresetItem{
			{Category: "Zvuková technika", Name: "Mixpult", UnitPrice: 1000, Quantity: 2, Duration: 2},
			{Category: "Technický personál", Name: "Zvukař", UnitPrice: 750, Quantity: 1, Duration: 2},
			{Category: "Doprava", Name: "Dodávka", UnitPrice: 20, Quantity: 100, Duration: 1},
		},
	}}

	presetID := uuid.New()
	detail, err := svc.Create(context.Background(), CreateInput{
		Title:           "Festival Vysočina",
		DiscountPercent: 10,
		OwnerID:         uuid.New(),
		PresetID:        &presetID,
	})
	require.NoError(t, err)
	require.Len(t, detail.Items, 3)
	require.Equal(t, StatusDraft, detail.Offer.Status)
	require.Equal(t, 4000.0, detail.Offer.SubtotalEquipment)
	require.Equal(t, 1500.0, detail.Offer.SubtotalPersonnel)
	require.Equal(t, 2000.0, detail.Offer.SubtotalTransport)
	require.Equal(t, 400.0, detail.Offer.DiscountAmount)
	require.Equal(t, 7100.0, detail.Offer.TotalAmount)
	require.Contains(t, emitter.topics, events.TopicOfferCreated)
	require.Contains(t, emitter.topics, events.TopicOfferRecalculated)
}

func TestCreateRequiresTitleAndOwner(t *testing.T) {
	svc, _ := newService(newMemStorage())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Title: " ", OwnerID: uuid.New()})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateInput{Title: "X"})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateInput{Title: "X", OwnerID: uuid.New(), DiscountPercent: 120})
	require.Error(t, err)
}

func TestUpdateDiscountTriggersRecalc(t *testing.T) {
	store := newMemStorage()
	svc, _ := newService(store)

	detail, err := svc.Create(context.Background(), CreateInput{Title: "Koncert", OwnerID: uuid.New()})
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), detail.Offer.ID, Item{
		Category: "Zvuková technika", Name: "Reprobox", UnitPrice: 500, Quantity: 4, Duration: 1,
	})
	require.NoError(t, err)

	pct := 50.0
	updated, err := svc.Update(context.Background(), detail.Offer.ID, Patch{DiscountPercent: &pct})
	require.NoError(t, err)
	require.Equal(t, 1000.0, updated.DiscountAmount)
	require.Equal(t, 1000.0, updated.TotalAmount)
}

func TestUpdateStatusEmitsEvent(t *testing.T) {
	store := newMemStorage()
	svc, emitter := newService(store)

	detail, err := svc.Create(context.Background(), CreateInput{Title: "Koncert", OwnerID: uuid.New()})
	require.NoError(t, err)

	status := StatusSent
	_, err = svc.Update(context.Background(), detail.Offer.ID, Patch{Status: &status})
	require.NoError(t, err)
	require.Contains(t, emitter.topics, events.TopicOfferStatusChanged)

	bogus := Status("archived")
	_, err = svc.Update(context.Background(), detail.Offer.ID, Patch{Status: &bogus})
	require.Error(t, err)
}

func TestUpdateItemZeroQuantityDeletesRow(t *testing.T) {
	store := newMemStorage()
	svc, _ := newService(store)

	detail, err := svc.Create(context.Background(), CreateInput{Title: "Koncert", OwnerID: uuid.New()})
	require.NoError(t, err)

	item, err := svc.AddItem(context.Background(), detail.Offer.ID, Item{
		Category: "Zvuková technika", Name: "Reprobox", UnitPrice: 500, Quantity: 4, Duration: 1,
	})
	require.NoError(t, err)

	zero := 0.0
	result, err := svc.UpdateItem(context.Background(), item.ID, ItemPatch{Quantity: &zero})
	require.NoError(t, err)
	require.Equal(t, 0.0, result.Quantity)

	_, err = store.GetItem(context.Background(), item.ID)
	require.ErrorIs(t, err, common.ErrNotFound)

	after, err := svc.Get(context.Background(), detail.Offer.ID)
	require.NoError(t, err)
	require.Equal(t, 0.0, after.Offer.TotalAmount)
}

func TestAddItemValidation(t *testing.T) {
	store := newMemStorage()
	svc, _ := newService(store)
	detail, err := svc.Create(context.Background(), CreateInput{Title: "Koncert", OwnerID: uuid.New()})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.AddItem(ctx, detail.Offer.ID, Item{Category: "", Name: "X", Quantity: 1, Duration: 1})
	require.Error(t, err)

	_, err = svc.AddItem(ctx, detail.Offer.ID, Item{Category: "Rigging", Name: "X", Quantity: 0, Duration: 1})
	require.Error(t, err)

	_, err = svc.AddItem(ctx, detail.Offer.ID, Item{Category: "Rigging", Name: "X", Quantity: 1, Duration: 0.25})
	require.Error(t, err)

	_, err = svc.AddItem(ctx, uuid.New(), Item{Category: "Rigging", Name: "X", Quantity: 1, Duration: 1})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestDeleteEmitsEvent(t *testing.T) {
	store := newMemStorage()
	svc, emitter := newService(store)

	detail, err := svc.Create(context.Background(), CreateInput{Title: "Koncert", OwnerID: uuid.New()})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), detail.Offer.ID))
	require.Contains(t, emitter.topics, events.TopicOfferDeleted)

	err = svc.Delete(context.Background(), detail.Offer.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestRecalculateVatPayer(t *testing.T) {
	store := newMemStorage()
	svc, _ := newService(store)

	detail, err := svc.Create(context.Background(), CreateInput{
		Title: "Koncert", OwnerID: uuid.New(), IsVatPayer: true,
	})
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), detail.Offer.ID, Item{
		Category: "Technický personál", Name: "Zvukař", UnitPrice: 7100, Quantity: 1, Duration: 1,
	})
	require.NoError(t, err)

	after, err := svc.Get(context.Background(), detail.Offer.ID)
	require.NoError(t, err)
	require.Equal(t, 1491.0, after.Offer.VatAmount)
	require.Equal(t, 8591.0, after.Offer.TotalWithVat)
}
