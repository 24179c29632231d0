package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubPersister struct {
	mu sync.Mutex

	items map[string]Item
	seq   int

	createCalls int
	updateCalls int
	deleteCalls int
	patches     []OfferPatch
	recalcCalls int

	failUpdates map[string]error
	failCreates bool

	gate chan struct{}
}

func newStubPersister() *stubPersister {
	return &stubPersister{items: map[string]Item{}, failUpdates: map[string]error{}}
}

func (p *stubPersister) waitGate() {
	p.mu.Lock()
	gate := p.gate
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (p *stubPersister) CreateItem(_ context.Context, _ string, item Item) (Item, error) {
	p.waitGate()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	if p.failCreates {
		return Item{}, errors.New("boom")
	}
	p.seq++
	item.ID = fmt.Sprintf("srv-%d", p.seq)
	p.items[item.ID] = item
	return item, nil
}

func (p *stubPersister) UpdateItem(_ context.Context, itemID string, update ItemUpdate) error {
	p.waitGate()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateCalls++
	if err := p.failUpdates[itemID]; err != nil {
		return err
	}
	it, ok := p.items[itemID]
	if !ok {
		return errors.New("not found")
	}
	it.UnitPrice = update.UnitPrice
	it.Quantity = update.Quantity
	it.Duration = update.Duration
	p.items[itemID] = it
	return nil
}

func (p *stubPersister) DeleteItem(_ context.Context, itemID string) error {
	p.waitGate()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleteCalls++
	delete(p.items, itemID)
	return nil
}

func (p *stubPersister) UpdateOffer(_ context.Context, _ string, patch OfferPatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.patches = append(p.patches, patch)
	return nil
}

func (p *stubPersister) Recalculate(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recalcCalls++
	return nil
}

func (p *stubPersister) callCounts() (creates, updates, deletes, recalcs int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.createCalls, p.updateCalls, p.deleteCalls, p.recalcCalls
}

func (p *stubPersister) seed(items ...Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, it := range items {
		p.items[it.ID] = it
	}
}

func newTestSession(t *testing.T, p *stubPersister, items ...Item) *Session {
	t.Helper()
	p.seed(items...)
	s, err := New(Config{
		OfferID:       "offer-1",
		Persister:     p,
		Items:         items,
		AutoSaveDelay: time.Hour,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSaveUnmodifiedSendsNothing(t *testing.T) {
	p := newStubPersister()
	s := newTestSession(t, p,
		persistedItem("a", 500, 2, 1),
		persistedItem("b", 750, 1, 2),
	)

	require.NoError(t, s.RequestSave(context.Background()))
	creates, updates, deletes, recalcs := p.callCounts()
	require.Zero(t, creates+updates+deletes+recalcs)
	require.False(t, s.Dirty())
}

func TestSecondSaveAfterSuccessSendsNothing(t *testing.T) {
	p := newStubPersister()
	s := newTestSession(t, p, persistedItem("a", 500, 2, 1))

	require.NoError(t, s.EditField("a", FieldQuantity, 5))
	require.NoError(t, s.RequestSave(context.Background()))
	_, updates, _, _ := p.callCounts()
	require.Equal(t, 1, updates)

	// The diff runs against the last successful save, not the initial load.
	require.NoError(t, s.RequestSave(context.Background()))
	_, updates, _, _ = p.callCounts()
	require.Equal(t, 1, updates)
	require.False(t, s.Dirty())
}

func TestZeroQuantityDeletesPersistedItem(t *testing.T) {
	p := newStubPersister()
	s := newTestSession(t, p, persistedItem("a", 500, 2, 1))

	require.NoError(t, s.EditField("a", FieldQuantity, 0))
	require.NoError(t, s.RequestSave(context.Background()))

	p.mu.Lock()
	_, exists := p.items["a"]
	p.mu.Unlock()
	require.False(t, exists)
	require.False(t, s.Dirty())
}

func TestZeroQuantityDeleteConverges(t *testing.T) {
	p := newStubPersister()
	s := newTestSession(t, p, persistedItem("a", 500, 2, 1))

	require.NoError(t, s.EditField("a", FieldQuantity, 0))
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RequestSave(context.Background()))
	}

	// Exactly one delete hits the store; repeated saves send nothing.
	_, _, deletes, _ := p.callCounts()
	require.Equal(t, 1, deletes)
	require.False(t, s.Dirty())

	// The zeroed row stays visible as a template without persisted identity.
	items := s.Items()
	require.Len(t, items, 1)
	require.Equal(t, 0.0, items[0].Quantity)
	require.False(t, items[0].Persisted())

	// Typing a quantity back in recreates the row instead of updating it.
	require.NoError(t, s.EditField(items[0].ID, FieldQuantity, 2))
	require.NoError(t, s.RequestSave(context.Background()))
	creates, _, _, _ := p.callCounts()
	require.Equal(t, 1, creates)
	require.False(t, s.Dirty())
	for _, it := range s.Items() {
		require.True(t, it.Persisted())
	}
}

func TestEditCategoryDuration(t *testing.T) {
	p := newStubPersister()
	sound := func(id string) Item {
		return Item{ID: id, Category: "Zvuková technika", Name: id, UnitPrice: 100, Quantity: 1, Duration: 1}
	}
	light := Item{ID: "l1", Category: "Světelná technika", Name: "PAR", UnitPrice: 80, Quantity: 2, Duration: 1}
	s := newTestSession(t, p, sound("s1"), sound("s2"), sound("s3"), sound("s4"), light)

	require.NoError(t, s.EditCategoryDuration("Zvuková technika", 3))
	require.True(t, s.Dirty())

	changed := 0
	for _, it := range s.Items() {
		switch it.Category {
		case "Zvuková technika":
			require.Equal(t, 3.0, it.Duration)
			changed++
		default:
			require.Equal(t, 1.0, it.Duration)
		}
	}
	require.Equal(t, 4, changed)

	require.NoError(t, s.RequestSave(context.Background()))
	_, updates, _, _ := p.callCounts()
	require.Equal(t, 4, updates)
}

func TestAddCustomItemDefaultsAndSort(t *testing.T) {
	p := newStubPersister()
	s := newTestSession(t, p,
		Item{ID: "t1", Category: "Doprava", Name: "Dodávka", UnitPrice: 20, Quantity: 100, Duration: 1, SortOrder: 0},
	)

	added, err := s.AddCustomItem("Zvuková technika", "Mlhovač", 250)
	require.NoError(t, err)
	require.Equal(t, 1.0, added.Quantity)
	require.Equal(t, 1.0, added.Duration)
	require.False(t, added.Persisted())

	items := s.Items()
	require.Equal(t, "Mlhovač", items[0].Name)
	require.Equal(t, "Dodávka", items[1].Name)

	require.NoError(t, s.RequestSave(context.Background()))
	creates, _, _, _ := p.callCounts()
	require.Equal(t, 1, creates)
	for _, it := range s.Items() {
		require.True(t, it.Persisted())
	}
}

func TestSaveFailureKeepsDirtyAndEdits(t *testing.T) {
	p := newStubPersister()
	p.failUpdates["a"] = errors.New("network down")
	s := newTestSession(t, p, persistedItem("a", 500, 2, 1))

	var surfaced error
	s.OnSaveError = func(err error) { surfaced = err }

	require.NoError(t, s.EditField("a", FieldUnitPrice, 900))
	err := s.RequestSave(context.Background())
	require.Error(t, err)
	require.Error(t, surfaced)
	require.True(t, s.Dirty())
	require.Equal(t, 900.0, s.Items()[0].UnitPrice)

	// Retry succeeds once the network recovers.
	p.mu.Lock()
	delete(p.failUpdates, "a")
	p.mu.Unlock()
	require.NoError(t, s.RequestSave(context.Background()))
	require.False(t, s.Dirty())
}

func TestPartialFailureResendsOnlyFailedItem(t *testing.T) {
	p := newStubPersister()
	p.failUpdates["b"] = errors.New("timeout")
	s := newTestSession(t, p,
		persistedItem("a", 500, 2, 1),
		persistedItem("b", 750, 1, 2),
	)

	require.NoError(t, s.EditField("a", FieldQuantity, 3))
	require.NoError(t, s.EditField("b", FieldQuantity, 4))
	require.Error(t, s.RequestSave(context.Background()))
	require.True(t, s.Dirty())

	p.mu.Lock()
	delete(p.failUpdates, "b")
	p.updateCalls = 0
	p.mu.Unlock()

	require.NoError(t, s.RequestSave(context.Background()))
	_, updates, _, _ := p.callCounts()
	require.Equal(t, 1, updates)
	require.False(t, s.Dirty())
}

func TestEditsDuringSaveCaptureNextCycle(t *testing.T) {
	p := newStubPersister()
	s := newTestSession(t, p, persistedItem("a", 500, 2, 1))

	gate := make(chan struct{})
	p.mu.Lock()
	p.gate = gate
	p.mu.Unlock()

	require.NoError(t, s.EditField("a", FieldQuantity, 3))

	saveDone := make(chan error, 1)
	go func() { saveDone <- s.RequestSave(context.Background()) }()

	require.Eventually(t, s.Saving, time.Second, time.Millisecond)
	require.NoError(t, s.EditField("a", FieldQuantity, 7))
	close(gate)
	require.NoError(t, <-saveDone)

	// The mid-save edit survives and is still unsaved.
	require.True(t, s.Dirty())
	require.Equal(t, 7.0, s.Items()[0].Quantity)

	p.mu.Lock()
	p.gate = nil
	p.mu.Unlock()
	require.NoError(t, s.RequestSave(context.Background()))
	p.mu.Lock()
	saved := p.items["a"].Quantity
	p.mu.Unlock()
	require.Equal(t, 7.0, saved)
}

func TestAutoSaveCoalesces(t *testing.T) {
	p := newStubPersister()
	s, err := New(Config{
		OfferID:       "offer-1",
		Persister:     p,
		Items:         []Item{persistedItem("a", 500, 2, 1)},
		AutoSaveDelay: 30 * time.Millisecond,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	p.seed(persistedItem("a", 500, 2, 1))

	// Rapid edits re-arm the timer; only one save fires.
	require.NoError(t, s.EditField("a", FieldQuantity, 3))
	require.NoError(t, s.EditField("a", FieldQuantity, 4))
	require.NoError(t, s.EditField("a", FieldQuantity, 5))

	require.Eventually(t, func() bool { return !s.Dirty() }, time.Second, 5*time.Millisecond)
	_, updates, _, _ := p.callCounts()
	require.Equal(t, 1, updates)
	p.mu.Lock()
	saved := p.items["a"].Quantity
	p.mu.Unlock()
	require.Equal(t, 5.0, saved)
}

func TestOfferPatchFollowsItemWrites(t *testing.T) {
	p := newStubPersister()
	s := newTestSession(t, p, persistedItem("a", 500, 2, 1))

	require.NoError(t, s.EditField("a", FieldQuantity, 3))
	require.NoError(t, s.SetDiscountPercent(15))
	require.NoError(t, s.RequestSave(context.Background()))

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(t, p.patches, 1)
	require.NotNil(t, p.patches[0].DiscountPercent)
	require.Equal(t, 15.0, *p.patches[0].DiscountPercent)
	require.Equal(t, 1, p.recalcCalls)
}

func TestSetGroupBypassesBatching(t *testing.T) {
	p := newStubPersister()
	s := newTestSession(t, p, persistedItem("a", 500, 2, 1))

	require.NoError(t, s.SetGroup(context.Background(), "group-42"))
	require.False(t, s.Dirty())

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(t, p.patches, 1)
	require.NotNil(t, p.patches[0].GroupID)
	require.Equal(t, "group-42", *p.patches[0].GroupID)
}

func TestEditFieldValidation(t *testing.T) {
	p := newStubPersister()
	s := newTestSession(t, p, persistedItem("a", 500, 2, 1))

	require.Error(t, s.EditField("a", FieldDuration, 0.25))
	require.Error(t, s.EditField("a", FieldQuantity, -1))
	require.Error(t, s.EditField("a", FieldUnitPrice, -5))
	require.Error(t, s.EditField("a", Field("name"), 1))
	require.Error(t, s.EditField("missing", FieldQuantity, 1))
	require.False(t, s.Dirty())
}

func TestLiveTotalsWorkedExample(t *testing.T) {
	p := newStubPersister()
	s := newTestSession(t, p,
		Item{ID: "g", Category: "Ground support", Name: "Věž", UnitPrice: 1000, Quantity: 2, Duration: 2},
		Item{ID: "p", Category: "Technický personál", Name: "Zvukař", UnitPrice: 500, Quantity: 1, Duration: 3},
		Item{ID: "d", Category: "Doprava", Name: "Dodávka", UnitPrice: 20, Quantity: 100, Duration: 1},
	)
	require.NoError(t, s.SetDiscountPercent(10))
	s.SetVatPayer(true)

	summary, vat := s.LiveTotals()
	require.Equal(t, 4000.0, summary.SubtotalEquipment)
	require.Equal(t, 1500.0, summary.SubtotalPersonnel)
	require.Equal(t, 2000.0, summary.SubtotalTransport)
	require.Equal(t, 400.0, summary.DiscountAmount)
	require.Equal(t, 7100.0, summary.TotalAmount)
	require.Equal(t, 1491.0, vat.VatAmount)
	require.Equal(t, 8591.0, vat.TotalWithVat)
}

func TestTemplatesStayLocalUntilQuantityTyped(t *testing.T) {
	p := newStubPersister()
	s := newTestSession(t, p)
	s.AddTemplates([]Item{
		{Category: "Zvuková technika", Name: "Mixpult", UnitPrice: 1200, Duration: 1},
		{Category: "Zvuková technika", Name: "Reprobox", UnitPrice: 500, Duration: 1},
	})

	// Template rows are visible but never saved while quantity is zero.
	items := s.Items()
	require.Len(t, items, 2)
	require.NoError(t, s.EditField(items[0].ID, FieldQuantity, 2))
	require.NoError(t, s.RequestSave(context.Background()))

	creates, _, _, _ := p.callCounts()
	require.Equal(t, 1, creates)
	p.mu.Lock()
	require.Len(t, p.items, 1)
	p.mu.Unlock()
}
