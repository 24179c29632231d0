package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stagecrew/backend-offers/internal/pricing"
)

const defaultAutoSaveDelay = 2 * time.Second

// OfferPatch carries pending offer header changes accumulated between saves.
// Nil fields are not sent.
type OfferPatch struct {
	Title           *string  `json:"title,omitempty"`
	Status          *string  `json:"status,omitempty"`
	DiscountPercent *float64 `json:"discountPercent,omitempty"`
	IsVatPayer      *bool    `json:"isVatPayer,omitempty"`
	GroupID         *string  `json:"groupId,omitempty"`
}

func (p OfferPatch) empty() bool {
	return p.Title == nil && p.Status == nil && p.DiscountPercent == nil &&
		p.IsVatPayer == nil && p.GroupID == nil
}

// Persister is the remote side of the editing session. Implementations talk
// to the offers API; tests substitute stubs.
type Persister interface {
	CreateItem(ctx context.Context, offerID string, item Item) (Item, error)
	UpdateItem(ctx context.Context, itemID string, update ItemUpdate) error
	DeleteItem(ctx context.Context, itemID string) error
	UpdateOffer(ctx context.Context, offerID string, patch OfferPatch) error
	Recalculate(ctx context.Context, offerID string) error
}

// Session holds the editable working copy of one offer. It batches edits and
// reconciles them against the store as a minimal set of writes, so a rich
// inline editor stays responsive without a network call per keystroke.
//
// One session owns one open editor. Two sessions editing the same offer are
// not reconciled; last save wins at the persistence layer.
type Session struct {
	mu sync.Mutex

	offerID   string
	persister Persister
	logger    zerolog.Logger

	working  []Item
	original map[string]Item

	dirty  bool
	saving bool

	pendingPatch OfferPatch
	patchGen     int

	discountPercent float64
	isVatPayer      bool

	autoSaveDelay time.Duration
	timer         *time.Timer

	// OnSaveError is invoked outside the session lock after a failed save so
	// the editor can surface a notice. Optional.
	OnSaveError func(error)
}

// Config groups the session constructor arguments.
type Config struct {
	OfferID         string
	Persister       Persister
	Items           []Item
	DiscountPercent float64
	IsVatPayer      bool
	AutoSaveDelay   time.Duration
	Logger          zerolog.Logger
}

// New opens an editing session over the given persisted items. The items are
// snapshotted as the original state; the session starts clean.
func New(cfg Config) (*Session, error) {
	if cfg.OfferID == "" {
		return nil, errors.New("session: offer id is required")
	}
	if cfg.Persister == nil {
		return nil, errors.New("session: persister is required")
	}
	delay := cfg.AutoSaveDelay
	if delay <= 0 {
		delay = defaultAutoSaveDelay
	}
	s := &Session{
		offerID:         cfg.OfferID,
		persister:       cfg.Persister,
		logger:          cfg.Logger,
		working:         make([]Item, len(cfg.Items)),
		original:        make(map[string]Item, len(cfg.Items)),
		discountPercent: cfg.DiscountPercent,
		isVatPayer:      cfg.IsVatPayer,
		autoSaveDelay:   delay,
	}
	copy(s.working, cfg.Items)
	for _, it := range s.working {
		if it.Persisted() {
			s.original[it.ID] = it
		}
	}
	s.sortWorkingLocked()
	return s, nil
}

// AddTemplates appends zero-quantity template rows (typically one per catalog
// entry) that stay local until a quantity is typed in.
func (s *Session) AddTemplates(templates []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range templates {
		t.ID = newLocalID()
		t.Quantity = 0
		if t.Duration < 0.5 {
			t.Duration = 1
		}
		s.working = append(s.working, t)
	}
	s.sortWorkingLocked()
}

// Items returns a copy of the current working list.
func (s *Session) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.working))
	copy(out, s.working)
	return out
}

// Dirty reports whether unsaved changes exist.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Saving reports whether a save is in flight.
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// EditField updates one numeric field of the item with the given id, marks
// the session dirty, and re-arms the auto-save timer.
func (s *Session) EditField(itemID string, field Field, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.New("session: value must be finite")
	}
	switch field {
	case FieldDuration:
		if value < 0.5 {
			return errors.New("session: duration must be at least 0.5")
		}
	case FieldQuantity, FieldUnitPrice:
		if value < 0 {
			return fmt.Errorf("session: %s must be non-negative", field)
		}
	default:
		return fmt.Errorf("session: field %q is not editable", field)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOfLocked(itemID)
	if idx < 0 {
		return fmt.Errorf("session: item %q not found", itemID)
	}
	switch field {
	case FieldDuration:
		s.working[idx].Duration = value
	case FieldQuantity:
		s.working[idx].Quantity = value
	case FieldUnitPrice:
		s.working[idx].UnitPrice = value
	}
	s.markDirtyLocked()
	return nil
}

// EditCategoryDuration bulk-sets the duration for every item in the category.
// Items in other categories are untouched.
func (s *Session) EditCategoryDuration(category string, duration float64) error {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0.5 {
		return errors.New("session: duration must be at least 0.5")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	touched := false
	for i := range s.working {
		if s.working[i].Category == category {
			s.working[i].Duration = duration
			touched = true
		}
	}
	if touched {
		s.markDirtyLocked()
	}
	return nil
}

// AddCustomItem appends a new item with quantity 1 and duration 1, placed at
// the end of its category.
func (s *Session) AddCustomItem(category, name string, unitPrice float64) (Item, error) {
	if category == "" || name == "" {
		return Item{}, errors.New("session: category and name are required")
	}
	if math.IsNaN(unitPrice) || math.IsInf(unitPrice, 0) || unitPrice < 0 {
		return Item{}, errors.New("session: unit price must be non-negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	maxOrder := -1
	for _, it := range s.working {
		if it.Category == category && it.SortOrder > maxOrder {
			maxOrder = it.SortOrder
		}
	}
	item := Item{
		ID:        newLocalID(),
		Category:  category,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  1,
		Duration:  1,
		SortOrder: maxOrder + 1,
	}
	s.working = append(s.working, item)
	s.sortWorkingLocked()
	s.markDirtyLocked()
	return item, nil
}

// RemoveItem drops the item from the working list. Persisted items are
// deleted on the next save.
func (s *Session) RemoveItem(itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOfLocked(itemID)
	if idx < 0 {
		return fmt.Errorf("session: item %q not found", itemID)
	}
	s.working = append(s.working[:idx], s.working[idx+1:]...)
	s.markDirtyLocked()
	return nil
}

// SetDiscountPercent stages a discount change for the next save and updates
// the live total immediately.
func (s *Session) SetDiscountPercent(pct float64) error {
	if math.IsNaN(pct) || pct < 0 || pct > 100 {
		return errors.New("session: discount percent must be between 0 and 100")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discountPercent = pct
	v := pct
	s.pendingPatch.DiscountPercent = &v
	s.patchGen++
	s.markDirtyLocked()
	return nil
}

// SetVatPayer stages a VAT-flag change for the next save.
func (s *Session) SetVatPayer(isVatPayer bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isVatPayer = isVatPayer
	v := isVatPayer
	s.pendingPatch.IsVatPayer = &v
	s.patchGen++
	s.markDirtyLocked()
}

// SetTitle stages a title change for the next save.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := title
	s.pendingPatch.Title = &v
	s.patchGen++
	s.markDirtyLocked()
}

// SetStatus stages a status change for the next save.
func (s *Session) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := status
	s.pendingPatch.Status = &v
	s.patchGen++
	s.markDirtyLocked()
}

// SetGroup assigns the offer to a grouping immediately, bypassing the batched
// save path: group membership feeds cross-offer aggregation that other open
// sessions may be observing.
func (s *Session) SetGroup(ctx context.Context, groupID string) error {
	v := groupID
	return s.persister.UpdateOffer(ctx, s.offerID, OfferPatch{GroupID: &v})
}

// LiveTotals computes the unsaved totals for immediate display.
func (s *Session) LiveTotals() (pricing.Summary, pricing.VatSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]pricing.Item, 0, len(s.working))
	for _, it := range s.working {
		items = append(items, pricing.Item{
			Category:  it.Category,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Duration:  it.Duration,
		})
	}
	summary := pricing.Aggregate(items, s.discountPercent)
	return summary, pricing.WithVat(summary.TotalAmount, s.isVatPayer)
}

// ScheduleAutoSave arms the coalescing auto-save timer. Re-arming cancels any
// pending timer.
func (s *Session) ScheduleAutoSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armTimerLocked()
}

// RequestSave persists accumulated changes as one minimal batch. It is
// idempotent: a clean or already-saving session is a no-op. Item writes for
// distinct rows run concurrently; the offer header update and the
// recalculation follow them. On failure the session stays dirty and the
// in-memory edits are untouched.
func (s *Session) RequestSave(ctx context.Context) error {
	s.mu.Lock()
	if s.saving || !s.dirty {
		s.mu.Unlock()
		return nil
	}
	s.saving = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	snapshot := make([]Item, len(s.working))
	copy(snapshot, s.working)
	plan := buildPlan(snapshot, s.original)
	patch := s.pendingPatch
	patchGen := s.patchGen
	s.mu.Unlock()

	var (
		resultMu         sync.Mutex
		confirmedCreates = map[string]Item{}
		confirmedUpdates = map[string]ItemUpdate{}
		confirmedDeletes = map[string]bool{}
	)

	var g errgroup.Group
	for _, op := range plan.Creates {
		op := op
		g.Go(func() error {
			saved, err := s.persister.CreateItem(ctx, s.offerID, op.Item)
			if err != nil {
				return fmt.Errorf("create %q: %w", op.Item.Name, err)
			}
			resultMu.Lock()
			confirmedCreates[op.LocalID] = saved
			resultMu.Unlock()
			return nil
		})
	}
	for _, op := range plan.Updates {
		op := op
		g.Go(func() error {
			if err := s.persister.UpdateItem(ctx, op.ItemID, op.Update); err != nil {
				return fmt.Errorf("update %s: %w", op.ItemID, err)
			}
			resultMu.Lock()
			confirmedUpdates[op.ItemID] = op.Update
			resultMu.Unlock()
			return nil
		})
	}
	for _, id := range plan.Deletes {
		id := id
		g.Go(func() error {
			if err := s.persister.DeleteItem(ctx, id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			resultMu.Lock()
			confirmedDeletes[id] = true
			resultMu.Unlock()
			return nil
		})
	}
	itemErr := g.Wait()

	// The header update and recalculation follow the item writes: the
	// recomputed totals must read the rows written above.
	var offerErr error
	patchSent := false
	if itemErr == nil {
		if !patch.empty() {
			if offerErr = s.persister.UpdateOffer(ctx, s.offerID, patch); offerErr == nil {
				patchSent = true
			}
		}
		if offerErr == nil && (!plan.Empty() || patchSent) {
			offerErr = s.persister.Recalculate(ctx, s.offerID)
		}
	}

	s.mu.Lock()
	// Re-capture the original snapshot only from confirmed writes. Values come
	// from the save-time snapshot, so edits made mid-save stay dirty.
	snapByID := make(map[string]Item, len(snapshot))
	for _, it := range snapshot {
		snapByID[it.ID] = it
	}
	for localID, saved := range confirmedCreates {
		if idx := s.indexOfLocked(localID); idx >= 0 {
			s.working[idx].ID = saved.ID
		}
		sent := snapByID[localID]
		sent.ID = saved.ID
		s.original[saved.ID] = sent
	}
	for id, update := range confirmedUpdates {
		orig := s.original[id]
		if sent, ok := snapByID[id]; ok {
			orig = sent
		}
		orig.ID = id
		orig.UnitPrice = update.UnitPrice
		orig.Quantity = update.Quantity
		orig.Duration = update.Duration
		s.original[id] = orig
	}
	for id := range confirmedDeletes {
		delete(s.original, id)
		// A zeroed row stays visible in the editor after its server row is
		// gone; it loses its persisted identity so the next plan treats it
		// as a template row instead of re-deleting.
		if idx := s.indexOfLocked(id); idx >= 0 {
			s.working[idx].ID = newLocalID()
		}
	}
	if patchSent && s.patchGen == patchGen {
		s.pendingPatch = OfferPatch{}
	}
	s.dirty = !buildPlan(s.working, s.original).Empty() || !s.pendingPatch.empty()
	s.saving = false
	if s.dirty {
		s.armTimerLocked()
	}
	s.mu.Unlock()

	err := errors.Join(itemErr, offerErr)
	if err != nil {
		s.logger.Warn().Err(err).Str("offer_id", s.offerID).Msg("offer save failed")
		if s.OnSaveError != nil {
			s.OnSaveError(err)
		}
	}
	return err
}

// Close cancels any pending auto-save timer. Unsaved edits are discarded
// with the session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) markDirtyLocked() {
	s.dirty = true
	s.armTimerLocked()
}

func (s *Session) armTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.autoSaveDelay, func() {
		s.mu.Lock()
		fire := s.dirty && !s.saving
		s.mu.Unlock()
		if fire {
			_ = s.RequestSave(context.Background())
		}
	})
}

func (s *Session) indexOfLocked(itemID string) int {
	for i, it := range s.working {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}

func (s *Session) sortWorkingLocked() {
	sort.SliceStable(s.working, func(i, j int) bool {
		ri, rj := pricing.CategoryRank(s.working[i].Category), pricing.CategoryRank(s.working[j].Category)
		if ri != rj {
			return ri < rj
		}
		return s.working[i].SortOrder < s.working[j].SortOrder
	})
}
