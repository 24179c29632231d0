package session

import "testing"

func persistedItem(id string, price, qty, dur float64) Item {
	return Item{ID: id, Category: "Zvuková technika", Name: "Reprobox", UnitPrice: price, Quantity: qty, Duration: dur}
}

func snapshotOf(items ...Item) map[string]Item {
	out := make(map[string]Item, len(items))
	for _, it := range items {
		out[it.ID] = it
	}
	return out
}

func TestBuildPlanUnmodifiedEmitsNothing(t *testing.T) {
	a := persistedItem("a", 500, 2, 1)
	b := persistedItem("b", 750, 1, 2)
	plan := buildPlan([]Item{a, b}, snapshotOf(a, b))
	if !plan.Empty() {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestBuildPlanModifiedEmitsUpdateWithAllThreeFields(t *testing.T) {
	orig := persistedItem("a", 500, 2, 1)
	edited := orig
	edited.Duration = 3

	plan := buildPlan([]Item{edited}, snapshotOf(orig))
	if len(plan.Updates) != 1 || len(plan.Creates) != 0 || len(plan.Deletes) != 0 {
		t.Fatalf("expected exactly one update, got %+v", plan)
	}
	upd := plan.Updates[0]
	if upd.ItemID != "a" {
		t.Fatalf("update targets %q, want a", upd.ItemID)
	}
	if upd.Update.UnitPrice != 500 || upd.Update.Quantity != 2 || upd.Update.Duration != 3 {
		t.Fatalf("update carries %+v, want all three fields", upd.Update)
	}
}

func TestBuildPlanZeroQuantityPersistedEmitsDelete(t *testing.T) {
	orig := persistedItem("a", 500, 2, 1)
	zeroed := orig
	zeroed.Quantity = 0

	plan := buildPlan([]Item{zeroed}, snapshotOf(orig))
	if len(plan.Deletes) != 1 || plan.Deletes[0] != "a" {
		t.Fatalf("expected delete of a, got %+v", plan)
	}
	if len(plan.Updates) != 0 || len(plan.Creates) != 0 {
		t.Fatalf("unexpected extra ops: %+v", plan)
	}
}

func TestBuildPlanRemovedFromWorkingEmitsDelete(t *testing.T) {
	orig := persistedItem("a", 500, 2, 1)
	plan := buildPlan(nil, snapshotOf(orig))
	if len(plan.Deletes) != 1 || plan.Deletes[0] != "a" {
		t.Fatalf("expected delete of a, got %+v", plan)
	}
}

func TestBuildPlanLocalItemEmitsCreate(t *testing.T) {
	local := Item{ID: newLocalID(), Category: "Rigging", Name: "Traverza", UnitPrice: 150, Quantity: 4, Duration: 1}
	plan := buildPlan([]Item{local}, map[string]Item{})
	if len(plan.Creates) != 1 {
		t.Fatalf("expected one create, got %+v", plan)
	}
	if plan.Creates[0].LocalID != local.ID {
		t.Fatalf("create keyed by %q, want %q", plan.Creates[0].LocalID, local.ID)
	}
}

func TestBuildPlanZeroQuantityTemplateStaysLocal(t *testing.T) {
	template := Item{ID: newLocalID(), Category: "Rigging", Name: "Traverza", UnitPrice: 150, Quantity: 0, Duration: 1}
	plan := buildPlan([]Item{template}, map[string]Item{})
	if !plan.Empty() {
		t.Fatalf("template row must not hit the network, got %+v", plan)
	}
}

func TestBuildPlanMixedBatch(t *testing.T) {
	unchanged := persistedItem("a", 500, 2, 1)
	modified := persistedItem("b", 750, 1, 2)
	editedB := modified
	editedB.UnitPrice = 800
	removed := persistedItem("c", 100, 1, 1)
	local := Item{ID: newLocalID(), Category: "Doprava", Name: "Dodávka", UnitPrice: 20, Quantity: 100, Duration: 1}

	plan := buildPlan([]Item{unchanged, editedB, local}, snapshotOf(unchanged, modified, removed))
	if len(plan.Creates) != 1 || len(plan.Updates) != 1 || len(plan.Deletes) != 1 {
		t.Fatalf("expected 1/1/1 ops, got %+v", plan)
	}
	if plan.Deletes[0] != "c" {
		t.Fatalf("expected delete of c, got %v", plan.Deletes)
	}
}
