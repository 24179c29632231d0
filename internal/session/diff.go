package session

import "sort"

// ItemUpdate carries the three numeric fields sent on an item update. All
// three are always sent; per-field dirtiness is not tracked.
type ItemUpdate struct {
	UnitPrice float64 `json:"unitPrice"`
	Quantity  float64 `json:"quantity"`
	Duration  float64 `json:"duration"`
}

// CreateOp is a pending item insert keyed by the client-only placeholder id.
type CreateOp struct {
	LocalID string
	Item    Item
}

// UpdateOp is a pending item update keyed by persisted identity.
type UpdateOp struct {
	ItemID string
	Update ItemUpdate
}

// Plan is the minimal batch of writes that reconciles the persisted rows with
// the working list.
type Plan struct {
	Creates []CreateOp
	Updates []UpdateOp
	Deletes []string
}

// Empty reports whether the plan carries no operations.
func (p Plan) Empty() bool {
	return len(p.Creates) == 0 && len(p.Updates) == 0 && len(p.Deletes) == 0
}

// buildPlan diffs the working list against the last successfully saved
// snapshot. Unmodified persisted rows generate no operations. A persisted row
// with zero quantity, or one missing from the working list entirely, is
// deleted. Rows without persisted identity are created unless their quantity
// is zero (template rows never hit the network).
func buildPlan(working []Item, original map[string]Item) Plan {
	var plan Plan
	seen := make(map[string]bool, len(working))

	for _, it := range working {
		if it.Persisted() {
			seen[it.ID] = true
			if it.Quantity == 0 {
				plan.Deletes = append(plan.Deletes, it.ID)
				continue
			}
			orig, ok := original[it.ID]
			if !ok || differs(it, orig) {
				plan.Updates = append(plan.Updates, UpdateOp{
					ItemID: it.ID,
					Update: ItemUpdate{UnitPrice: it.UnitPrice, Quantity: it.Quantity, Duration: it.Duration},
				})
			}
			continue
		}
		if it.Quantity == 0 {
			continue
		}
		plan.Creates = append(plan.Creates, CreateOp{LocalID: it.ID, Item: it})
	}

	for id := range original {
		if !seen[id] {
			plan.Deletes = append(plan.Deletes, id)
		}
	}
	sort.Strings(plan.Deletes)
	return plan
}

func differs(a, b Item) bool {
	return a.Duration != b.Duration || a.Quantity != b.Quantity || a.UnitPrice != b.UnitPrice
}
