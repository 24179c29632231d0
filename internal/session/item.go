package session

import (
	"strings"

	"github.com/google/uuid"
)

// localIDPrefix marks client-only placeholder identities. Items carrying one
// have never been persisted; the placeholder lets a create confirmation be
// matched back to the right working row even if the list mutates mid-save.
const localIDPrefix = "local:"

// Item is one editable line of the offer as held by the editing session.
type Item struct {
	ID          string  `json:"id,omitempty"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory,omitempty"`
	Name        string  `json:"name"`
	UnitPrice   float64 `json:"unitPrice"`
	Quantity    float64 `json:"quantity"`
	Duration    float64 `json:"duration"`
	SortOrder   int     `json:"sortOrder"`
}

// Persisted reports whether the item has a server-assigned identity.
func (it Item) Persisted() bool {
	return it.ID != "" && !strings.HasPrefix(it.ID, localIDPrefix)
}

func newLocalID() string {
	return localIDPrefix + uuid.NewString()
}

// Field names an editable numeric field of a line item.
type Field string

// Editable numeric fields.
const (
	FieldDuration  Field = "duration"
	FieldQuantity  Field = "quantity"
	FieldUnitPrice Field = "unitPrice"
)
