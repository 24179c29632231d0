package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Item is a rentable piece of equipment or a bookable service from the warehouse catalog.
type Item struct {
	ID            uuid.UUID `json:"id"`
	Category      string    `json:"category"`
	Subcategory   string    `json:"subcategory,omitempty"`
	Name          string    `json:"name"`
	UnitPrice     float64   `json:"unitPrice"`
	StockQuantity int       `json:"stockQuantity"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Preset is a named bundle of catalog items used to bootstrap new offers.
type Preset struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Items       []PresetItem `json:"items,omitempty"`
}

// PresetItem is one line of a preset, a catalog item with default quantity and duration.
type PresetItem struct {
	CatalogItemID uuid.UUID `json:"catalogItemId"`
	Category      string    `json:"category"`
	Subcategory   string    `json:"subcategory,omitempty"`
	Name          string    `json:"name"`
	UnitPrice     float64   `json:"unitPrice"`
	Quantity      float64   `json:"quantity"`
	Duration      float64   `json:"duration"`
	SortOrder     int       `json:"sortOrder"`
}
