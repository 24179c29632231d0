package offer

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an offer.
type Status string

// Offer lifecycle states.
const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusConfirmed Status = "confirmed"
	StatusCanceled  Status = "canceled"
)

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusConfirmed, StatusCanceled:
		return true
	}
	return false
}

// Offer is a priced quotation for one event.
type Offer struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	CustomerName    string     `json:"customerName,omitempty"`
	Status          Status     `json:"status"`
	EventDate       *time.Time `json:"eventDate,omitempty"`
	DiscountPercent float64    `json:"discountPercent"`
	IsVatPayer      bool       `json:"isVatPayer"`
	GroupID         *uuid.UUID `json:"groupId,omitempty"`
	OwnerID         uuid.UUID  `json:"ownerId"`

	SubtotalEquipment float64 `json:"subtotalEquipment"`
	SubtotalPersonnel float64 `json:"subtotalPersonnel"`
	SubtotalTransport float64 `json:"subtotalTransport"`
	DiscountAmount    float64 `json:"discountAmount"`
	TotalAmount       float64 `json:"totalAmount"`
	VatAmount         float64 `json:"vatAmount"`
	TotalWithVat      float64 `json:"totalWithVat"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Item is one priced line of an offer.
type Item struct {
	ID          uuid.UUID `json:"id"`
	OfferID     uuid.UUID `json:"offerId"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Name        string    `json:"name"`
	UnitPrice   float64   `json:"unitPrice"`
	Quantity    float64   `json:"quantity"`
	Duration    float64   `json:"duration"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Patch carries optional offer header changes. Nil fields are left untouched.
type Patch struct {
	Title           *string    `json:"title,omitempty"`
	CustomerName    *string    `json:"customerName,omitempty"`
	Status          *Status    `json:"status,omitempty"`
	EventDate       *time.Time `json:"eventDate,omitempty"`
	DiscountPercent *float64   `json:"discountPercent,omitempty"`
	IsVatPayer      *bool      `json:"isVatPayer,omitempty"`
	GroupID         *uuid.UUID `json:"groupId,omitempty"`
}

// ItemPatch carries optional item changes. Nil fields are left untouched.
type ItemPatch struct {
	Name      *string  `json:"name,omitempty"`
	UnitPrice *float64 `json:"unitPrice,omitempty"`
	Quantity  *float64 `json:"quantity,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`
	SortOrder *int     `json:"sortOrder,omitempty"`
}

// Detail bundles an offer with its items for read endpoints.
type Detail struct {
	Offer Offer  `json:"offer"`
	Items []Item `json:"items"`
}
