package pricing

import "math"

// Amounts are whole Czech crowns held as float64: durations step by 0.5 days
// and transport quantities are kilometres, so line totals are not guaranteed
// to be integral and int64 minor units do not fit this domain.

// VatRate is the fixed Czech VAT rate applied when the offer owner is a VAT payer.
const VatRate = 0.21

// Item is the slice of a line item the engine needs for aggregation.
type Item struct {
	Category  string
	UnitPrice float64
	Quantity  float64
	Duration  float64
}

// Summary aggregates the computed pricing components of one offer.
type Summary struct {
	SubtotalEquipment float64
	SubtotalPersonnel float64
	SubtotalTransport float64
	DiscountAmount    float64
	TotalAmount       float64
}

// VatSummary reports VAT figures alongside the pre-tax total.
type VatSummary struct {
	VatAmount    float64
	TotalWithVat float64
}

// LineTotal computes duration × quantity × unitPrice, unrounded. Non-finite or
// negative inputs count as zero so a half-typed field in the editor can never
// poison a stored total.
func LineTotal(it Item) float64 {
	return sanitize(it.Duration) * sanitize(it.Quantity) * sanitize(it.UnitPrice)
}

// RoundHalfUp rounds a currency amount to whole crowns, halves away from zero.
func RoundHalfUp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Floor(v + 0.5)
}

// Aggregate sums line totals per bucket and applies the discount to the
// equipment subtotal only. Items with zero quantity are not part of the offer
// and contribute nothing. The discount is rounded once, on the final amount.
func Aggregate(items []Item, discountPercent float64) Summary {
	var equipment, personnel, transport float64
	for _, it := range items {
		if sanitize(it.Quantity) == 0 {
			continue
		}
		total := LineTotal(it)
		switch Classify(it.Category) {
		case BucketPersonnel:
			personnel += total
		case BucketTransport:
			transport += total
		default:
			equipment += total
		}
	}
	pct := sanitize(discountPercent)
	if pct > 100 {
		pct = 100
	}
	discount := RoundHalfUp(equipment * pct / 100)
	return Summary{
		SubtotalEquipment: equipment,
		SubtotalPersonnel: personnel,
		SubtotalTransport: transport,
		DiscountAmount:    discount,
		TotalAmount:       equipment + personnel + transport - discount,
	}
}

// WithVat reports the VAT line for a pre-tax total. VatAmount and TotalWithVat
// are rounded independently rather than one being derived from the other, so
// for fractional totals TotalWithVat may differ from TotalAmount+VatAmount by
// a crown. Issued documents already show the independently rounded figures, so
// the discrepancy is kept as-is.
func WithVat(totalAmount float64, isVatPayer bool) VatSummary {
	total := sanitize(totalAmount)
	if !isVatPayer {
		return VatSummary{VatAmount: 0, TotalWithVat: total}
	}
	return VatSummary{
		VatAmount:    RoundHalfUp(total * VatRate),
		TotalWithVat: RoundHalfUp(total * (1 + VatRate)),
	}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
