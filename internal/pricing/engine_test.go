package pricing

import (
	"math"
	"testing"
)

func TestAggregateWorkedExample(t *testing.T) {
	items := []Item{
		{Category: "Ground support", UnitPrice: 1000, Quantity: 2, Duration: 2},
		{Category: CategoryPersonnel, UnitPrice: 500, Quantity: 1, Duration: 3},
		{Category: CategoryTransport, UnitPrice: 20, Quantity: 100, Duration: 1},
	}
	s := Aggregate(items, 10)
	if s.SubtotalEquipment != 4000 {
		t.Fatalf("equipment subtotal = %v, want 4000", s.SubtotalEquipment)
	}
	if s.SubtotalPersonnel != 1500 {
		t.Fatalf("personnel subtotal = %v, want 1500", s.SubtotalPersonnel)
	}
	if s.SubtotalTransport != 2000 {
		t.Fatalf("transport subtotal = %v, want 2000", s.SubtotalTransport)
	}
	if s.DiscountAmount != 400 {
		t.Fatalf("discount = %v, want 400", s.DiscountAmount)
	}
	if s.TotalAmount != 7100 {
		t.Fatalf("total = %v, want 7100", s.TotalAmount)
	}
}

func TestDiscountNeverTouchesPersonnelOrTransport(t *testing.T) {
	items := []Item{
		{Category: CategoryPersonnel, UnitPrice: 1000, Quantity: 1, Duration: 1},
		{Category: CategoryTransport, UnitPrice: 5, Quantity: 100, Duration: 1},
	}
	for _, pct := range []float64{0, 50, 100} {
		s := Aggregate(items, pct)
		if s.DiscountAmount != 0 {
			t.Fatalf("discount at %v%% = %v, want 0", pct, s.DiscountAmount)
		}
		if s.TotalAmount != 1500 {
			t.Fatalf("total at %v%% = %v, want 1500", pct, s.TotalAmount)
		}
	}
}

func TestAggregateExcludesZeroQuantity(t *testing.T) {
	items := []Item{
		{Category: "Zvuková technika", UnitPrice: 800, Quantity: 0, Duration: 2},
		{Category: "Zvuková technika", UnitPrice: 100, Quantity: 1, Duration: 1},
	}
	s := Aggregate(items, 0)
	if s.SubtotalEquipment != 100 {
		t.Fatalf("equipment subtotal = %v, want 100 (zero-quantity row must not count)", s.SubtotalEquipment)
	}
}

func TestAggregateClampsBadInput(t *testing.T) {
	items := []Item{
		{Category: "Zvuková technika", UnitPrice: math.NaN(), Quantity: 1, Duration: 1},
		{Category: "Zvuková technika", UnitPrice: 100, Quantity: -2, Duration: 1},
		{Category: "Zvuková technika", UnitPrice: 100, Quantity: 2, Duration: 1},
	}
	s := Aggregate(items, 150)
	if s.SubtotalEquipment != 200 {
		t.Fatalf("equipment subtotal = %v, want 200", s.SubtotalEquipment)
	}
	// discount percent clamps to 100
	if s.DiscountAmount != 200 {
		t.Fatalf("discount = %v, want 200", s.DiscountAmount)
	}
	if s.TotalAmount != 0 {
		t.Fatalf("total = %v, want 0", s.TotalAmount)
	}
	if math.IsNaN(s.TotalAmount) {
		t.Fatal("NaN leaked into total")
	}
}

func TestDiscountRoundsHalfUpOnFinalAmountOnly(t *testing.T) {
	// 0.5 day of a 101-crown item: subtotal 50.5, 50% discount = 25.25 -> 25
	items := []Item{{Category: "Světelná technika", UnitPrice: 101, Quantity: 1, Duration: 0.5}}
	s := Aggregate(items, 50)
	if s.SubtotalEquipment != 50.5 {
		t.Fatalf("subtotal = %v, want 50.5", s.SubtotalEquipment)
	}
	if s.DiscountAmount != 25 {
		t.Fatalf("discount = %v, want 25", s.DiscountAmount)
	}
	if s.TotalAmount != 25.5 {
		t.Fatalf("total = %v, want 25.5", s.TotalAmount)
	}
}

func TestWithVatWorkedExample(t *testing.T) {
	v := WithVat(7100, true)
	if v.VatAmount != 1491 {
		t.Fatalf("vat = %v, want 1491", v.VatAmount)
	}
	if v.TotalWithVat != 8591 {
		t.Fatalf("gross = %v, want 8591", v.TotalWithVat)
	}
}

func TestWithVatRoundsIndependently(t *testing.T) {
	// Fractional total where the two roundings genuinely diverge:
	// 100.5 × 0.21 = 21.105 -> 21, 100.5 × 1.21 = 121.605 -> 122,
	// and 100.5 + 21 = 121.5 ≠ 122. Both figures must be computed
	// independently, never derived from one another.
	v := WithVat(100.5, true)
	if v.VatAmount != 21 {
		t.Fatalf("vat = %v, want 21", v.VatAmount)
	}
	if v.TotalWithVat != 122 {
		t.Fatalf("gross = %v, want 122", v.TotalWithVat)
	}
	if v.TotalWithVat == 100.5+v.VatAmount {
		t.Fatal("expected independent rounding to diverge for this input")
	}
}

func TestWithVatHalfUp(t *testing.T) {
	// 50 × 0.21 = 10.5 rounds up to 11 under the half-up rule.
	v := WithVat(50, true)
	if v.VatAmount != 11 {
		t.Fatalf("vat = %v, want 11", v.VatAmount)
	}
	if v.TotalWithVat != 61 {
		t.Fatalf("gross = %v, want 61", v.TotalWithVat)
	}
}

func TestWithVatNonPayer(t *testing.T) {
	v := WithVat(7100, false)
	if v.VatAmount != 0 || v.TotalWithVat != 7100 {
		t.Fatalf("non-payer VAT summary = %+v", v)
	}
}

func TestLineTotal(t *testing.T) {
	if got := LineTotal(Item{UnitPrice: 1000, Quantity: 2, Duration: 2.5}); got != 5000 {
		t.Fatalf("line total = %v, want 5000", got)
	}
	if got := LineTotal(Item{UnitPrice: math.Inf(1), Quantity: 2, Duration: 1}); got != 0 {
		t.Fatalf("line total with inf price = %v, want 0", got)
	}
}
