package pricing

// Bucket identifies which offer subtotal a line item contributes to.
type Bucket int

const (
	// BucketEquipment accumulates every rentable-equipment category.
	BucketEquipment Bucket = iota
	// BucketPersonnel accumulates technical crew line items.
	BucketPersonnel
	// BucketTransport accumulates transport line items.
	BucketTransport
)

// Category names used by the offer editor. Personnel and transport are the
// only categories priced outside the equipment subtotal.
const (
	CategoryPersonnel = "Technický personál"
	CategoryTransport = "Doprava"
)

// categoryOrder fixes the display order of categories in offers and exported
// documents. Intra-category order is controlled per item via sortOrder.
var categoryOrder = []string{
	"Zvuková technika",
	"Světelná technika",
	"Videotechnika",
	"Pódiová technika",
	"Ground support",
	"Rigging",
	CategoryPersonnel,
	CategoryTransport,
}

// Categories returns the fixed category list in display order.
func Categories() []string {
	out := make([]string, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// CategoryRank returns the position of a category in the fixed ordering.
// Unknown categories sort after every known one.
func CategoryRank(name string) int {
	for i, c := range categoryOrder {
		if c == name {
			return i
		}
	}
	return len(categoryOrder)
}

// Classify maps a category name onto its subtotal bucket. Unknown category
// names classify as equipment on purpose: new rental categories get added to
// the catalog faster than every caller gets updated, and pricing them into
// the discountable equipment subtotal is the behaviour the sales team expects.
func Classify(name string) Bucket {
	switch name {
	case CategoryPersonnel:
		return BucketPersonnel
	case CategoryTransport:
		return BucketTransport
	default:
		return BucketEquipment
	}
}
