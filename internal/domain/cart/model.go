package cart

import "github.com/shopspring/decimal"

// Item is a single cart line. The server owns the canonical copy; item state
// held by the SDK is a cache invalidated on every mutation response.
type Item struct {
	ID                   int64           `json:"id"`
	MedicineID           int64           `json:"medicine_id"`
	Name                 string          `json:"name"`
	UnitPrice            decimal.Decimal `json:"price"`
	Quantity             int             `json:"quantity"`
	Stock                int             `json:"stock"`
	RequiresPrescription bool            `json:"requires_prescription"`
	ImageURL             string          `json:"image_url"`
}

// Subtotal is unit price times quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the locally held view of the server-side cart.
type Cart struct {
	Items             []Item
	NeedsPrescription bool
}

// NeedsPrescription reports whether any item in the set requires a
// prescription. Always derived from the full item set, never patched
// incrementally.
func NeedsPrescription(items []Item) bool {
	for _, it := range items {
		if it.RequiresPrescription {
			return true
		}
	}
	return false
}

// Total sums unit price times quantity over the item set.
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}
