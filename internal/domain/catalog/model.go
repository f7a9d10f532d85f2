package catalog

import "github.com/shopspring/decimal"

// Medicine is a catalog entry as served by /medicines.
type Medicine struct {
	ID                   int64           `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Price                decimal.Decimal `json:"price"`
	Stock                int             `json:"stock"`
	RequiresPrescription bool            `json:"requires_prescription"`
	ImageURL             string          `json:"image_url"`
	CategoryID           int64           `json:"category_id"`
}

// InStock reports whether the medicine can currently be added to a cart.
func (m Medicine) InStock() bool { return m.Stock > 0 }

// Category groups medicines for browsing.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
