package types

import (
	"slices"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices and totals are stored and returned as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is a sellable catalog entry
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Color    string          `json:"color"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency,omitempty"`
	Stock    int             `json:"stock"`
	Sizes    []string        `json:"sizes,omitempty"`
}

// HasSizes reports whether the product must be ordered with a size
func (p Product) HasSizes() bool {
	return len(p.Sizes) > 0
}

// OffersSize reports whether size is one of the product's available sizes
func (p Product) OffersSize(size string) bool {
	return size != "" && slices.Contains(p.Sizes, size)
}

// Clone returns a copy that shares no slices with p
func (p Product) Clone() Product {
	p.Sizes = slices.Clone(p.Sizes)
	return p
}

// Validate checks if the product is valid
func (p *Product) Validate() error {
	if p.ID == "" {
		return ErrEmptyProductID
	}
	if p.Price.IsNegative() {
		return ErrNegativePrice
	}
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}

// ProductFilters narrows a catalog query. Zero-valued fields are not applied;
// all set fields must match.
type ProductFilters struct {
	Category string
	Color    string
	MaxPrice *decimal.Decimal
}

// IsEmpty returns true when no filter is set
func (f ProductFilters) IsEmpty() bool {
	return f.Category == "" && f.Color == "" && f.MaxPrice == nil
}

// Matches reports whether p satisfies every set filter
func (f ProductFilters) Matches(p Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Color != "" && p.Color != f.Color {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}
