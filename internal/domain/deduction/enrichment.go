package deduction

import (
	"github.com/shopspring/decimal"
	"github.com/stockpool/backend/internal/domain/catalog"
)

// Enrichment is the outcome of joining an order item against the catalog.
// Downstream code cannot reach deduction fields without first matching the
// concrete variant, so "is this item deduction-ready" is never implicit.
type Enrichment interface {
	enrichment()
}

// Unmatched means the item's SKU was not found in the catalog snapshot
type Unmatched struct{}

func (Unmatched) enrichment() {}

// MatchedNoDeduction means the product resolved but its category (if any)
// is not configured for automatic deduction.
type MatchedNoDeduction struct {
	Product  catalog.Product
	Category *catalog.Category
}

func (MatchedNoDeduction) enrichment() {}

// DeductionReady means the product resolved to a category with both a
// positive per-unit deduction quantity and a category group.
type DeductionReady struct {
	Product         catalog.Product
	Category        catalog.Category
	CategoryGroupID string
	QuantityPerUnit decimal.Decimal
}

func (DeductionReady) enrichment() {}

// EnrichedOrderItem pairs an order item with its catalog resolution.
// The original item is carried by value and never mutated.
type EnrichedOrderItem struct {
	OrderItem
	Enrichment Enrichment
}

// DeductionRequired returns true when the item will trigger automatic
// inventory deduction.
func (e EnrichedOrderItem) DeductionRequired() bool {
	_, ok := e.Enrichment.(DeductionReady)
	return ok
}

// ResolvedCategory returns the item's category when one resolved,
// regardless of deduction readiness.
func (e EnrichedOrderItem) ResolvedCategory() (*catalog.Category, bool) {
	switch enr := e.Enrichment.(type) {
	case DeductionReady:
		return &enr.Category, true
	case MatchedNoDeduction:
		if enr.Category != nil {
			return enr.Category, true
		}
	}
	return nil, false
}
