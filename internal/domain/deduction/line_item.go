package deduction

import (
	"github.com/shopspring/decimal"
	"github.com/stockpool/backend/internal/domain/catalog"
)

// CascadeSource names the link that produced a cascade line item
type CascadeSource struct {
	SourceCategoryName string `json:"source_category_name"`
	TargetCategoryName string `json:"target_category_name"`
}

// DeductionLineItem is one quantized deduction against a category group.
// Line items are transient: they are produced per order item per affected
// category and always aggregated before reaching the inventory store.
type DeductionLineItem struct {
	CategoryGroupID      string                 `json:"category_group_id"`
	GroupLabel           string                 `json:"group_label"`
	Quantity             decimal.Decimal        `json:"quantity"`
	Unit                 catalog.InventoryUnit  `json:"unit"`
	ProductSKU           string                 `json:"product_sku"`
	OrderReference       string                 `json:"order_reference,omitempty"`
	TransactionReference string                 `json:"transaction_reference,omitempty"`
	Platform             Platform               `json:"platform"`
	IsCascade            bool                   `json:"is_cascade"`
	CascadeSource        *CascadeSource         `json:"cascade_source,omitempty"`
}
