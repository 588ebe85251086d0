package deduction

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stockpool/backend/internal/domain/catalog"
	"go.uber.org/zap"
)

// Calculator resolves order items into primary and cascade deduction line
// items using a per-run snapshot of the catalog. It is read-only: nothing
// here mutates inventory.
type Calculator struct {
	catalog catalog.Reader
	logger  *zap.Logger
}

// NewCalculator creates a new Calculator
func NewCalculator(reader catalog.Reader, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{catalog: reader, logger: logger}
}

// Enrich joins raw order items against the catalog: product by SKU, then
// category by the product's category ID. An unmatched SKU yields an
// Unmatched enrichment rather than an error, so one bad item never aborts
// the batch. The catalog snapshot is loaded once, before any deduction
// work begins.
func (c *Calculator) Enrich(ctx context.Context, items []OrderItem) ([]EnrichedOrderItem, error) {
	products, err := c.catalog.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading product snapshot: %w", err)
	}
	categories, err := c.catalog.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading category snapshot: %w", err)
	}

	productBySKU := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		// First match wins; SKUs are assumed unique in the active snapshot
		if _, seen := productBySKU[p.SKU]; !seen {
			productBySKU[p.SKU] = p
		}
	}
	categoryByID := make(map[string]catalog.Category, len(categories))
	for _, cat := range categories {
		categoryByID[cat.ID.String()] = cat
	}

	enriched := make([]EnrichedOrderItem, 0, len(items))
	for _, item := range items {
		enriched = append(enriched, EnrichedOrderItem{
			OrderItem:  item,
			Enrichment: c.resolve(item, productBySKU, categoryByID),
		})
	}
	return enriched, nil
}

func (c *Calculator) resolve(item OrderItem, productBySKU map[string]catalog.Product, categoryByID map[string]catalog.Category) Enrichment {
	product, ok := productBySKU[item.SKU]
	if !ok {
		c.logger.Debug("order item SKU not found in catalog", zap.String("sku", item.SKU))
		return Unmatched{}
	}

	if !product.HasCategory() {
		return MatchedNoDeduction{Product: product}
	}

	category, ok := categoryByID[product.CategoryID.String()]
	if !ok {
		return MatchedNoDeduction{Product: product}
	}
	if !category.DeductionReady() {
		return MatchedNoDeduction{Product: product, Category: &category}
	}

	return DeductionReady{
		Product:         product,
		Category:        category,
		CategoryGroupID: category.CategoryGroupID,
		QuantityPerUnit: category.InventoryDeductionQuantity,
	}
}

// PrimaryLine computes the deduction against the item's own category group.
// The second return value is false when the item does not require deduction
// or the computed quantity is not positive; no line is emitted in that case.
func (c *Calculator) PrimaryLine(item EnrichedOrderItem) (DeductionLineItem, bool) {
	ready, ok := item.Enrichment.(DeductionReady)
	if !ok {
		return DeductionLineItem{}, false
	}

	total := decimal.NewFromInt(int64(item.Quantity)).Mul(ready.QuantityPerUnit)
	if total.LessThanOrEqual(decimal.Zero) {
		return DeductionLineItem{}, false
	}

	return DeductionLineItem{
		CategoryGroupID: ready.CategoryGroupID,
		GroupLabel:      ready.Category.Name,
		Quantity:        total,
		Unit:            ready.Category.Unit(),
		ProductSKU:      item.SKU,
		OrderReference:  item.OrderID,
		Platform:        item.Platform,
		IsCascade:       false,
	}, true
}

// CascadeLines computes one-hop cascade deductions for the item by walking
// the active outbound links of the item's own category. Linked categories
// that are not deduction-ready are silently skipped. Multi-hop cascades are
// deliberately not followed.
func (c *Calculator) CascadeLines(ctx context.Context, item EnrichedOrderItem) ([]DeductionLineItem, error) {
	category, ok := item.ResolvedCategory()
	if !ok {
		return nil, nil
	}

	linked, err := c.catalog.LinkedCategories(ctx, category.ID, false)
	if err != nil {
		return nil, fmt.Errorf("fetching linked categories for %s: %w", category.Name, err)
	}

	var lines []DeductionLineItem
	for _, target := range linked {
		if !target.DeductionReady() {
			continue
		}

		qty := decimal.NewFromInt(int64(item.Quantity)).Mul(target.InventoryDeductionQuantity)
		if qty.LessThanOrEqual(decimal.Zero) {
			continue
		}

		lines = append(lines, DeductionLineItem{
			CategoryGroupID: target.CategoryGroupID,
			GroupLabel:      target.Name,
			Quantity:        qty,
			Unit:            target.Unit(),
			ProductSKU:      item.SKU,
			OrderReference:  item.OrderID,
			Platform:        item.Platform,
			IsCascade:       true,
			CascadeSource: &CascadeSource{
				SourceCategoryName: category.Name,
				TargetCategoryName: target.Name,
			},
		})
	}
	return lines, nil
}

// Lines computes the full deduction line item list for the enriched items:
// primary plus cascade, in item order. A cascade lookup failure for one
// item is recorded as a warning and never aborts the remaining items.
func (c *Calculator) Lines(ctx context.Context, items []EnrichedOrderItem) ([]DeductionLineItem, []string) {
	var lines []DeductionLineItem
	var warnings []string

	for _, item := range items {
		if line, ok := c.PrimaryLine(item); ok {
			lines = append(lines, line)
		}

		cascades, err := c.CascadeLines(ctx, item)
		if err != nil {
			name := "unknown category"
			if category, ok := item.ResolvedCategory(); ok {
				name = category.Name
			}
			warning := fmt.Sprintf("could not calculate cascade deductions for %s", name)
			warnings = append(warnings, warning)
			c.logger.Warn(warning, zap.String("sku", item.SKU), zap.Error(err))
			continue
		}
		lines = append(lines, cascades...)
	}
	return lines, warnings
}
