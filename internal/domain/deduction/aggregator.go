package deduction

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/stockpool/backend/internal/domain/catalog"
)

// GroupTotal is the aggregated deduction for one category group
type GroupTotal struct {
	CategoryGroupID string                `json:"category_group_id"`
	Label           string                `json:"label"`
	TotalQuantity   decimal.Decimal       `json:"total_quantity"`
	Unit            catalog.InventoryUnit `json:"unit"`
	LineCount       int                   `json:"line_count"`
}

// AggregateByGroup merges deduction line items (primary and cascade, across
// all order items) by category group, summing quantities. The first line's
// label and unit are carried as representative for the group. Preview and
// execution both aggregate through here, so their totals never diverge for
// the same input.
func AggregateByGroup(lines []DeductionLineItem) map[string]GroupTotal {
	totals := make(map[string]GroupTotal)
	for _, line := range lines {
		total, ok := totals[line.CategoryGroupID]
		if !ok {
			total = GroupTotal{
				CategoryGroupID: line.CategoryGroupID,
				Label:           line.GroupLabel,
				TotalQuantity:   decimal.Zero,
				Unit:            line.Unit,
			}
		}
		total.TotalQuantity = total.TotalQuantity.Add(line.Quantity)
		total.LineCount++
		totals[line.CategoryGroupID] = total
	}
	return totals
}

// SortedGroupTotals returns group totals ordered by category group ID,
// for deterministic iteration and stable store lock ordering.
func SortedGroupTotals(totals map[string]GroupTotal) []GroupTotal {
	out := make([]GroupTotal, 0, len(totals))
	for _, total := range totals {
		out = append(out, total)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CategoryGroupID < out[j].CategoryGroupID
	})
	return out
}
