package deduction

import (
	"time"

	"github.com/shopspring/decimal"
)

// RollbackType identifies what a compensating operation restores
type RollbackType string

const (
	RollbackInventoryRevert RollbackType = "inventory_revert"
	RollbackCategoryRevert  RollbackType = "category_revert"
)

// RollbackOperation captures the state needed to undo one pending store
// mutation. It is created the instant a deduction is about to be applied
// to a group (before the store call), marked Completed once superseded by
// a confirmed success, and replayed as part of an atomic compensating
// batch on fatal failure.
type RollbackOperation struct {
	Type            RollbackType    `json:"type"`
	CategoryGroupID string          `json:"category_group_id"`
	OriginalValue   decimal.Decimal `json:"original_value"`
	Data            map[string]any  `json:"data,omitempty"`
	Completed       bool            `json:"completed"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewInventoryRevert creates a pending compensating operation that would
// restore the given group's inventory level to originalValue.
func NewInventoryRevert(groupID string, originalValue decimal.Decimal) RollbackOperation {
	return RollbackOperation{
		Type:            RollbackInventoryRevert,
		CategoryGroupID: groupID,
		OriginalValue:   originalValue,
		CreatedAt:       time.Now(),
	}
}
