package deduction

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeductionResult is the store's confirmation for one category group.
// DeductedQuantity may legitimately be less than RequestedQuantity under
// a partial-fulfilment policy.
type DeductionResult struct {
	CategoryGroupID   string          `json:"category_group_id"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity"`
	DeductedQuantity  decimal.Decimal `json:"deducted_quantity"`
	NewInventoryLevel decimal.Decimal `json:"new_inventory_level"`
	MovementID        uuid.UUID       `json:"movement_id"`
}

// GroupError reports a per-group failure inside an otherwise structured
// store response.
type GroupError struct {
	CategoryGroupID   string          `json:"category_group_id"`
	Err               string          `json:"error"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity"`
	Reason            string          `json:"reason"`
}

// DeductionOutcome is the inventory store's response to one multi-group
// deduction call. Some groups may succeed while others are reported in
// Errors.
type DeductionOutcome struct {
	Deductions []DeductionResult `json:"deductions"`
	Warnings   []string          `json:"warnings"`
	Errors     []GroupError      `json:"errors"`
}

// InventoryStore is the engine's write boundary: per-group counters with
// an atomic multi-group deduction primitive and an atomic batched restore
// used by the rollback coordinator. The store is the sole serialization
// point between concurrent deduction runs.
type InventoryStore interface {
	// DeductFromOrder applies the full line item list for one order as a
	// single atomic batch, aggregating concurrent group writes itself.
	DeductFromOrder(ctx context.Context, lines []DeductionLineItem) (*DeductionOutcome, error)

	// CurrentLevel reads the current inventory level of a category group
	CurrentLevel(ctx context.Context, categoryGroupID string) (decimal.Decimal, error)

	// RestoreLevels sets each group's level back to the given value in one
	// atomic batched write. Used only by compensating rollback.
	RestoreLevels(ctx context.Context, levels map[string]decimal.Decimal) error
}

// AuditSink receives classified errors and engine events. It is strictly
// best-effort; implementations must not let failures escape.
type AuditSink interface {
	CaptureError(ctx context.Context, err *DeductionError)
	TrackEvent(ctx context.Context, name string, payload map[string]any)
}
