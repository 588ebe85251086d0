package deduction

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	deddomain "github.com/stockpool/backend/internal/domain/deduction"
	"go.uber.org/zap"
)

// DefaultMaxRetryAttempts bounds network-failure retries
const DefaultMaxRetryAttempts = 3

// RecoveryManager attempts a bounded recovery strategy for a classified
// deduction error. It never mutates inventory itself: the strongest thing
// it does is replay a captured operation or suggest partial fulfilment.
type RecoveryManager struct {
	store       deddomain.InventoryStore
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.Logger
}

// NewRecoveryManager creates a new RecoveryManager
func NewRecoveryManager(store deddomain.InventoryStore, logger *zap.Logger) *RecoveryManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecoveryManager{
		store:       store,
		maxAttempts: DefaultMaxRetryAttempts,
		retryDelay:  time.Second,
		logger:      logger,
	}
}

// SetRetryPolicy overrides the bounded-retry parameters
func (m *RecoveryManager) SetRetryPolicy(maxAttempts int, delay time.Duration) {
	if maxAttempts > 0 {
		m.maxAttempts = maxAttempts
	}
	if delay >= 0 {
		m.retryDelay = delay
	}
}

// AttemptRecovery dispatches on the error type. Non-recoverable errors
// short-circuit immediately.
func (m *RecoveryManager) AttemptRecovery(ctx context.Context, derr *deddomain.DeductionError) RecoveryResult {
	if derr == nil {
		return RecoveryResult{Success: false, Errors: []string{"no error to recover"}}
	}
	if !derr.Recoverable {
		return RecoveryResult{Success: false, Errors: []string{"Error is not recoverable"}}
	}

	switch derr.Type {
	case deddomain.ErrorTypeNetwork:
		return m.retryOriginalOperation(ctx, derr)
	case deddomain.ErrorTypeInsufficientInventory:
		return m.suggestPartialFulfilment(ctx, derr)
	default:
		// Store, validation, and unknown errors have no automatic
		// strategy beyond surfacing the suggested actions.
		return RecoveryResult{
			Success:          false,
			SuggestedActions: derr.SuggestedActions,
		}
	}
}

// retryOriginalOperation replays the captured failed operation a bounded
// number of times. Absent a captured operation the recovery fails.
func (m *RecoveryManager) retryOriginalOperation(ctx context.Context, derr *deddomain.DeductionError) RecoveryResult {
	retry, ok := derr.Context[RetryOperationKey].(RetryFunc)
	if !ok || retry == nil {
		return RecoveryResult{
			Success: false,
			Errors:  []string{"original operation was not captured; cannot retry"},
		}
	}

	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return RecoveryResult{Success: false, Errors: []string{ctx.Err().Error()}}
			case <-time.After(m.retryDelay):
			}
		}

		if lastErr = retry(ctx); lastErr == nil {
			m.logger.Info("network recovery succeeded",
				zap.String("error_id", derr.ID.String()),
				zap.Int("attempt", attempt),
			)
			return RecoveryResult{Success: true}
		}
		m.logger.Warn("recovery retry failed",
			zap.String("error_id", derr.ID.String()),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
	}

	return RecoveryResult{
		Success:          false,
		Errors:           []string{fmt.Sprintf("retry exhausted after %d attempts: %v", m.maxAttempts, lastErr)},
		SuggestedActions: derr.SuggestedActions,
	}
}

// suggestPartialFulfilment re-reads the implicated group's current level
// and, when it cannot cover the request, quotes how much could be
// fulfilled. It does not mutate inventory.
func (m *RecoveryManager) suggestPartialFulfilment(ctx context.Context, derr *deddomain.DeductionError) RecoveryResult {
	groupID, _ := derr.Context[CategoryGroupKey].(string)
	requestedRaw, _ := derr.Context[RequestedQuantityKey].(string)
	if groupID == "" || requestedRaw == "" {
		return RecoveryResult{
			Success: false,
			Errors:  []string{"error context is missing group or requested quantity"},
		}
	}
	requested, err := decimal.NewFromString(requestedRaw)
	if err != nil {
		return RecoveryResult{
			Success: false,
			Errors:  []string{fmt.Sprintf("unparseable requested quantity %q", requestedRaw)},
		}
	}

	current, err := m.store.CurrentLevel(ctx, groupID)
	if err != nil {
		return RecoveryResult{
			Success: false,
			Errors:  []string{fmt.Sprintf("could not read current level for %s: %v", groupID, err)},
		}
	}

	if current.LessThan(requested) {
		return RecoveryResult{
			Success: false,
			SuggestedActions: []string{
				fmt.Sprintf("Partial fulfilment available for %s: %s of %s requested",
					groupID, current.String(), requested.String()),
			},
		}
	}

	// Inventory has since been replenished; the caller can simply retry.
	return RecoveryResult{
		Success:          true,
		SuggestedActions: []string{fmt.Sprintf("Inventory for %s now covers the request; retry the deduction", groupID)},
	}
}
