package deduction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	deddomain "github.com/stockpool/backend/internal/domain/deduction"
)

func newExecutor(t *testing.T, f catalogFixture, store *mockInventoryStore, sink deddomain.AuditSink) (*ExecutorService, *deddomain.ErrorHistory) {
	t.Helper()
	cat := &mockCatalog{}
	f.wire(cat)
	history := deddomain.NewErrorHistory(0)
	classifier := deddomain.NewClassifier(history, sink, nil)
	return NewExecutorService(deddomain.NewCalculator(cat, nil), store, classifier, sink, nil), history
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("empty input short-circuits without touching the store", func(t *testing.T) {
		f := newCatalogFixture(t)
		store := &mockInventoryStore{}
		executor, _ := newExecutor(t, f, store, nil)

		result := executor.Process(ctx, nil, "BATCH-1")

		assert.Empty(t, result.Result.Deductions)
		assert.Empty(t, result.Result.Errors)
		store.AssertNotCalled(t, "DeductFromOrder", mock.Anything, mock.Anything)
	})

	t.Run("tags every line with the order and one transaction reference", func(t *testing.T) {
		f := newCatalogFixture(t)
		store := &mockInventoryStore{}
		var lines []deddomain.DeductionLineItem
		store.On("DeductFromOrder", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				lines = args.Get(1).([]deddomain.DeductionLineItem)
			}).
			Return(&deddomain.DeductionOutcome{
				Deductions: []deddomain.DeductionResult{{CategoryGroupID: "devices-group"}},
			}, nil)

		executor, _ := newExecutor(t, f, store, nil)
		result := executor.Process(ctx, []deddomain.OrderItem{orderItem(t, "PHONE-001", "3")}, "BATCH-1")

		require.Len(t, result.Result.Deductions, 1)
		require.Len(t, lines, 3)
		txRef := lines[0].TransactionReference
		require.NotEmpty(t, txRef)
		for _, line := range lines {
			assert.Equal(t, "BATCH-1", line.OrderReference)
			assert.Equal(t, txRef, line.TransactionReference)
		}
	})

	t.Run("enrichment failure yields one classified error", func(t *testing.T) {
		cat := &mockCatalog{}
		cat.On("Products", mock.Anything).Return(nil, errors.New("connection refused"))
		store := &mockInventoryStore{}
		classifier := deddomain.NewClassifier(deddomain.NewErrorHistory(0), nil, nil)
		executor := NewExecutorService(deddomain.NewCalculator(cat, nil), store, classifier, nil, nil)

		result := executor.Process(ctx, []deddomain.OrderItem{orderItem(t, "PHONE-001", "1")}, "BATCH-1")

		require.Len(t, result.Result.Errors, 1)
		assert.Equal(t, deddomain.ErrorTypeNetwork, result.Result.Errors[0].Type)
		store.AssertNotCalled(t, "DeductFromOrder", mock.Anything, mock.Anything)
	})

	t.Run("items without deduction produce a warning and no store call", func(t *testing.T) {
		f := newCatalogFixture(t)
		store := &mockInventoryStore{}
		executor, _ := newExecutor(t, f, store, nil)

		result := executor.Process(ctx, []deddomain.OrderItem{orderItem(t, "STICKER-001", "1")}, "BATCH-1")

		assert.Contains(t, result.Result.Warnings, "no order items triggered automatic deduction")
		store.AssertNotCalled(t, "DeductFromOrder", mock.Anything, mock.Anything)
	})

	t.Run("store failure is classified with a replayable operation", func(t *testing.T) {
		f := newCatalogFixture(t)
		store := &mockInventoryStore{}
		store.On("DeductFromOrder", mock.Anything, mock.Anything).
			Return(nil, errors.New("connection reset by peer")).Once()
		store.On("DeductFromOrder", mock.Anything, mock.Anything).
			Return(&deddomain.DeductionOutcome{}, nil)

		executor, _ := newExecutor(t, f, store, nil)
		result := executor.Process(ctx, []deddomain.OrderItem{orderItem(t, "PHONE-001", "1")}, "BATCH-1")

		require.Len(t, result.Result.Errors, 1)
		classified := result.Result.Errors[0]
		assert.Equal(t, deddomain.ErrorTypeNetwork, classified.Type)

		retry, ok := classified.Context[RetryOperationKey].(RetryFunc)
		require.True(t, ok)
		assert.NoError(t, retry(ctx))
	})

	t.Run("per-group failures surface as classified errors with context", func(t *testing.T) {
		f := newCatalogFixture(t)
		store := &mockInventoryStore{}
		store.On("DeductFromOrder", mock.Anything, mock.Anything).
			Return(&deddomain.DeductionOutcome{
				Deductions: []deddomain.DeductionResult{{CategoryGroupID: "devices-group"}},
				Errors: []deddomain.GroupError{{
					CategoryGroupID:   "battery-group",
					Err:               "Insufficient inventory for battery-group: requested 6, available 2",
					RequestedQuantity: decimal.NewFromInt(6),
					Reason:            "insufficient_inventory",
				}},
			}, nil)

		executor, history := newExecutor(t, f, store, nil)
		result := executor.Process(ctx, []deddomain.OrderItem{orderItem(t, "PHONE-001", "3")}, "BATCH-1")

		// Partial success: one group deducted, one classified failure
		require.Len(t, result.Result.Deductions, 1)
		require.Len(t, result.Result.Errors, 1)
		classified := result.Result.Errors[0]
		assert.Equal(t, deddomain.ErrorTypeInsufficientInventory, classified.Type)
		assert.Equal(t, "battery-group", classified.Context[CategoryGroupKey])
		assert.Equal(t, "6", classified.Context[RequestedQuantityKey])
		assert.Equal(t, 1, history.Len())
	})

	t.Run("a panicking audit sink never loses a committed deduction", func(t *testing.T) {
		f := newCatalogFixture(t)
		store := &mockInventoryStore{}
		store.On("DeductFromOrder", mock.Anything, mock.Anything).
			Return(&deddomain.DeductionOutcome{
				Deductions: []deddomain.DeductionResult{{CategoryGroupID: "devices-group"}},
			}, nil)

		executor, _ := newExecutor(t, f, store, panickingAudit{})

		var result *ProcessResult
		assert.NotPanics(t, func() {
			result = executor.Process(ctx, []deddomain.OrderItem{orderItem(t, "PHONE-001", "1")}, "BATCH-1")
		})
		require.Len(t, result.Result.Deductions, 1)
	})
}

func TestProcessIdempotency(t *testing.T) {
	ctx := context.Background()

	t.Run("skips an already processed order reference", func(t *testing.T) {
		f := newCatalogFixture(t)
		store := &mockInventoryStore{}
		executor, _ := newExecutor(t, f, store, nil)

		guard := &mockIdempotencyStore{}
		guard.On("IsProcessed", mock.Anything, "BATCH-1").Return(true, nil)
		executor.SetIdempotencyStore(guard, time.Hour)

		result := executor.Process(ctx, []deddomain.OrderItem{orderItem(t, "PHONE-001", "1")}, "BATCH-1")

		assert.True(t, result.AlreadyProcessed)
		require.NotEmpty(t, result.Result.Warnings)
		assert.Contains(t, result.Result.Warnings[len(result.Result.Warnings)-1], "already processed")
		store.AssertNotCalled(t, "DeductFromOrder", mock.Anything, mock.Anything)
	})

	t.Run("marks the reference only after a fully successful run", func(t *testing.T) {
		f := newCatalogFixture(t)
		store := &mockInventoryStore{}
		store.On("DeductFromOrder", mock.Anything, mock.Anything).
			Return(&deddomain.DeductionOutcome{
				Deductions: []deddomain.DeductionResult{{CategoryGroupID: "devices-group"}},
			}, nil)

		executor, _ := newExecutor(t, f, store, nil)
		guard := &mockIdempotencyStore{}
		guard.On("IsProcessed", mock.Anything, "BATCH-1").Return(false, nil)
		guard.On("MarkProcessed", mock.Anything, "BATCH-1", time.Hour).Return(true, nil)
		executor.SetIdempotencyStore(guard, time.Hour)

		executor.Process(ctx, []deddomain.OrderItem{orderItem(t, "PHONE-001", "1")}, "BATCH-1")

		guard.AssertCalled(t, "MarkProcessed", mock.Anything, "BATCH-1", time.Hour)
	})

	t.Run("does not mark the reference when a group fails", func(t *testing.T) {
		f := newCatalogFixture(t)
		store := &mockInventoryStore{}
		store.On("DeductFromOrder", mock.Anything, mock.Anything).
			Return(&deddomain.DeductionOutcome{
				Errors: []deddomain.GroupError{{
					CategoryGroupID:   "devices-group",
					Err:               "insufficient",
					RequestedQuantity: decimal.NewFromInt(1),
				}},
			}, nil)

		executor, _ := newExecutor(t, f, store, nil)
		guard := &mockIdempotencyStore{}
		guard.On("IsProcessed", mock.Anything, "BATCH-1").Return(false, nil)
		executor.SetIdempotencyStore(guard, time.Hour)

		executor.Process(ctx, []deddomain.OrderItem{orderItem(t, "PHONE-001", "1")}, "BATCH-1")

		guard.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("a failing guard degrades to processing without it", func(t *testing.T) {
		f := newCatalogFixture(t)
		store := &mockInventoryStore{}
		store.On("DeductFromOrder", mock.Anything, mock.Anything).
			Return(&deddomain.DeductionOutcome{
				Deductions: []deddomain.DeductionResult{{CategoryGroupID: "devices-group"}},
			}, nil)

		executor, _ := newExecutor(t, f, store, nil)
		guard := &mockIdempotencyStore{}
		guard.On("IsProcessed", mock.Anything, "BATCH-1").Return(false, errors.New("redis down"))
		guard.On("MarkProcessed", mock.Anything, "BATCH-1", mock.Anything).Return(false, errors.New("redis down"))
		executor.SetIdempotencyStore(guard, time.Hour)

		result := executor.Process(ctx, []deddomain.OrderItem{orderItem(t, "PHONE-001", "1")}, "BATCH-1")

		require.Len(t, result.Result.Deductions, 1)
	})
}

// panickingAudit simulates a broken audit integration
type panickingAudit struct{}

func (panickingAudit) CaptureError(context.Context, *deddomain.DeductionError) { panic("sink down") }
func (panickingAudit) TrackEvent(context.Context, string, map[string]any)     { panic("sink down") }
