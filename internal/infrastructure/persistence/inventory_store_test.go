package persistence

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockpool/backend/internal/domain/catalog"
	"github.com/stockpool/backend/internal/domain/deduction"
	"github.com/stockpool/backend/internal/domain/shared"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&InventoryPool{}, &InventoryMovement{}))
	return db
}

func seedPool(t *testing.T, store *GormInventoryStore, groupID string, level int64) {
	t.Helper()
	require.NoError(t, store.EnsurePool(context.Background(), groupID, groupID, catalog.UnitPieces, decimal.NewFromInt(level)))
}

func line(group string, qty int64) deduction.DeductionLineItem {
	return deduction.DeductionLineItem{
		CategoryGroupID:      group,
		GroupLabel:           group,
		Quantity:             decimal.NewFromInt(qty),
		Unit:                 catalog.UnitPieces,
		OrderReference:       "BATCH-1",
		TransactionReference: "TX-1",
	}
}

func TestDeductFromOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("deducts aggregated totals per group", func(t *testing.T) {
		store := NewGormInventoryStore(setupInventoryTestDB(t))
		seedPool(t, store, "devices-group", 10)
		seedPool(t, store, "battery-group", 20)

		outcome, err := store.DeductFromOrder(ctx, []deduction.DeductionLineItem{
			line("devices-group", 3),
			line("battery-group", 4),
			line("battery-group", 2),
		})
		require.NoError(t, err)
		require.Len(t, outcome.Deductions, 2)
		assert.Empty(t, outcome.Errors)

		level, err := store.CurrentLevel(ctx, "devices-group")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(7).Equal(level))

		level, err = store.CurrentLevel(ctx, "battery-group")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(14).Equal(level))
	})

	t.Run("reports insufficiency per group without blocking others", func(t *testing.T) {
		store := NewGormInventoryStore(setupInventoryTestDB(t))
		seedPool(t, store, "devices-group", 10)
		seedPool(t, store, "battery-group", 2)

		outcome, err := store.DeductFromOrder(ctx, []deduction.DeductionLineItem{
			line("devices-group", 3),
			line("battery-group", 6),
		})
		require.NoError(t, err)

		require.Len(t, outcome.Deductions, 1)
		assert.Equal(t, "devices-group", outcome.Deductions[0].CategoryGroupID)

		require.Len(t, outcome.Errors, 1)
		groupErr := outcome.Errors[0]
		assert.Equal(t, "battery-group", groupErr.CategoryGroupID)
		assert.Equal(t, "insufficient_inventory", groupErr.Reason)
		assert.Contains(t, groupErr.Err, "Insufficient inventory for battery-group: requested 6, available 2")

		// The insufficient group is untouched
		level, err := store.CurrentLevel(ctx, "battery-group")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(2).Equal(level))
	})

	t.Run("reports a missing pool", func(t *testing.T) {
		store := NewGormInventoryStore(setupInventoryTestDB(t))

		outcome, err := store.DeductFromOrder(ctx, []deduction.DeductionLineItem{
			line("ghost-group", 1),
		})
		require.NoError(t, err)
		require.Len(t, outcome.Errors, 1)
		assert.Equal(t, "pool_not_found", outcome.Errors[0].Reason)
	})

	t.Run("warns when a pool drains to zero", func(t *testing.T) {
		store := NewGormInventoryStore(setupInventoryTestDB(t))
		seedPool(t, store, "devices-group", 3)

		outcome, err := store.DeductFromOrder(ctx, []deduction.DeductionLineItem{
			line("devices-group", 3),
		})
		require.NoError(t, err)
		require.Len(t, outcome.Warnings, 1)
		assert.Contains(t, outcome.Warnings[0], "inventory pool devices-group is now empty")
	})

	t.Run("records a movement row per deducted group", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		store := NewGormInventoryStore(db)
		seedPool(t, store, "devices-group", 10)

		outcome, err := store.DeductFromOrder(ctx, []deduction.DeductionLineItem{
			line("devices-group", 4),
		})
		require.NoError(t, err)
		require.Len(t, outcome.Deductions, 1)

		var movement InventoryMovement
		require.NoError(t, db.First(&movement, "id = ?", outcome.Deductions[0].MovementID).Error)
		assert.Equal(t, MovementDeduction, movement.Type)
		assert.Equal(t, "BATCH-1", movement.OrderReference)
		assert.Equal(t, "TX-1", movement.TransactionReference)
		assert.True(t, decimal.NewFromInt(10).Equal(movement.PreviousLevel))
		assert.True(t, decimal.NewFromInt(6).Equal(movement.NewLevel))
	})

	t.Run("empty line list is a no-op", func(t *testing.T) {
		store := NewGormInventoryStore(setupInventoryTestDB(t))
		outcome, err := store.DeductFromOrder(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, outcome.Deductions)
	})
}

func TestCurrentLevel(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown group maps to not found", func(t *testing.T) {
		store := NewGormInventoryStore(setupInventoryTestDB(t))
		_, err := store.CurrentLevel(ctx, "ghost-group")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestRestoreLevels(t *testing.T) {
	ctx := context.Background()

	t.Run("restores levels and records restore movements", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		store := NewGormInventoryStore(db)
		seedPool(t, store, "devices-group", 7)
		seedPool(t, store, "battery-group", 14)

		err := store.RestoreLevels(ctx, map[string]decimal.Decimal{
			"devices-group": decimal.NewFromInt(10),
			"battery-group": decimal.NewFromInt(20),
		})
		require.NoError(t, err)

		level, err := store.CurrentLevel(ctx, "devices-group")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(10).Equal(level))

		var count int64
		require.NoError(t, db.Model(&InventoryMovement{}).Where("type = ?", MovementRestore).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})

	t.Run("a missing pool aborts the whole batch", func(t *testing.T) {
		store := NewGormInventoryStore(setupInventoryTestDB(t))
		seedPool(t, store, "devices-group", 7)

		err := store.RestoreLevels(ctx, map[string]decimal.Decimal{
			"devices-group": decimal.NewFromInt(10),
			"ghost-group":   decimal.NewFromInt(5),
		})
		require.Error(t, err)

		// All-or-nothing: the existing pool must keep its level
		level, err := store.CurrentLevel(ctx, "devices-group")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(7).Equal(level))
	})

	t.Run("empty map is a no-op", func(t *testing.T) {
		store := NewGormInventoryStore(setupInventoryTestDB(t))
		assert.NoError(t, store.RestoreLevels(ctx, nil))
	})
}

func TestEnsurePool(t *testing.T) {
	ctx := context.Background()

	t.Run("leaves an existing pool untouched", func(t *testing.T) {
		store := NewGormInventoryStore(setupInventoryTestDB(t))
		seedPool(t, store, "devices-group", 10)

		require.NoError(t, store.EnsurePool(ctx, "devices-group", "Devices", catalog.UnitPieces, decimal.NewFromInt(99)))

		level, err := store.CurrentLevel(ctx, "devices-group")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(10).Equal(level))
	})
}
