package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockpool/backend/internal/domain/catalog"
	"github.com/stockpool/backend/internal/domain/shared"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&catalog.Category{}, &catalog.CategoryLink{}, &catalog.Product{}))
	return db
}

func saveCategory(t *testing.T, repo *GormCatalogRepository, code, name, group string, perUnit int64) *catalog.Category {
	t.Helper()
	category, err := catalog.NewCategory(code, name)
	require.NoError(t, err)
	if group != "" {
		require.NoError(t, category.ConfigureDeduction(group, decimal.NewFromInt(perUnit), catalog.UnitPieces))
	}
	require.NoError(t, repo.SaveCategory(context.Background(), category))
	return category
}

func saveLink(t *testing.T, repo *GormCatalogRepository, source, target uuid.UUID, active bool) {
	t.Helper()
	link, err := catalog.NewCategoryLink(source, target)
	require.NoError(t, err)
	if !active {
		link.Deactivate()
	}
	require.NoError(t, repo.SaveLink(context.Background(), link))
}

func TestCatalogRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips products and categories", func(t *testing.T) {
		repo := NewGormCatalogRepository(setupCatalogTestDB(t))
		devices := saveCategory(t, repo, "DEVICES", "Devices", "devices-group", 1)

		product, err := catalog.NewProduct("PHONE-001", "Smartphone X")
		require.NoError(t, err)
		require.NoError(t, product.AssignCategory(devices.ID))
		require.NoError(t, repo.SaveProduct(ctx, product))

		products, err := repo.Products(ctx)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "PHONE-001", products[0].SKU)

		categories, err := repo.Categories(ctx)
		require.NoError(t, err)
		require.Len(t, categories, 1)
		assert.True(t, categories[0].DeductionReady())
	})

	t.Run("category lookup maps missing rows to not found", func(t *testing.T) {
		repo := NewGormCatalogRepository(setupCatalogTestDB(t))
		_, err := repo.Category(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("finds a category by ID", func(t *testing.T) {
		repo := NewGormCatalogRepository(setupCatalogTestDB(t))
		devices := saveCategory(t, repo, "DEVICES", "Devices", "", 0)

		found, err := repo.Category(ctx, devices.ID)
		require.NoError(t, err)
		assert.Equal(t, "Devices", found.Name)
	})
}

func TestLinkedCategories(t *testing.T) {
	ctx := context.Background()

	t.Run("returns only active outbound links by default", func(t *testing.T) {
		repo := NewGormCatalogRepository(setupCatalogTestDB(t))
		devices := saveCategory(t, repo, "DEVICES", "Devices", "devices-group", 1)
		battery := saveCategory(t, repo, "BATTERY", "Batteries", "battery-group", 2)
		accessories := saveCategory(t, repo, "ACCESSORIES", "Accessories", "accessories-group", 1)

		saveLink(t, repo, devices.ID, battery.ID, true)
		saveLink(t, repo, devices.ID, accessories.ID, false)

		linked, err := repo.LinkedCategories(ctx, devices.ID, false)
		require.NoError(t, err)
		require.Len(t, linked, 1)
		assert.Equal(t, "Batteries", linked[0].Name)
	})

	t.Run("includes inactive links on request", func(t *testing.T) {
		repo := NewGormCatalogRepository(setupCatalogTestDB(t))
		devices := saveCategory(t, repo, "DEVICES", "Devices", "devices-group", 1)
		battery := saveCategory(t, repo, "BATTERY", "Batteries", "battery-group", 2)

		saveLink(t, repo, devices.ID, battery.ID, false)

		linked, err := repo.LinkedCategories(ctx, devices.ID, true)
		require.NoError(t, err)
		require.Len(t, linked, 1)
	})

	t.Run("link direction matters", func(t *testing.T) {
		repo := NewGormCatalogRepository(setupCatalogTestDB(t))
		devices := saveCategory(t, repo, "DEVICES", "Devices", "devices-group", 1)
		battery := saveCategory(t, repo, "BATTERY", "Batteries", "battery-group", 2)

		saveLink(t, repo, devices.ID, battery.ID, true)

		linked, err := repo.LinkedCategories(ctx, battery.ID, false)
		require.NoError(t, err)
		assert.Empty(t, linked)
	})
}
