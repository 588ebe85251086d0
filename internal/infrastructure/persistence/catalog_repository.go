package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stockpool/backend/internal/domain/catalog"
	"github.com/stockpool/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormCatalogRepository implements catalog.Reader using GORM. It also
// exposes the write methods the catalog-authoring surface needs; the
// deduction engine only ever sees the Reader interface.
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// Products returns all products
func (r *GormCatalogRepository) Products(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := r.db.WithContext(ctx).Order("sku").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Categories returns all categories
func (r *GormCatalogRepository) Categories(ctx context.Context) ([]catalog.Category, error) {
	var categories []catalog.Category
	if err := r.db.WithContext(ctx).Order("code").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Category returns a single category by ID
func (r *GormCatalogRepository) Category(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	var category catalog.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

// LinkedCategories returns the target categories of the given category's
// outbound links, excluding inactive links unless includeInactive is set.
func (r *GormCatalogRepository) LinkedCategories(ctx context.Context, categoryID uuid.UUID, includeInactive bool) ([]catalog.Category, error) {
	query := r.db.WithContext(ctx).
		Joins("JOIN category_links ON category_links.target_category_id = categories.id").
		Where("category_links.source_category_id = ?", categoryID)
	if !includeInactive {
		query = query.Where("category_links.is_active = ?", true)
	}

	var categories []catalog.Category
	if err := query.Order("categories.code").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// SaveCategory creates or updates a category
func (r *GormCatalogRepository) SaveCategory(ctx context.Context, category *catalog.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

// SaveProduct creates or updates a product
func (r *GormCatalogRepository) SaveProduct(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// SaveLink creates or updates a category link
func (r *GormCatalogRepository) SaveLink(ctx context.Context, link *catalog.CategoryLink) error {
	return r.db.WithContext(ctx).Save(link).Error
}

// Ensure GormCatalogRepository implements catalog.Reader
var _ catalog.Reader = (*GormCatalogRepository)(nil)
