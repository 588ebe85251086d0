package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/stockpool/backend/internal/domain/shared"
)

// Product represents a sellable product/SKU in the catalog
type Product struct {
	shared.BaseEntity
	SKU        string     `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name       string     `gorm:"type:varchar(200);not null"`
	CategoryID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product
func NewProduct(sku, name string) (*Product, error) {
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "Product SKU cannot be empty")
	}
	if len(sku) > 50 {
		return nil, shared.NewDomainError("INVALID_SKU", "Product SKU cannot exceed 50 characters")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}

	return &Product{
		BaseEntity: shared.NewBaseEntity(),
		SKU:        strings.ToUpper(sku),
		Name:       name,
	}, nil
}

// AssignCategory places the product in a category
func (p *Product) AssignCategory(categoryID uuid.UUID) error {
	if categoryID == uuid.Nil {
		return shared.NewDomainError("INVALID_CATEGORY", "Category ID cannot be empty")
	}
	p.CategoryID = &categoryID
	return nil
}

// HasCategory returns true if the product belongs to a category
func (p *Product) HasCategory() bool {
	return p.CategoryID != nil && *p.CategoryID != uuid.Nil
}
