package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockpool/backend/internal/domain/shared"
)

// InventoryUnit is the unit a category's inventory pool is counted in
type InventoryUnit string

const (
	UnitKilogram InventoryUnit = "kg"
	UnitGram     InventoryUnit = "g"
	UnitPieces   InventoryUnit = "pcs"
)

// DefaultUnit is used when a category does not declare a unit
const DefaultUnit = UnitPieces

// IsValid returns true for a known inventory unit
func (u InventoryUnit) IsValid() bool {
	switch u {
	case UnitKilogram, UnitGram, UnitPieces:
		return true
	}
	return false
}

// Category represents a product category in the catalog.
// A category may point at a shared inventory pool (its category group)
// and declare how much of that pool one sold unit consumes.
type Category struct {
	shared.BaseEntity
	Code                       string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name                       string          `gorm:"type:varchar(100);not null"`
	CategoryGroupID            string          `gorm:"type:varchar(100);index"`
	InventoryUnit              InventoryUnit   `gorm:"type:varchar(10);not null;default:'pcs'"`
	InventoryDeductionQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a new category
func NewCategory(code, name string) (*Category, error) {
	if err := validateCategoryCode(code); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}

	return &Category{
		BaseEntity:                 shared.NewBaseEntity(),
		Code:                       strings.ToUpper(code),
		Name:                       name,
		InventoryUnit:              DefaultUnit,
		InventoryDeductionQuantity: decimal.Zero,
	}, nil
}

// ConfigureDeduction enables automatic inventory deduction for this category.
// A category deducts from the given category group, consuming quantityPerUnit
// of the pool for every unit sold.
func (c *Category) ConfigureDeduction(groupID string, quantityPerUnit decimal.Decimal, unit InventoryUnit) error {
	if groupID == "" {
		return shared.NewDomainError("INVALID_GROUP", "Category group ID cannot be empty")
	}
	if quantityPerUnit.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Deduction quantity must be positive")
	}
	if !unit.IsValid() {
		return shared.NewDomainError("INVALID_UNIT", "Inventory unit must be one of kg, g, pcs")
	}

	c.CategoryGroupID = groupID
	c.InventoryDeductionQuantity = quantityPerUnit
	c.InventoryUnit = unit
	c.UpdatedAt = time.Now()

	return nil
}

// DeductionReady returns true when the category has both a positive
// deduction quantity and a category group to deduct from.
func (c *Category) DeductionReady() bool {
	return c.InventoryDeductionQuantity.GreaterThan(decimal.Zero) && c.CategoryGroupID != ""
}

// Unit returns the category's inventory unit, falling back to pcs when unset
func (c *Category) Unit() InventoryUnit {
	if c.InventoryUnit.IsValid() {
		return c.InventoryUnit
	}
	return DefaultUnit
}

func validateCategoryCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Category code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Category code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Category code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}
