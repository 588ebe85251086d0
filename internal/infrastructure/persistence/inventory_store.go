package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/stockpool/backend/internal/domain/catalog"
	"github.com/stockpool/backend/internal/domain/deduction"
	"github.com/stockpool/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryPool is the per-category-group inventory counter. It is the
// shared resource every deduction run ultimately mutates.
type InventoryPool struct {
	shared.BaseEntity
	GroupID      string                `gorm:"type:varchar(100);not null;uniqueIndex"`
	Label        string                `gorm:"type:varchar(200);not null"`
	Unit         catalog.InventoryUnit `gorm:"type:varchar(10);not null;default:'pcs'"`
	CurrentLevel decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryPool) TableName() string {
	return "inventory_pools"
}

// MovementType distinguishes deductions from compensating restores
type MovementType string

const (
	MovementDeduction MovementType = "deduction"
	MovementRestore   MovementType = "restore"
)

// InventoryMovement is the durable audit record of one pool mutation
type InventoryMovement struct {
	shared.BaseEntity
	GroupID              string          `gorm:"type:varchar(100);not null;index"`
	Type                 MovementType    `gorm:"type:varchar(20);not null"`
	Quantity             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PreviousLevel        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NewLevel             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OrderReference       string          `gorm:"type:varchar(100);index"`
	TransactionReference string          `gorm:"type:varchar(100);index"`
}

// TableName returns the table name for GORM
func (InventoryMovement) TableName() string {
	return "inventory_movements"
}

// GormInventoryStore implements deduction.InventoryStore over the
// inventory_pools table. One DeductFromOrder call is one transaction:
// groups are locked in deterministic order, applied independently, and
// per-group insufficiency is reported in the outcome rather than aborting
// groups that fit.
type GormInventoryStore struct {
	db *gorm.DB
}

// NewGormInventoryStore creates a new GormInventoryStore
func NewGormInventoryStore(db *gorm.DB) *GormInventoryStore {
	return &GormInventoryStore{db: db}
}

// DeductFromOrder aggregates the line items by category group and applies
// the per-group totals as a single batch.
func (s *GormInventoryStore) DeductFromOrder(ctx context.Context, lines []deduction.DeductionLineItem) (*deduction.DeductionOutcome, error) {
	outcome := &deduction.DeductionOutcome{
		Deductions: []deduction.DeductionResult{},
		Warnings:   []string{},
		Errors:     []deduction.GroupError{},
	}
	if len(lines) == 0 {
		return outcome, nil
	}

	totals := deduction.SortedGroupTotals(deduction.AggregateByGroup(lines))
	orderRef, txRef := references(lines)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, total := range totals {
			var pool InventoryPool
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&pool, "group_id = ?", total.CategoryGroupID).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					outcome.Errors = append(outcome.Errors, deduction.GroupError{
						CategoryGroupID:   total.CategoryGroupID,
						Err:               fmt.Sprintf("no inventory pool configured for %s", total.CategoryGroupID),
						RequestedQuantity: total.TotalQuantity,
						Reason:            "pool_not_found",
					})
					continue
				}
				return err
			}

			if pool.CurrentLevel.LessThan(total.TotalQuantity) {
				outcome.Errors = append(outcome.Errors, deduction.GroupError{
					CategoryGroupID: total.CategoryGroupID,
					Err: fmt.Sprintf("Insufficient inventory for %s: requested %s, available %s",
						total.CategoryGroupID, total.TotalQuantity.String(), pool.CurrentLevel.String()),
					RequestedQuantity: total.TotalQuantity,
					Reason:            "insufficient_inventory",
				})
				continue
			}

			previous := pool.CurrentLevel
			pool.CurrentLevel = pool.CurrentLevel.Sub(total.TotalQuantity)
			if err := tx.Model(&pool).Update("current_level", pool.CurrentLevel).Error; err != nil {
				return err
			}

			movement := InventoryMovement{
				BaseEntity:           shared.NewBaseEntity(),
				GroupID:              total.CategoryGroupID,
				Type:                 MovementDeduction,
				Quantity:             total.TotalQuantity,
				PreviousLevel:        previous,
				NewLevel:             pool.CurrentLevel,
				OrderReference:       orderRef,
				TransactionReference: txRef,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}

			outcome.Deductions = append(outcome.Deductions, deduction.DeductionResult{
				CategoryGroupID:   total.CategoryGroupID,
				RequestedQuantity: total.TotalQuantity,
				DeductedQuantity:  total.TotalQuantity,
				NewInventoryLevel: pool.CurrentLevel,
				MovementID:        movement.ID,
			})
			if pool.CurrentLevel.IsZero() {
				outcome.Warnings = append(outcome.Warnings,
					fmt.Sprintf("inventory pool %s is now empty", total.CategoryGroupID))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("deduction batch failed: %w", err)
	}
	return outcome, nil
}

// CurrentLevel reads the current inventory level of a category group
func (s *GormInventoryStore) CurrentLevel(ctx context.Context, categoryGroupID string) (decimal.Decimal, error) {
	var pool InventoryPool
	if err := s.db.WithContext(ctx).First(&pool, "group_id = ?", categoryGroupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, shared.ErrNotFound
		}
		return decimal.Zero, err
	}
	return pool.CurrentLevel, nil
}

// RestoreLevels sets each group's level back to the given value in one
// transaction. Unlike DeductFromOrder, any missing pool aborts the whole
// batch: a compensating write must be all-or-nothing.
func (s *GormInventoryStore) RestoreLevels(ctx context.Context, levels map[string]decimal.Decimal) error {
	if len(levels) == 0 {
		return nil
	}

	groupIDs := make([]string, 0, len(levels))
	for groupID := range levels {
		groupIDs = append(groupIDs, groupID)
	}
	sort.Strings(groupIDs)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, groupID := range groupIDs {
			var pool InventoryPool
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&pool, "group_id = ?", groupID).Error
			if err != nil {
				return fmt.Errorf("restoring %s: %w", groupID, err)
			}

			previous := pool.CurrentLevel
			target := levels[groupID]
			if err := tx.Model(&pool).Update("current_level", target).Error; err != nil {
				return fmt.Errorf("restoring %s: %w", groupID, err)
			}

			movement := InventoryMovement{
				BaseEntity:    shared.NewBaseEntity(),
				GroupID:       groupID,
				Type:          MovementRestore,
				Quantity:      target.Sub(previous),
				PreviousLevel: previous,
				NewLevel:      target,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return fmt.Errorf("restoring %s: %w", groupID, err)
			}
		}
		return nil
	})
}

// EnsurePool creates the pool for a category group if it does not exist,
// otherwise leaves it untouched. Used by seeding and admin surfaces.
func (s *GormInventoryStore) EnsurePool(ctx context.Context, groupID, label string, unit catalog.InventoryUnit, level decimal.Decimal) error {
	pool := InventoryPool{
		BaseEntity:   shared.NewBaseEntity(),
		GroupID:      groupID,
		Label:        label,
		Unit:         unit,
		CurrentLevel: level,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}},
			DoNothing: true,
		}).
		Create(&pool).Error
}

// references picks the order and transaction references carried by the
// line items; all lines of one call share them.
func references(lines []deduction.DeductionLineItem) (string, string) {
	for _, line := range lines {
		if line.OrderReference != "" || line.TransactionReference != "" {
			return line.OrderReference, line.TransactionReference
		}
	}
	return "", ""
}

// Ensure GormInventoryStore implements deduction.InventoryStore
var _ deduction.InventoryStore = (*GormInventoryStore)(nil)
