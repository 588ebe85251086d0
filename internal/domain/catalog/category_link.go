package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/stockpool/backend/internal/domain/shared"
)

// CategoryLink is a directed edge between two categories: selling from the
// source category also deducts inventory for the target category. Only
// active links participate in cascade resolution.
type CategoryLink struct {
	shared.BaseEntity
	SourceCategoryID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_category_link_edge,priority:1"`
	TargetCategoryID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_category_link_edge,priority:2"`
	IsActive         bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CategoryLink) TableName() string {
	return "category_links"
}

// NewCategoryLink creates an active link from source to target
func NewCategoryLink(sourceID, targetID uuid.UUID) (*CategoryLink, error) {
	if sourceID == uuid.Nil || targetID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LINK", "Source and target category IDs are required")
	}
	if sourceID == targetID {
		return nil, shared.NewDomainError("INVALID_LINK", "A category cannot link to itself")
	}

	return &CategoryLink{
		BaseEntity:       shared.NewBaseEntity(),
		SourceCategoryID: sourceID,
		TargetCategoryID: targetID,
		IsActive:         true,
	}, nil
}

// Activate enables the link for cascade resolution
func (l *CategoryLink) Activate() {
	l.IsActive = true
	l.UpdatedAt = time.Now()
}

// Deactivate removes the link from cascade resolution without deleting it
func (l *CategoryLink) Deactivate() {
	l.IsActive = false
	l.UpdatedAt = time.Now()
}
