package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Reader provides read-only access to the catalog. The deduction engine
// only ever consumes this contract; authoring and validation of catalog
// records happen elsewhere. Link lookups are treated as point-in-time
// snapshots per run and must not be cached across runs.
type Reader interface {
	// Products returns all products in the active catalog snapshot
	Products(ctx context.Context) ([]Product, error)

	// Categories returns all categories in the active catalog snapshot
	Categories(ctx context.Context) ([]Category, error)

	// Category returns a single category by ID
	Category(ctx context.Context, id uuid.UUID) (*Category, error)

	// LinkedCategories returns the target categories of the given category's
	// outbound links. Inactive links are excluded unless includeInactive is set.
	LinkedCategories(ctx context.Context, categoryID uuid.UUID, includeInactive bool) ([]Category, error)
}
