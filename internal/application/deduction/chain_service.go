package deduction

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stockpool/backend/internal/domain/catalog"
	"go.uber.org/zap"
)

// MaxChainDepth caps dependency chain traversal. Catalogs should never be
// this deep; the cap only guards against pathological link graphs.
const MaxChainDepth = 10

// ChainService describes multi-hop dependency chains (A→B→C) through
// active category links. The description is for display and diagnostics
// only: deduction itself remains strictly single-hop.
type ChainService struct {
	catalog catalog.Reader
	logger  *zap.Logger
}

// NewChainService creates a new ChainService
func NewChainService(reader catalog.Reader, logger *zap.Logger) *ChainService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainService{catalog: reader, logger: logger}
}

// DependencyChains returns every maximal active-link path starting at the
// given category. Cycles are cut at the first revisited category.
func (s *ChainService) DependencyChains(ctx context.Context, categoryID uuid.UUID) ([]Chain, error) {
	root, err := s.catalog.Category(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("resolving chain root: %w", err)
	}

	visited := map[uuid.UUID]bool{root.ID: true}
	var chains []Chain
	err = s.walk(ctx, *root, []catalog.Category{*root}, visited, &chains)
	if err != nil {
		return nil, err
	}
	return chains, nil
}

func (s *ChainService) walk(ctx context.Context, current catalog.Category, path []catalog.Category, visited map[uuid.UUID]bool, chains *[]Chain) error {
	if len(path) > MaxChainDepth {
		*chains = append(*chains, toChain(path))
		return nil
	}

	linked, err := s.catalog.LinkedCategories(ctx, current.ID, false)
	if err != nil {
		return fmt.Errorf("walking links of %s: %w", current.Name, err)
	}

	extended := false
	for _, next := range linked {
		if visited[next.ID] {
			continue
		}
		extended = true
		visited[next.ID] = true
		nextPath := make([]catalog.Category, len(path), len(path)+1)
		copy(nextPath, path)
		if err := s.walk(ctx, next, append(nextPath, next), visited, chains); err != nil {
			return err
		}
		delete(visited, next.ID)
	}

	// A path that cannot be extended is a maximal chain; single-node
	// paths (no outbound links at all) are not worth reporting.
	if !extended && len(path) > 1 {
		*chains = append(*chains, toChain(path))
	}
	return nil
}

func toChain(path []catalog.Category) Chain {
	chain := Chain{
		CategoryNames: make([]string, 0, len(path)),
		GroupIDs:      make([]string, 0, len(path)),
	}
	for _, cat := range path {
		chain.CategoryNames = append(chain.CategoryNames, cat.Name)
		chain.GroupIDs = append(chain.GroupIDs, cat.CategoryGroupID)
	}
	return chain
}
