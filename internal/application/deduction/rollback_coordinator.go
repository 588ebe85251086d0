package deduction

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	deddomain "github.com/stockpool/backend/internal/domain/deduction"
	"go.uber.org/zap"
)

// RollbackCoordinator keeps the pending compensating operations for an
// in-flight deduction run and replays them as one atomic batch when the
// run fails mid-way. It is invoked by the caller of the executor, not by
// the executor itself. Pending operations are indexed by category group,
// so completing or superseding one is O(1) and unambiguous.
type RollbackCoordinator struct {
	mu         sync.Mutex
	pending    map[string]deddomain.RollbackOperation
	store      deddomain.InventoryStore
	classifier *deddomain.Classifier
	logger     *zap.Logger
}

// NewRollbackCoordinator creates a new RollbackCoordinator
func NewRollbackCoordinator(store deddomain.InventoryStore, classifier *deddomain.Classifier, logger *zap.Logger) *RollbackCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RollbackCoordinator{
		pending:    make(map[string]deddomain.RollbackOperation),
		store:      store,
		classifier: classifier,
		logger:     logger,
	}
}

// TrackOperation registers a compensating operation. Must be called before
// the corresponding store mutation is issued. Tracking a group that is
// already pending supersedes the previous entry.
func (c *RollbackCoordinator) TrackOperation(op deddomain.RollbackOperation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[op.CategoryGroupID] = op
}

// MarkOperationComplete removes a group's pending operation once its store
// mutation is confirmed successful.
func (c *RollbackCoordinator) MarkOperationComplete(categoryGroupID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if op, ok := c.pending[categoryGroupID]; ok {
		op.Completed = true
		delete(c.pending, categoryGroupID)
	}
}

// PendingRollbacks returns the operations that have not been completed or
// rolled back, ordered by category group for deterministic output.
func (c *RollbackCoordinator) PendingRollbacks() []deddomain.RollbackOperation {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]deddomain.RollbackOperation, 0, len(c.pending))
	for _, op := range c.pending {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CategoryGroupID < out[j].CategoryGroupID
	})
	return out
}

// ClearRollbackStack drops all pending operations. Called after a fully
// successful commit, when no compensation can ever be needed.
func (c *RollbackCoordinator) ClearRollbackStack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = make(map[string]deddomain.RollbackOperation)
}

// RollbackOperations restores each operation's original inventory value in
// one atomic batched write. It returns true only when the batch commits;
// on failure a critical-severity error is recorded and the operations stay
// pending, since an un-rolled-back partial deduction is the worst outcome
// this system can produce.
func (c *RollbackCoordinator) RollbackOperations(ctx context.Context, ops []deddomain.RollbackOperation) bool {
	if len(ops) == 0 {
		return true
	}

	levels := make(map[string]decimal.Decimal, len(ops))
	for _, op := range ops {
		levels[op.CategoryGroupID] = op.OriginalValue
	}

	if err := c.store.RestoreLevels(ctx, levels); err != nil {
		classified := c.classifier.Classify(ctx, err, map[string]any{
			"operation": "rollback",
			"groups":    len(levels),
		})
		c.classifier.Escalate(ctx, classified, deddomain.SeverityCritical)
		c.logger.Error("compensating rollback failed",
			zap.Int("groups", len(levels)),
			zap.Error(err),
		)
		return false
	}

	c.mu.Lock()
	for _, op := range ops {
		delete(c.pending, op.CategoryGroupID)
	}
	c.mu.Unlock()

	c.logger.Info("compensating rollback committed", zap.Int("groups", len(levels)))
	return true
}
