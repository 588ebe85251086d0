package deduction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	deddomain "github.com/stockpool/backend/internal/domain/deduction"
	"go.uber.org/zap"
)

// Context keys used inside DeductionError.Context. RetryOperationKey holds
// a RetryFunc capturing the original failed store call so the recovery
// manager can replay it.
const (
	RetryOperationKey    = "retry_operation"
	OrderReferenceKey    = "order_reference"
	CategoryGroupKey     = "category_group_id"
	RequestedQuantityKey = "requested_quantity"
)

// RetryFunc replays the original failed operation
type RetryFunc func(ctx context.Context) error

// IdempotencyStore guards against processing the same order reference
// twice. Implementations are best-effort: a guard failure degrades to a
// warning, never to a lost deduction.
type IdempotencyStore interface {
	IsProcessed(ctx context.Context, reference string) (bool, error)
	MarkProcessed(ctx context.Context, reference string, ttl time.Duration) (bool, error)
}

// ExecutorService orchestrates enrichment, calculation, and the atomic
// multi-group deduction against the inventory store. It always returns a
// structured result; store failures are classified, never re-raised.
type ExecutorService struct {
	calculator     *deddomain.Calculator
	store          deddomain.InventoryStore
	classifier     *deddomain.Classifier
	audit          deddomain.AuditSink
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// NewExecutorService creates a new ExecutorService
func NewExecutorService(
	calculator *deddomain.Calculator,
	store deddomain.InventoryStore,
	classifier *deddomain.Classifier,
	audit deddomain.AuditSink,
	logger *zap.Logger,
) *ExecutorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecutorService{
		calculator:     calculator,
		store:          store,
		classifier:     classifier,
		audit:          audit,
		idempotencyTTL: 24 * time.Hour,
		logger:         logger,
	}
}

// SetIdempotencyStore enables the order-reference process-once guard
func (s *ExecutorService) SetIdempotencyStore(store IdempotencyStore, ttl time.Duration) {
	s.idempotency = store
	if ttl > 0 {
		s.idempotencyTTL = ttl
	}
}

// Process converts the order items into deduction line items and delegates
// them to the inventory store as one atomic multi-group deduction. Empty
// input short-circuits to an empty successful result with no store call.
func (s *ExecutorService) Process(ctx context.Context, items []deddomain.OrderItem, orderReference string) *ProcessResult {
	result := &ProcessResult{
		EnrichedItems: []deddomain.EnrichedOrderItem{},
		Result: ExecutionResult{
			Deductions: []deddomain.DeductionResult{},
			Warnings:   []string{},
			Errors:     []*deddomain.DeductionError{},
		},
	}
	if len(items) == 0 {
		return result
	}

	enriched, err := s.calculator.Enrich(ctx, items)
	if err != nil {
		classified := s.classifier.Classify(ctx, err, map[string]any{
			OrderReferenceKey: orderReference,
		})
		result.Result.Errors = append(result.Result.Errors, classified)
		return result
	}
	result.EnrichedItems = enriched

	lines, warnings := s.calculator.Lines(ctx, enriched)
	result.Result.Warnings = append(result.Result.Warnings, warnings...)
	if len(lines) == 0 {
		result.Result.Warnings = append(result.Result.Warnings,
			"no order items triggered automatic deduction")
		return result
	}

	// The store receives the raw line item list; it owns aggregation of
	// concurrent group writes.
	transactionReference := uuid.NewString()
	for i := range lines {
		if orderReference != "" {
			lines[i].OrderReference = orderReference
		}
		lines[i].TransactionReference = transactionReference
	}

	if s.alreadyProcessed(ctx, orderReference) {
		result.AlreadyProcessed = true
		result.Result.Warnings = append(result.Result.Warnings,
			fmt.Sprintf("order reference %s was already processed; deduction skipped", orderReference))
		return result
	}

	outcome, err := s.store.DeductFromOrder(ctx, lines)
	if err != nil {
		classified := s.classifier.Classify(ctx, err, map[string]any{
			OrderReferenceKey: orderReference,
			"line_count":      len(lines),
			RetryOperationKey: RetryFunc(func(ctx context.Context) error {
				_, retryErr := s.store.DeductFromOrder(ctx, lines)
				return retryErr
			}),
		})
		result.Result.Errors = append(result.Result.Errors, classified)
		return result
	}

	result.Result.Deductions = append(result.Result.Deductions, outcome.Deductions...)
	result.Result.Warnings = append(result.Result.Warnings, outcome.Warnings...)

	// Per-group failures are reported by the store inside the outcome;
	// surface them classified, without special-casing.
	for _, groupErr := range outcome.Errors {
		classified := s.classifier.Classify(ctx, fmt.Errorf("%s", groupErr.Err), map[string]any{
			OrderReferenceKey:    orderReference,
			CategoryGroupKey:     groupErr.CategoryGroupID,
			RequestedQuantityKey: groupErr.RequestedQuantity.String(),
			"reason":             groupErr.Reason,
		})
		result.Result.Errors = append(result.Result.Errors, classified)
	}

	if len(outcome.Errors) == 0 {
		s.markProcessed(ctx, orderReference)
	}

	s.trackEvent(ctx, "deduction_processed", map[string]any{
		"order_reference": orderReference,
		"order_items":     len(items),
		"line_items":      len(lines),
		"groups_deducted": len(outcome.Deductions),
		"groups_failed":   len(outcome.Errors),
	})

	s.logger.Info("deduction batch processed",
		zap.String("order_reference", orderReference),
		zap.String("transaction_reference", transactionReference),
		zap.Int("groups_deducted", len(outcome.Deductions)),
		zap.Int("groups_failed", len(outcome.Errors)),
	)
	return result
}

func (s *ExecutorService) alreadyProcessed(ctx context.Context, reference string) bool {
	if s.idempotency == nil || reference == "" {
		return false
	}
	processed, err := s.idempotency.IsProcessed(ctx, reference)
	if err != nil {
		s.logger.Warn("idempotency check failed, continuing without guard",
			zap.String("order_reference", reference), zap.Error(err))
		return false
	}
	return processed
}

func (s *ExecutorService) markProcessed(ctx context.Context, reference string) {
	if s.idempotency == nil || reference == "" {
		return
	}
	if _, err := s.idempotency.MarkProcessed(ctx, reference, s.idempotencyTTL); err != nil {
		s.logger.Warn("failed to mark order reference as processed",
			zap.String("order_reference", reference), zap.Error(err))
	}
}

func (s *ExecutorService) trackEvent(ctx context.Context, name string, payload map[string]any) {
	if s.audit == nil {
		return
	}
	defer func() {
		// The audit sink is best-effort; a panicking sink must not take
		// down a committed deduction.
		_ = recover()
	}()
	s.audit.TrackEvent(ctx, name, payload)
}
