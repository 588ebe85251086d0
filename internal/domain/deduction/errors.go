package deduction

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrorType classifies where a deduction failure came from
type ErrorType string

const (
	ErrorTypeNetwork               ErrorType = "network"
	ErrorTypeInsufficientInventory ErrorType = "insufficient_inventory"
	ErrorTypeValidation            ErrorType = "validation"
	ErrorTypeStore                 ErrorType = "store"
	ErrorTypeUnknown               ErrorType = "unknown"
)

// Severity grades how bad a deduction failure is. Severity and
// recoverability are independent: a store permission failure is high
// severity and unrecoverable, a store quota failure is high severity
// but recoverable.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DeductionError is a classified deduction failure. It is created at
// classification time and never mutated afterwards.
type DeductionError struct {
	ID               uuid.UUID      `json:"id"`
	Timestamp        time.Time      `json:"timestamp"`
	Type             ErrorType      `json:"error_type"`
	Severity         Severity       `json:"severity"`
	Message          string         `json:"message"`
	Context          map[string]any `json:"context,omitempty"`
	Recoverable      bool           `json:"recoverable"`
	SuggestedActions []string       `json:"suggested_actions"`
}

// Error implements the error interface
func (e *DeductionError) Error() string {
	return e.Message
}

// classification is the typed outcome of one matched rule
type classification struct {
	errType          ErrorType
	severity         Severity
	recoverable      bool
	suggestedActions []string
}

// classificationRule pairs a message predicate with its outcome. Rules are
// evaluated in order; the first match wins, which keeps classification
// deterministic and independently testable.
type classificationRule struct {
	name    string
	matches func(msg string) bool
	outcome classification
}

func containsAny(msg string, substrings ...string) bool {
	for _, s := range substrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// classificationRules is the ordered rule list. Order matters: the store
// permission and quota rules must run before the generic validation rule,
// and the insufficiency rule before anything that could shadow it.
var classificationRules = []classificationRule{
	{
		name: "network",
		matches: func(msg string) bool {
			return containsAny(msg, "timeout", "timed out", "connection", "network", "unavailable", "deadline exceeded")
		},
		outcome: classification{
			errType:     ErrorTypeNetwork,
			severity:    SeverityMedium,
			recoverable: true,
			suggestedActions: []string{
				"Check network connectivity",
				"Retry the operation",
			},
		},
	},
	{
		name: "insufficient_inventory",
		matches: func(msg string) bool {
			return containsAny(msg, "insufficient", "not enough")
		},
		outcome: classification{
			errType:     ErrorTypeInsufficientInventory,
			severity:    SeverityLow,
			recoverable: true,
			suggestedActions: []string{
				"Check current inventory levels",
				"Consider partial fulfilment",
			},
		},
	},
	{
		name: "store_permission",
		matches: func(msg string) bool {
			return containsAny(msg, "permission-denied", "permission denied", "unauthorized")
		},
		outcome: classification{
			errType:     ErrorTypeStore,
			severity:    SeverityHigh,
			recoverable: false,
			suggestedActions: []string{
				"Verify store credentials and access rules",
				"Contact an administrator",
			},
		},
	},
	{
		name: "store_quota",
		matches: func(msg string) bool {
			return containsAny(msg, "quota", "resource-exhausted", "rate limit", "too many requests")
		},
		outcome: classification{
			errType:     ErrorTypeStore,
			severity:    SeverityHigh,
			recoverable: true,
			suggestedActions: []string{
				"Reduce the deduction batch size",
				"Retry after a short delay",
			},
		},
	},
	{
		name: "validation",
		matches: func(msg string) bool {
			return containsAny(msg, "invalid", "malformed", "validation")
		},
		outcome: classification{
			errType:     ErrorTypeValidation,
			severity:    SeverityLow,
			recoverable: true,
			suggestedActions: []string{
				"Check the order item data for malformed values",
			},
		},
	},
}

// unknownClassification is the fallback when no rule matches
var unknownClassification = classification{
	errType:     ErrorTypeUnknown,
	severity:    SeverityMedium,
	recoverable: true,
	suggestedActions: []string{
		"Inspect the error message and context",
		"Retry the operation manually",
	},
}

// Classifier turns raised failures into typed DeductionErrors, records
// them in the bounded process-wide history, and mirrors them to the audit
// sink. Audit failures are swallowed: classification side effects must
// never propagate.
type Classifier struct {
	history *ErrorHistory
	audit   AuditSink
	logger  *zap.Logger
}

// NewClassifier creates a classifier backed by the given history and sink
func NewClassifier(history *ErrorHistory, audit AuditSink, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{history: history, audit: audit, logger: logger}
}

// Classify maps err to a DeductionError. The same message always yields
// the same type/severity/recoverable triple.
func (c *Classifier) Classify(ctx context.Context, err error, errCtx map[string]any) *DeductionError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	outcome := unknownClassification
	for _, rule := range classificationRules {
		if rule.matches(strings.ToLower(msg)) {
			outcome = rule.outcome
			break
		}
	}

	classified := &DeductionError{
		ID:               uuid.New(),
		Timestamp:        time.Now(),
		Type:             outcome.errType,
		Severity:         outcome.severity,
		Message:          msg,
		Context:          errCtx,
		Recoverable:      outcome.recoverable,
		SuggestedActions: outcome.suggestedActions,
	}

	if c.history != nil {
		c.history.Append(classified)
	}
	c.capture(ctx, classified)

	c.logger.Warn("deduction error classified",
		zap.String("error_id", classified.ID.String()),
		zap.String("error_type", string(classified.Type)),
		zap.String("severity", string(classified.Severity)),
		zap.Bool("recoverable", classified.Recoverable),
		zap.String("message", msg),
	)

	return classified
}

// Escalate re-records a classified error at a higher severity. Used by the
// rollback path, where a failed compensating write is always critical.
func (c *Classifier) Escalate(ctx context.Context, classified *DeductionError, severity Severity) *DeductionError {
	escalated := &DeductionError{
		ID:               uuid.New(),
		Timestamp:        time.Now(),
		Type:             classified.Type,
		Severity:         severity,
		Message:          classified.Message,
		Context:          classified.Context,
		Recoverable:      classified.Recoverable,
		SuggestedActions: classified.SuggestedActions,
	}
	if c.history != nil {
		c.history.Append(escalated)
	}
	c.capture(ctx, escalated)
	return escalated
}

func (c *Classifier) capture(ctx context.Context, classified *DeductionError) {
	if c.audit == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("audit sink panicked while capturing error", zap.Any("panic", r))
		}
	}()
	c.audit.CaptureError(ctx, classified)
}
