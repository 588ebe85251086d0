package deduction

import (
	deddomain "github.com/stockpool/backend/internal/domain/deduction"
)

// PreviewReport is what a caller confirms before committing a deduction
// run. Nothing behind it has touched inventory.
type PreviewReport struct {
	Items         []deddomain.DeductionLineItem    `json:"items"`
	TotalsByGroup map[string]deddomain.GroupTotal  `json:"totals_by_group"`
	Warnings      []string                         `json:"warnings"`
	Errors        []string                         `json:"errors"`
}

// ExecutionResult is the structured outcome of one deduction run
type ExecutionResult struct {
	Deductions []deddomain.DeductionResult  `json:"deductions"`
	Warnings   []string                     `json:"warnings"`
	Errors     []*deddomain.DeductionError  `json:"errors"`
}

// ProcessResult pairs the enriched order items with the execution result.
// Entry points return this instead of failing, so callers can always
// render partial success. AlreadyProcessed marks a run that was skipped
// because its order reference had been committed before.
type ProcessResult struct {
	EnrichedItems    []deddomain.EnrichedOrderItem `json:"enriched_items"`
	Result           ExecutionResult               `json:"result"`
	AlreadyProcessed bool                          `json:"already_processed,omitempty"`
}

// RecoveryResult reports the outcome of one bounded recovery attempt
type RecoveryResult struct {
	Success          bool     `json:"success"`
	Errors           []string `json:"errors"`
	SuggestedActions []string `json:"suggested_actions"`
}

// Chain is one dependency path through active category links, described
// for display only. Chains beyond the first hop never deduct inventory.
type Chain struct {
	CategoryNames []string `json:"category_names"`
	GroupIDs      []string `json:"group_ids"`
}
