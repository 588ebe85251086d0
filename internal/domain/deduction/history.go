package deduction

import "sync"

// DefaultHistoryLimit bounds the in-memory error history ring
const DefaultHistoryLimit = 100

// ErrorHistory is a bounded, process-wide ring of classified errors,
// newest last. It backs the error-history export consumed by UI and
// reporting collaborators.
type ErrorHistory struct {
	mu     sync.Mutex
	limit  int
	errors []*DeductionError
}

// NewErrorHistory creates a history with the given capacity.
// A non-positive limit falls back to DefaultHistoryLimit.
func NewErrorHistory(limit int) *ErrorHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &ErrorHistory{limit: limit}
}

// Append records an error, evicting the oldest entries beyond the limit
func (h *ErrorHistory) Append(err *DeductionError) {
	if err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.errors = append(h.errors, err)
	if len(h.errors) > h.limit {
		h.errors = h.errors[len(h.errors)-h.limit:]
	}
}

// Snapshot returns a copy of the history, oldest first
func (h *ErrorHistory) Snapshot() []*DeductionError {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*DeductionError, len(h.errors))
	copy(out, h.errors)
	return out
}

// Len returns the number of recorded errors
func (h *ErrorHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.errors)
}

// Clear empties the history
func (h *ErrorHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = nil
}
