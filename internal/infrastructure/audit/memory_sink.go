package audit

import (
	"context"
	"sync"

	"github.com/stockpool/backend/internal/domain/deduction"
)

// MemorySink collects audit records in memory for inspection in tests.
type MemorySink struct {
	mu     sync.Mutex
	errors []*deduction.DeductionError
	events []TrackedEvent
}

// TrackedEvent is a single recorded business event.
type TrackedEvent struct {
	Name    string
	Payload map[string]any
}

// NewMemorySink creates an empty in-memory audit sink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) CaptureError(_ context.Context, err *deduction.DeductionError) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, err)
}

func (s *MemorySink) TrackEvent(_ context.Context, name string, payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, TrackedEvent{Name: name, Payload: payload})
}

// Errors returns a copy of the captured errors
func (s *MemorySink) Errors() []*deduction.DeductionError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*deduction.DeductionError, len(s.errors))
	copy(out, s.errors)
	return out
}

// Events returns a copy of the tracked events
func (s *MemorySink) Events() []TrackedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TrackedEvent, len(s.events))
	copy(out, s.events)
	return out
}

var _ deduction.AuditSink = (*MemorySink)(nil)
