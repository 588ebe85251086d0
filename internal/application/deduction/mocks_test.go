package deduction

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/stockpool/backend/internal/domain/catalog"
	deddomain "github.com/stockpool/backend/internal/domain/deduction"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Products(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *mockCatalog) Categories(ctx context.Context) ([]catalog.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *mockCatalog) Category(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *mockCatalog) LinkedCategories(ctx context.Context, categoryID uuid.UUID, includeInactive bool) ([]catalog.Category, error) {
	args := m.Called(ctx, categoryID, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Category), args.Error(1)
}

var _ catalog.Reader = (*mockCatalog)(nil)

type mockInventoryStore struct {
	mock.Mock
}

func (m *mockInventoryStore) DeductFromOrder(ctx context.Context, lines []deddomain.DeductionLineItem) (*deddomain.DeductionOutcome, error) {
	args := m.Called(ctx, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deddomain.DeductionOutcome), args.Error(1)
}

func (m *mockInventoryStore) CurrentLevel(ctx context.Context, categoryGroupID string) (decimal.Decimal, error) {
	args := m.Called(ctx, categoryGroupID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockInventoryStore) RestoreLevels(ctx context.Context, levels map[string]decimal.Decimal) error {
	args := m.Called(ctx, levels)
	return args.Error(0)
}

var _ deddomain.InventoryStore = (*mockInventoryStore)(nil)

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, reference string) (bool, error) {
	args := m.Called(ctx, reference)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, reference string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, reference, ttl)
	return args.Bool(0), args.Error(1)
}

var _ IdempotencyStore = (*mockIdempotencyStore)(nil)

// recordingSink is a thread-safe in-memory audit sink
type recordingSink struct {
	mu       sync.Mutex
	captured []*deddomain.DeductionError
	events   []string
}

func (s *recordingSink) CaptureError(_ context.Context, err *deddomain.DeductionError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captured = append(s.captured, err)
}

func (s *recordingSink) TrackEvent(_ context.Context, name string, _ map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, name)
}

func (s *recordingSink) eventNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out
}

var _ deddomain.AuditSink = (*recordingSink)(nil)
