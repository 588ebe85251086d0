package deduction

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/stockpool/backend/internal/domain/catalog"
)

// mockCatalog is a testify mock of catalog.Reader
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
