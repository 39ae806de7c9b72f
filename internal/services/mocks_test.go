package services

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tresorerie/backend/internal/models"
)

type MockDocumentCascader struct {
	mock.Mock
}

func (m *MockDocumentCascader) CascadeDeleteForTransaction(ctx context.Context, transactionID string) error {
	args := m.Called(ctx, transactionID)
	return args.Error(0)
}

type MockStatsCache struct {
	mock.Mock
}

func (m *MockStatsCache) Get(ctx context.Context, f models.StatsFilter) (*models.Stats, int64, bool) {
	args := m.Called(ctx, f)
	gen := args.Get(1).(int64)
	if args.Get(0) == nil {
		return nil, gen, args.Bool(2)
	}
	return args.Get(0).(*models.Stats), gen, args.Bool(2)
}

func (m *MockStatsCache) Set(ctx context.Context, f models.StatsFilter, gen int64, stats models.Stats) {
	m.Called(ctx, f, gen, stats)
}

func (m *MockStatsCache) Invalidate(ctx context.Context) {
	m.Called(ctx)
}
