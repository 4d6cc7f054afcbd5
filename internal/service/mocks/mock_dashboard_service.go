package mocks

import (
	"context"

	"appstore/internal/model"
	"appstore/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockDashboardService struct {
	mock.Mock
}

var _ service.DashboardService = (*MockDashboardService)(nil)

func (m *MockDashboardService) Get(ctx context.Context) (*model.DashboardLayout, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DashboardLayout), args.Error(1)
}

func (m *MockDashboardService) Save(ctx context.Context, widgets []model.Widget) (*model.DashboardLayout, error) {
	args := m.Called(ctx, widgets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DashboardLayout), args.Error(1)
}
