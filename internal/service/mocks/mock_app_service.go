package mocks

import (
	"context"
	"io"

	"appstore/internal/model"
	"appstore/internal/service"
	"appstore/internal/storage"
	"github.com/stretchr/testify/mock"
)

type MockAppService struct {
	mock.Mock
}

var _ service.AppService = (*MockAppService)(nil)

func (m *MockAppService) List(ctx context.Context, limit, offset int) (*service.ListResult[model.App], error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.App]), args.Error(1)
}

func (m *MockAppService) Create(ctx context.Context, in service.CreateAppInput) (*model.App, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.App), args.Error(1)
}

func (m *MockAppService) UpdateSourceCode(ctx context.Context, appID, sourceCode string) (*model.App, error) {
	args := m.Called(ctx, appID, sourceCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.App), args.Error(1)
}

func (m *MockAppService) ListPublished(ctx context.Context, limit, offset int) (*service.ListResult[model.App], error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.App]), args.Error(1)
}

func (m *MockAppService) BundleURL(ctx context.Context, appID string) (string, error) {
	args := m.Called(ctx, appID)
	return args.String(0), args.Error(1)
}

func (m *MockAppService) Bundle(ctx context.Context, appID string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, appID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.ObjectInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}
