package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kpoppel/go-eforsyning/pkg/storage"
	"github.com/kpoppel/go-eforsyning/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetSnapshot(ctx context.Context, key string) (types.Snapshot, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(types.Snapshot), args.Error(1)
}

func (m *MockDatabase) SaveSnapshot(ctx context.Context, snap types.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *MockDatabase) ListSnapshots(ctx context.Context) ([]types.Snapshot, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]types.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
