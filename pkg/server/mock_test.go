package server

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kpoppel/go-eforsyning/pkg/types"
)

type mockPoller struct {
	mock.Mock
}

func (m *mockPoller) Poll(ctx context.Context) (types.Snapshot, types.Outcome, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.Snapshot), args.Get(1).(types.Outcome), args.Error(2)
}

func (m *mockPoller) Latest(ctx context.Context) (types.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.Snapshot), args.Error(1)
}
