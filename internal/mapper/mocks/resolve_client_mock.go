package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/openg2p/g2p-bridge-backend/internal/mapper"
)

// MockResolveClient is a mock implementation of mapper.ResolveClientInterface.
type MockResolveClient struct {
	mock.Mock
}

func (m *MockResolveClient) Resolve(ctx context.Context, beneficiaryIDs []string) (*mapper.ResolveResponse, error) {
	args := m.Called(ctx, beneficiaryIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mapper.ResolveResponse), args.Error(1)
}

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

// NewMockResolveClient creates a new instance of MockResolveClient. It also registers a testing interface on the
// mock and a cleanup function to assert the mocks expectations.
func NewMockResolveClient(t testInterface) *MockResolveClient {
	mock := &MockResolveClient{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

var _ mapper.ResolveClientInterface = (*MockResolveClient)(nil)
