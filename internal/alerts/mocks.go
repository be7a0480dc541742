package alerts

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MessengerClientMock struct {
	mock.Mock
}

var _ MessengerClient = (*MessengerClientMock)(nil)

func (mc *MessengerClientMock) SendMessage(ctx context.Context, message Message) error {
	args := mc.Called(ctx, message)
	return args.Error(0)
}

func (mc *MessengerClientMock) MessengerType() MessengerType {
	args := mc.Called()
	return args.Get(0).(MessengerType)
}

// DispatcherMock is a mock implementation of DispatcherInterface
type DispatcherMock struct {
	mock.Mock
}

var _ DispatcherInterface = (*DispatcherMock)(nil)

func (dm *DispatcherMock) DispatchAlert(ctx context.Context, title, body string) error {
	args := dm.Called(ctx, title, body)
	return args.Error(0)
}

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

// NewMessengerClientMock creates a new instance of MessengerClientMock. It also registers a testing interface on the
// mock and a cleanup function to assert the mocks expectations.
func NewMessengerClientMock(t testInterface) *MessengerClientMock {
	mock := &MessengerClientMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// NewDispatcherMock creates a new instance of DispatcherMock. It also registers a testing interface on the mock and a
// cleanup function to assert the mocks expectations.
func NewDispatcherMock(t testInterface) *DispatcherMock {
	mock := &DispatcherMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
