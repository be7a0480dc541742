package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/openg2p/g2p-bridge-backend/internal/bank"
)

// MockConnector is a mock implementation of bank.ConnectorInterface.
type MockConnector struct {
	mock.Mock
}

func (m *MockConnector) CheckFunds(ctx context.Context, accountNumber, currency string, amount decimal.Decimal) bank.CheckFundsResponse {
	args := m.Called(ctx, accountNumber, currency, amount)
	return args.Get(0).(bank.CheckFundsResponse)
}

func (m *MockConnector) BlockFunds(ctx context.Context, accountNumber, currency string, amount decimal.Decimal) bank.BlockFundsResponse {
	args := m.Called(ctx, accountNumber, currency, amount)
	return args.Get(0).(bank.BlockFundsResponse)
}

func (m *MockConnector) InitiatePayment(ctx context.Context, payloads []bank.PaymentPayload) bank.PaymentResponse {
	args := m.Called(ctx, payloads)
	return args.Get(0).(bank.PaymentResponse)
}

func (m *MockConnector) DisbursementID(bankReference, customerReference string, narratives []string) string {
	args := m.Called(bankReference, customerReference, narratives)
	return args.String(0)
}

func (m *MockConnector) BeneficiaryName(narratives []string) string {
	args := m.Called(narratives)
	return args.String(0)
}

func (m *MockConnector) ReversalReason(narratives []string) string {
	args := m.Called(narratives)
	return args.String(0)
}

type testInterface interface {
	mock.TestingT
	Cleanup(func())
}

// NewMockConnector creates a new instance of MockConnector. It also registers a testing interface on the mock and a
// cleanup function to assert the mocks expectations.
func NewMockConnector(t testInterface) *MockConnector {
	mock := &MockConnector{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

var _ bank.ConnectorInterface = (*MockConnector)(nil)
