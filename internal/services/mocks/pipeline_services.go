package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	services "github.com/openg2p/g2p-bridge-backend/internal/services"
)

// MockFundsAvailabilityService mocks FundsAvailabilityService.
type MockFundsAvailabilityService struct {
	mock.Mock
}

func (m *MockFundsAvailabilityService) CheckEligibleEnvelopes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var _ services.FundsAvailabilityServiceInterface = (*MockFundsAvailabilityService)(nil)

// MockFundsBlockService mocks FundsBlockService.
type MockFundsBlockService struct {
	mock.Mock
}

func (m *MockFundsBlockService) BlockEligibleEnvelopes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var _ services.FundsBlockServiceInterface = (*MockFundsBlockService)(nil)

// MockMapperResolutionService mocks MapperResolutionService.
type MockMapperResolutionService struct {
	mock.Mock
}

func (m *MockMapperResolutionService) ResolveEligibleBatches(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var _ services.MapperResolutionServiceInterface = (*MockMapperResolutionService)(nil)

// MockPaymentDispatchService mocks PaymentDispatchService.
type MockPaymentDispatchService struct {
	mock.Mock
}

func (m *MockPaymentDispatchService) DispatchEligibleBatches(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var _ services.PaymentDispatchServiceInterface = (*MockPaymentDispatchService)(nil)

// MockStatementProcessorService mocks StatementProcessorService.
type MockStatementProcessorService struct {
	mock.Mock
}

func (m *MockStatementProcessorService) ProcessEligibleStatements(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var _ services.StatementProcessorServiceInterface = (*MockStatementProcessorService)(nil)
