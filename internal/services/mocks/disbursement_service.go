package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	services "github.com/openg2p/g2p-bridge-backend/internal/services"
)

// MockDisbursementService mocks DisbursementService.
type MockDisbursementService struct {
	mock.Mock
}

func (m *MockDisbursementService) CreateDisbursements(ctx context.Context, payloads []*services.DisbursementPayload) error {
	args := m.Called(ctx, payloads)
	return args.Error(0)
}

func (m *MockDisbursementService) CancelDisbursements(ctx context.Context, payloads []*services.DisbursementPayload) error {
	args := m.Called(ctx, payloads)
	return args.Error(0)
}

var _ services.DisbursementServiceInterface = (*MockDisbursementService)(nil)
