package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
	services "github.com/openg2p/g2p-bridge-backend/internal/services"
)

// MockDisbursementEnvelopeService mocks DisbursementEnvelopeService.
type MockDisbursementEnvelopeService struct {
	mock.Mock
}

func (m *MockDisbursementEnvelopeService) CreateEnvelope(ctx context.Context, payload *services.DisbursementEnvelopePayload) (*data.DisbursementEnvelope, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.DisbursementEnvelope), args.Error(1)
}

func (m *MockDisbursementEnvelopeService) CancelEnvelope(ctx context.Context, envelopeID string) error {
	args := m.Called(ctx, envelopeID)
	return args.Error(0)
}

var _ services.DisbursementEnvelopeServiceInterface = (*MockDisbursementEnvelopeService)(nil)
