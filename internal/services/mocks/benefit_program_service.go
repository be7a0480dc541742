package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
	services "github.com/openg2p/g2p-bridge-backend/internal/services"
)

// MockBenefitProgramService mocks BenefitProgramService.
type MockBenefitProgramService struct {
	mock.Mock
}

func (m *MockBenefitProgramService) GetConfiguration(ctx context.Context, programMnemonic string) (*data.BenefitProgramConfiguration, error) {
	args := m.Called(ctx, programMnemonic)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.BenefitProgramConfiguration), args.Error(1)
}

func (m *MockBenefitProgramService) GetConfigurationBySponsorAccount(ctx context.Context, sponsorBankAccountNumber string) (*data.BenefitProgramConfiguration, error) {
	args := m.Called(ctx, sponsorBankAccountNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.BenefitProgramConfiguration), args.Error(1)
}

func (m *MockBenefitProgramService) GetAllConfigurations(ctx context.Context) ([]data.BenefitProgramConfiguration, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]data.BenefitProgramConfiguration), args.Error(1)
}

func (m *MockBenefitProgramService) CreateConfiguration(ctx context.Context, config *data.BenefitProgramConfiguration) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

var _ services.BenefitProgramServiceInterface = (*MockBenefitProgramService)(nil)
