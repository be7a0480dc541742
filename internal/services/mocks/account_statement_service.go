package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
	services "github.com/openg2p/g2p-bridge-backend/internal/services"
)

// MockAccountStatementService mocks AccountStatementService.
type MockAccountStatementService struct {
	mock.Mock
}

func (m *MockAccountStatementService) UploadStatement(ctx context.Context, fileContent []byte) (*data.AccountStatement, error) {
	args := m.Called(ctx, fileContent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.AccountStatement), args.Error(1)
}

var _ services.AccountStatementServiceInterface = (*MockAccountStatementService)(nil)
