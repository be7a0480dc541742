package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openg2p/g2p-bridge-backend/internal/alerts"
	"github.com/openg2p/g2p-bridge-backend/internal/bank"
	bankMocks "github.com/openg2p/g2p-bridge-backend/internal/bank/mocks"
	"github.com/openg2p/g2p-bridge-backend/internal/data"
)

// fullyReceivedEnvelopeFixture creates an envelope past its schedule date with
// its received counters matching the declaration, ready for the first stage.
func fullyReceivedEnvelopeFixture(t *testing.T, ctx context.Context, models *data.Models) *data.DisbursementEnvelope {
	t.Helper()

	envelope := data.CreateDisbursementEnvelopeFixture(t, ctx, models.DBConnectionPool, &data.DisbursementEnvelope{
		DisbursementCount: 2,
		BeneficiaryCount:  2,
		TotalAmount:       decimal.NewFromInt(200),
		ScheduleDate:      time.Now().UTC().AddDate(0, 0, -1),
	})
	data.UpdateEnvelopeBatchStatusFixture(t, ctx, models.DBConnectionPool, &data.DisbursementEnvelopeBatchStatus{
		EnvelopeID:                 envelope.EnvelopeID,
		ReceivedCount:              2,
		ReceivedAmount:             decimal.NewFromInt(200),
		FundsAvailable:             data.PendingCheckFundsAvailableStatus,
		FundsBlocked:               data.PendingCheckFundsBlockedStatus,
		IDMapperResolutionRequired: true,
	})
	return envelope
}

func Test_FundsAvailabilityService_CheckEligibleEnvelopes(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	config := data.CreateBenefitProgramConfigurationFixture(t, ctx, models.DBConnectionPool, data.FixtureProgramMnemonic)
	envelope := fullyReceivedEnvelopeFixture(t, ctx, models)

	mockConnector := bankMocks.NewMockConnector(t)
	mockConnector.
		On("CheckFunds", mock.Anything, config.SponsorBankAccountNumber, config.SponsorBankAccountCurrency,
			mock.MatchedBy(func(amount decimal.Decimal) bool { return amount.Equal(decimal.NewFromInt(200)) })).
		Return(bank.CheckFundsResponse{Status: data.FundsAvailableFundsAvailableStatus}).
		Once()

	service := NewFundsAvailabilityService(FundsAvailabilityServiceOptions{
		Models:           models,
		ConnectorFactory: bank.NewConnectorFactory(map[string]bank.ConnectorInterface{data.FixtureSponsorBankCode: mockConnector}),
		ProgramService:   NewBenefitProgramService(models),
		AlertsDispatcher: alerts.NewDispatcherMock(t),
		MaxAttempts:      3,
	})

	err := service.CheckEligibleEnvelopes(ctx)
	require.NoError(t, err)

	batchStatus, err := models.EnvelopeBatchStatuses.GetByEnvelopeID(ctx, models.DBConnectionPool, envelope.EnvelopeID)
	require.NoError(t, err)
	assert.Equal(t, data.FundsAvailableFundsAvailableStatus, batchStatus.FundsAvailable)
	assert.Equal(t, 1, batchStatus.FundsAvailableAttempts)
	assert.Empty(t, batchStatus.FundsAvailableErrorCode)
	assert.NotNil(t, batchStatus.FundsAvailableTS)

	// a second run finds nothing eligible and leaves the state alone
	err = service.CheckEligibleEnvelopes(ctx)
	require.NoError(t, err)

	batchStatus, err = models.EnvelopeBatchStatuses.GetByEnvelopeID(ctx, models.DBConnectionPool, envelope.EnvelopeID)
	require.NoError(t, err)
	assert.Equal(t, 1, batchStatus.FundsAvailableAttempts)
}

func Test_FundsAvailabilityService_CheckEligibleEnvelopes_retriesUntilAvailable(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	data.CreateBenefitProgramConfigurationFixture(t, ctx, models.DBConnectionPool, data.FixtureProgramMnemonic)
	envelope := fullyReceivedEnvelopeFixture(t, ctx, models)

	mockConnector := bankMocks.NewMockConnector(t)
	mockConnector.
		On("CheckFunds", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(bank.CheckFundsResponse{
			Status:    data.FundsNotAvailableFundsAvailableStatus,
			ErrorCode: "INSUFFICIENT_BALANCE",
		}).
		Once()
	mockConnector.
		On("CheckFunds", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(bank.CheckFundsResponse{Status: data.FundsAvailableFundsAvailableStatus}).
		Once()

	service := NewFundsAvailabilityService(FundsAvailabilityServiceOptions{
		Models:           models,
		ConnectorFactory: bank.NewConnectorFactory(map[string]bank.ConnectorInterface{data.FixtureSponsorBankCode: mockConnector}),
		ProgramService:   NewBenefitProgramService(models),
		AlertsDispatcher: alerts.NewDispatcherMock(t),
		MaxAttempts:      3,
	})

	err := service.CheckEligibleEnvelopes(ctx)
	require.NoError(t, err)

	batchStatus, err := models.EnvelopeBatchStatuses.GetByEnvelopeID(ctx, models.DBConnectionPool, envelope.EnvelopeID)
	require.NoError(t, err)
	assert.Equal(t, data.FundsNotAvailableFundsAvailableStatus, batchStatus.FundsAvailable)
	assert.Equal(t, "INSUFFICIENT_BALANCE", batchStatus.FundsAvailableErrorCode)
	assert.Equal(t, 1, batchStatus.FundsAvailableAttempts)

	// a FUNDS_NOT_AVAILABLE envelope stays selectable and can still succeed
	err = service.CheckEligibleEnvelopes(ctx)
	require.NoError(t, err)

	batchStatus, err = models.EnvelopeBatchStatuses.GetByEnvelopeID(ctx, models.DBConnectionPool, envelope.EnvelopeID)
	require.NoError(t, err)
	assert.Equal(t, data.FundsAvailableFundsAvailableStatus, batchStatus.FundsAvailable)
	assert.Empty(t, batchStatus.FundsAvailableErrorCode)
	assert.Equal(t, 2, batchStatus.FundsAvailableAttempts)
}

func Test_FundsAvailabilityService_CheckEligibleEnvelopes_alertsWhenAttemptsExhausted(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	data.CreateBenefitProgramConfigurationFixture(t, ctx, models.DBConnectionPool, data.FixtureProgramMnemonic)
	envelope := fullyReceivedEnvelopeFixture(t, ctx, models)

	mockConnector := bankMocks.NewMockConnector(t)
	mockConnector.
		On("CheckFunds", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(bank.CheckFundsResponse{
			Status:    data.FundsNotAvailableFundsAvailableStatus,
			ErrorCode: "INSUFFICIENT_BALANCE",
		}).
		Once()

	alertsDispatcher := alerts.NewDispatcherMock(t)
	alertsDispatcher.
		On("DispatchAlert", mock.Anything, "Funds availability attempts exhausted",
			fmt.Sprintf("Envelope %s exhausted its 1 funds availability attempts with status FUNDS_NOT_AVAILABLE (last error: INSUFFICIENT_BALANCE).", envelope.EnvelopeID)).
		Return(nil).
		Once()

	service := NewFundsAvailabilityService(FundsAvailabilityServiceOptions{
		Models:           models,
		ConnectorFactory: bank.NewConnectorFactory(map[string]bank.ConnectorInterface{data.FixtureSponsorBankCode: mockConnector}),
		ProgramService:   NewBenefitProgramService(models),
		AlertsDispatcher: alertsDispatcher,
		MaxAttempts:      1,
	})

	err := service.CheckEligibleEnvelopes(ctx)
	require.NoError(t, err)

	// out of attempts: the envelope drops out of selection
	err = service.CheckEligibleEnvelopes(ctx)
	require.NoError(t, err)

	batchStatus, err := models.EnvelopeBatchStatuses.GetByEnvelopeID(ctx, models.DBConnectionPool, envelope.EnvelopeID)
	require.NoError(t, err)
	assert.Equal(t, 1, batchStatus.FundsAvailableAttempts)
}

func Test_FundsAvailabilityService_CheckEligibleEnvelopes_missingConfiguration(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	// the envelope's program has no configuration row
	envelope := fullyReceivedEnvelopeFixture(t, ctx, models)

	service := NewFundsAvailabilityService(FundsAvailabilityServiceOptions{
		Models:           models,
		ConnectorFactory: bank.NewConnectorFactory(nil),
		ProgramService:   NewBenefitProgramService(models),
		AlertsDispatcher: alerts.NewDispatcherMock(t),
		MaxAttempts:      3,
	})

	// the setup failure is folded into the attempt rather than surfaced
	err := service.CheckEligibleEnvelopes(ctx)
	require.NoError(t, err)

	batchStatus, err := models.EnvelopeBatchStatuses.GetByEnvelopeID(ctx, models.DBConnectionPool, envelope.EnvelopeID)
	require.NoError(t, err)
	assert.Equal(t, data.PendingCheckFundsAvailableStatus, batchStatus.FundsAvailable)
	assert.Equal(t, 1, batchStatus.FundsAvailableAttempts)
	assert.Contains(t, batchStatus.FundsAvailableErrorCode, "getting configuration for program")
}
