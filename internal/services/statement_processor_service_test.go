package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openg2p/g2p-bridge-backend/internal/alerts"
	"github.com/openg2p/g2p-bridge-backend/internal/bank"
	bankMocks "github.com/openg2p/g2p-bridge-backend/internal/bank/mocks"
	"github.com/openg2p/g2p-bridge-backend/internal/data"
)

// reconcilableDisbursementFixture creates a disbursement with a batch control,
// the anchor every statement entry has to land on.
func reconcilableDisbursementFixture(t *testing.T, ctx context.Context, models *data.Models) (*data.Disbursement, data.DisbursementBatchControl) {
	t.Helper()

	envelope := data.CreateDisbursementEnvelopeFixture(t, ctx, models.DBConnectionPool, &data.DisbursementEnvelope{})
	disbursement := data.CreateDisbursementFixture(t, ctx, models.DBConnectionPool, &data.Disbursement{
		EnvelopeID: envelope.EnvelopeID,
	})
	control := data.CreateDisbursementBatchControlFixture(t, ctx, models.DBConnectionPool, data.DisbursementBatchControl{
		DisbursementID: disbursement.DisbursementID,
		EnvelopeID:     envelope.EnvelopeID,
		BeneficiaryID:  disbursement.BeneficiaryID,
	})
	return disbursement, control
}

func Test_StatementProcessorService_ProcessEligibleStatements(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	data.CreateBenefitProgramConfigurationFixture(t, ctx, models.DBConnectionPool, data.FixtureProgramMnemonic)
	disbursement, control := reconcilableDisbursementFixture(t, ctx, models)

	content := strings.Join([]string{
		":20:REF-20240311-01",
		":25:SA-" + data.FixtureProgramMnemonic,
		":28C:00042/001",
		":60F:C240310USD10000,00",
		":61:2403110311D100,00NTRFPAY-1//BK-1",
		":86:/BENEF/AIGERIM BEKOVA",
		"/REF/EXTRA",
		":61:2403110311C500,00NTRFOTHER//BK-2",
		":61:2403120312RD100,00NRTIPAY-1//BK-3",
		":86:/REVERSAL/ACCOUNT CLOSED",
		":62F:C240312USD9900,00",
		"-",
	}, "\r\n")
	statement := data.CreateAccountStatementFixture(t, ctx, models.DBConnectionPool, content)

	debitNarratives := []string{"/BENEF/AIGERIM BEKOVA", "/REF/EXTRA"}
	reversalNarratives := []string{"/REVERSAL/ACCOUNT CLOSED"}

	mockConnector := bankMocks.NewMockConnector(t)
	mockConnector.On("DisbursementID", "BK-1", "PAY-1", debitNarratives).Return(disbursement.DisbursementID).Once()
	mockConnector.On("BeneficiaryName", debitNarratives).Return("AIGERIM BEKOVA").Once()
	mockConnector.On("DisbursementID", "BK-3", "PAY-1", reversalNarratives).Return(disbursement.DisbursementID).Once()
	mockConnector.On("ReversalReason", reversalNarratives).Return("ACCOUNT CLOSED").Once()

	service := NewStatementProcessorService(StatementProcessorServiceOptions{
		Models:           models,
		ConnectorFactory: bank.NewConnectorFactory(map[string]bank.ConnectorInterface{data.FixtureSponsorBankCode: mockConnector}),
		ProgramService:   NewBenefitProgramService(models),
		AlertsDispatcher: alerts.NewDispatcherMock(t),
		MaxAttempts:      3,
	})

	err := service.ProcessEligibleStatements(ctx)
	require.NoError(t, err)

	processed, err := models.AccountStatements.Get(ctx, models.DBConnectionPool, statement.StatementID)
	require.NoError(t, err)
	assert.Equal(t, data.ProcessedStatementProcessStatus, processed.ProcessStatus)
	assert.Equal(t, 1, processed.Attempts)
	assert.Equal(t, "SA-"+data.FixtureProgramMnemonic, processed.AccountNumber)
	assert.Equal(t, "REF-20240311-01", processed.ReferenceNumber)
	assert.Equal(t, "00042", processed.StatementNumber)
	assert.Equal(t, "001", processed.SequenceNumber)
	assert.NotNil(t, processed.ProcessTS)

	// the debit and its reversal land on the same recon row
	recon, err := models.DisbursementRecons.GetByDisbursementID(ctx, models.DBConnectionPool, disbursement.DisbursementID)
	require.NoError(t, err)
	assert.Equal(t, control.BankDisbursementBatchID, recon.BankDisbursementBatchID)
	assert.Equal(t, "AIGERIM BEKOVA", recon.BeneficiaryNameFromBank)
	assert.Equal(t, "BK-1", recon.RemittanceReferenceNumber)
	assert.Equal(t, "00042", recon.RemittanceStatementID)
	assert.Equal(t, "00042", recon.RemittanceStatementNumber)
	assert.Equal(t, "001", recon.RemittanceStatementSequence)
	assert.Equal(t, 1, recon.RemittanceEntrySequence)
	require.NotNil(t, recon.RemittanceEntryDate)
	assert.True(t, recon.RemittanceEntryDate.Equal(time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, recon.RemittanceValueDate)
	assert.True(t, recon.RemittanceValueDate.Equal(time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)))

	assert.True(t, recon.ReversalFound)
	assert.Equal(t, "00042", recon.ReversalStatementID)
	require.NotNil(t, recon.ReversalEntrySequence)
	assert.Equal(t, 2, *recon.ReversalEntrySequence)
	require.NotNil(t, recon.ReversalEntryDate)
	assert.True(t, recon.ReversalEntryDate.Equal(time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "ACCOUNT CLOSED", recon.ReversalReason)

	// a processed statement is no longer eligible
	err = service.ProcessEligibleStatements(ctx)
	require.NoError(t, err)
}

func Test_StatementProcessorService_ProcessEligibleStatements_errorRecons(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	data.CreateBenefitProgramConfigurationFixture(t, ctx, models.DBConnectionPool, data.FixtureProgramMnemonic)

	// already reconciled on an earlier statement
	reconciled, _ := reconcilableDisbursementFixture(t, ctx, models)
	data.CreateDisbursementReconFixture(t, ctx, models.DBConnectionPool, &data.DisbursementRecon{
		DisbursementID: reconciled.DisbursementID,
	})
	// known to the bridge but never seen on a statement
	unreconciled, _ := reconcilableDisbursementFixture(t, ctx, models)

	content := strings.Join([]string{
		":20:REF-20240312-01",
		":25:SA-" + data.FixtureProgramMnemonic,
		":28C:00043/001",
		":61:2403120312D100,00NTRFPAY-9//BK-9",
		":61:2403120312D100,00NTRFPAY-1//BK-10",
		":61:2403120312RD100,00NRTIPAY-2//BK-11",
		"-",
	}, "\r\n")
	statement := data.CreateAccountStatementFixture(t, ctx, models.DBConnectionPool, content)

	mockConnector := bankMocks.NewMockConnector(t)
	mockConnector.On("DisbursementID", "BK-9", "PAY-9", mock.Anything).Return("ghost-disbursement").Once()
	mockConnector.On("DisbursementID", "BK-10", "PAY-1", mock.Anything).Return(reconciled.DisbursementID).Once()
	mockConnector.On("DisbursementID", "BK-11", "PAY-2", mock.Anything).Return(unreconciled.DisbursementID).Once()

	service := NewStatementProcessorService(StatementProcessorServiceOptions{
		Models:           models,
		ConnectorFactory: bank.NewConnectorFactory(map[string]bank.ConnectorInterface{data.FixtureSponsorBankCode: mockConnector}),
		ProgramService:   NewBenefitProgramService(models),
		AlertsDispatcher: alerts.NewDispatcherMock(t),
		MaxAttempts:      3,
	})

	err := service.ProcessEligibleStatements(ctx)
	require.NoError(t, err)

	// unattributable entries don't fail the statement
	processed, err := models.AccountStatements.Get(ctx, models.DBConnectionPool, statement.StatementID)
	require.NoError(t, err)
	assert.Equal(t, data.ProcessedStatementProcessStatus, processed.ProcessStatus)

	errorRecons, err := models.DisbursementErrorRecons.GetByStatementID(ctx, models.DBConnectionPool, statement.StatementID)
	require.NoError(t, err)
	require.Len(t, errorRecons, 3)

	assert.Equal(t, 1, errorRecons[0].EntrySequence)
	assert.Equal(t, data.InvalidDisbursementIDReconErrorReason, errorRecons[0].ErrorReason)
	assert.Empty(t, errorRecons[0].DisbursementID)
	assert.Equal(t, "BK-9", errorRecons[0].BankReferenceNumber)
	assert.Equal(t, "00043", errorRecons[0].StatementNumber)

	assert.Equal(t, 2, errorRecons[1].EntrySequence)
	assert.Equal(t, data.DuplicateDisbursementReconErrorReason, errorRecons[1].ErrorReason)
	assert.Equal(t, reconciled.DisbursementID, errorRecons[1].DisbursementID)

	assert.Equal(t, 3, errorRecons[2].EntrySequence)
	assert.Equal(t, data.InvalidReversalReconErrorReason, errorRecons[2].ErrorReason)
	assert.Equal(t, unreconciled.DisbursementID, errorRecons[2].DisbursementID)

	// the reversal without a debit did not create a recon row
	_, err = models.DisbursementRecons.GetByDisbursementID(ctx, models.DBConnectionPool, unreconciled.DisbursementID)
	assert.ErrorIs(t, err, data.ErrRecordNotFound)
}

func Test_StatementProcessorService_ProcessEligibleStatements_rejectsUnknownAccount(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	data.CreateBenefitProgramConfigurationFixture(t, ctx, models.DBConnectionPool, data.FixtureProgramMnemonic)

	content := strings.Join([]string{
		":20:REF-20240313-01",
		":25:SA-UNKNOWN",
		":28C:00044/001",
		"-",
	}, "\r\n")
	statement := data.CreateAccountStatementFixture(t, ctx, models.DBConnectionPool, content)

	alertsDispatcher := alerts.NewDispatcherMock(t)
	alertsDispatcher.
		On("DispatchAlert", mock.Anything, "Account statement rejected",
			fmt.Sprintf("Statement %s reports on sponsor account SA-UNKNOWN, which no benefit program configuration matches.", statement.StatementID)).
		Return(nil).
		Once()

	service := NewStatementProcessorService(StatementProcessorServiceOptions{
		Models:           models,
		ConnectorFactory: bank.NewConnectorFactory(nil),
		ProgramService:   NewBenefitProgramService(models),
		AlertsDispatcher: alertsDispatcher,
		MaxAttempts:      3,
	})

	err := service.ProcessEligibleStatements(ctx)
	require.NoError(t, err)

	rejected, err := models.AccountStatements.Get(ctx, models.DBConnectionPool, statement.StatementID)
	require.NoError(t, err)
	assert.Equal(t, data.ErrorStatementProcessStatus, rejected.ProcessStatus)
	assert.Equal(t, string(data.InvalidAccountNumberErrorCode), rejected.ProcessErrorCode)
	assert.Equal(t, "SA-UNKNOWN", rejected.AccountNumber)
	assert.Equal(t, 1, rejected.Attempts)
	assert.NotNil(t, rejected.ProcessTS)

	// ERROR is terminal: the statement is never retried
	err = service.ProcessEligibleStatements(ctx)
	require.NoError(t, err)
}

func Test_StatementProcessorService_ProcessEligibleStatements_malformedContent(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	content := strings.Join([]string{
		":20:REF-BAD",
		":25:SA-" + data.FixtureProgramMnemonic,
		":61:NOT-A-STATEMENT-LINE",
	}, "\r\n")
	statement := data.CreateAccountStatementFixture(t, ctx, models.DBConnectionPool, content)

	service := NewStatementProcessorService(StatementProcessorServiceOptions{
		Models:           models,
		ConnectorFactory: bank.NewConnectorFactory(nil),
		ProgramService:   NewBenefitProgramService(models),
		AlertsDispatcher: alerts.NewDispatcherMock(t),
		MaxAttempts:      3,
	})

	err := service.ProcessEligibleStatements(ctx)
	assert.ErrorContains(t, err, "statement processing failed for 1 statement(s)")
	assert.ErrorContains(t, err, statement.StatementID)

	// the statement stays pending so the next run can retry it
	failed, err := models.AccountStatements.Get(ctx, models.DBConnectionPool, statement.StatementID)
	require.NoError(t, err)
	assert.Equal(t, data.PendingStatementProcessStatus, failed.ProcessStatus)
	assert.Equal(t, 1, failed.Attempts)
	assert.Equal(t, string(data.StatementProcessingFailedErrorCode), failed.ProcessErrorCode)
}

func Test_StatementProcessorService_ProcessEligibleStatements_alertsWhenAttemptsExhausted(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	content := ":20:REF-BAD\r\n:61:NOT-A-STATEMENT-LINE\r\n"
	statement := data.CreateAccountStatementFixture(t, ctx, models.DBConnectionPool, content)

	alertsDispatcher := alerts.NewDispatcherMock(t)
	alertsDispatcher.
		On("DispatchAlert", mock.Anything, "Statement processing attempts exhausted",
			mock.MatchedBy(func(body string) bool {
				return strings.Contains(body, statement.StatementID) && strings.Contains(body, "exhausted its 1 processing attempts")
			})).
		Return(nil).
		Once()

	service := NewStatementProcessorService(StatementProcessorServiceOptions{
		Models:           models,
		ConnectorFactory: bank.NewConnectorFactory(nil),
		ProgramService:   NewBenefitProgramService(models),
		AlertsDispatcher: alertsDispatcher,
		MaxAttempts:      1,
	})

	err := service.ProcessEligibleStatements(ctx)
	assert.Error(t, err)

	// out of attempts: the statement drops out of selection
	err = service.ProcessEligibleStatements(ctx)
	require.NoError(t, err)
}
