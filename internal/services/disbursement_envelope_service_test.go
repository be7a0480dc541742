package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
)

func assertBridgeErrorCode(t *testing.T, err error, wantCode data.BridgeErrorCode) {
	t.Helper()
	bridgeErr, ok := AsBridgeError(err)
	require.True(t, ok, "expected a bridge error, got %v", err)
	assert.Equal(t, wantCode, bridgeErr.Code)
}

func validEnvelopePayload() *DisbursementEnvelopePayload {
	return &DisbursementEnvelopePayload{
		ProgramMnemonic:   data.FixtureProgramMnemonic,
		CycleCodeMnemonic: "CY-2024-03",
		Frequency:         data.MonthlyDisbursementFrequency,
		BeneficiaryCount:  2,
		DisbursementCount: 2,
		TotalAmount:       decimal.NewFromInt(200),
		ScheduleDate:      time.Now().UTC().AddDate(0, 0, 7).Format(time.DateOnly),
	}
}

func Test_DisbursementEnvelopeService_CreateEnvelope(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	data.CreateBenefitProgramConfigurationFixture(t, ctx, models.DBConnectionPool, data.FixtureProgramMnemonic)
	service := NewDisbursementEnvelopeService(models, NewBenefitProgramService(models))

	payload := validEnvelopePayload()
	envelope, err := service.CreateEnvelope(ctx, payload)
	require.NoError(t, err)
	assert.NotEmpty(t, envelope.EnvelopeID)
	assert.False(t, envelope.ReceiptTS.IsZero())

	gotEnvelope, err := models.DisbursementEnvelopes.Get(ctx, models.DBConnectionPool, envelope.EnvelopeID)
	require.NoError(t, err)
	assert.Equal(t, data.FixtureProgramMnemonic, gotEnvelope.ProgramMnemonic)
	assert.Equal(t, 2, gotEnvelope.DisbursementCount)
	assert.Equal(t, data.NotCancelledCancellationStatus, gotEnvelope.CancellationStatus)

	// the batch status is created in the same transaction, with the mapper
	// requirement copied from the program configuration
	batchStatus, err := models.EnvelopeBatchStatuses.GetByEnvelopeID(ctx, models.DBConnectionPool, envelope.EnvelopeID)
	require.NoError(t, err)
	assert.Equal(t, 0, batchStatus.ReceivedCount)
	assert.Equal(t, data.PendingCheckFundsAvailableStatus, batchStatus.FundsAvailable)
	assert.True(t, batchStatus.IDMapperResolutionRequired)
}

func Test_DisbursementEnvelopeService_CreateEnvelope_validation(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	data.CreateBenefitProgramConfigurationFixture(t, ctx, models.DBConnectionPool, data.FixtureProgramMnemonic)
	service := NewDisbursementEnvelopeService(models, NewBenefitProgramService(models))

	testCases := []struct {
		name     string
		mutate   func(payload *DisbursementEnvelopePayload)
		wantCode data.BridgeErrorCode
	}{
		{
			name:     "empty program mnemonic",
			mutate:   func(p *DisbursementEnvelopePayload) { p.ProgramMnemonic = "  " },
			wantCode: data.InvalidProgramMnemonicErrorCode,
		},
		{
			name:     "unknown frequency",
			mutate:   func(p *DisbursementEnvelopePayload) { p.Frequency = "Hourly" },
			wantCode: data.InvalidDisbursementFrequencyErrorCode,
		},
		{
			name:     "empty cycle code",
			mutate:   func(p *DisbursementEnvelopePayload) { p.CycleCodeMnemonic = "" },
			wantCode: data.InvalidCycleCodeMnemonicErrorCode,
		},
		{
			name:     "zero beneficiaries",
			mutate:   func(p *DisbursementEnvelopePayload) { p.BeneficiaryCount = 0 },
			wantCode: data.InvalidNoOfBeneficiariesErrorCode,
		},
		{
			name:     "zero disbursements",
			mutate:   func(p *DisbursementEnvelopePayload) { p.DisbursementCount = 0 },
			wantCode: data.InvalidNoOfDisbursementsErrorCode,
		},
		{
			name:     "negative total amount",
			mutate:   func(p *DisbursementEnvelopePayload) { p.TotalAmount = decimal.NewFromInt(-1) },
			wantCode: data.InvalidTotalDisbursementAmountErrorCode,
		},
		{
			name:     "malformed schedule date",
			mutate:   func(p *DisbursementEnvelopePayload) { p.ScheduleDate = "03/15/2024" },
			wantCode: data.InvalidDisbursementScheduleDateErrorCode,
		},
		{
			name: "schedule date in the past",
			mutate: func(p *DisbursementEnvelopePayload) {
				p.ScheduleDate = time.Now().UTC().AddDate(0, 0, -1).Format(time.DateOnly)
			},
			wantCode: data.InvalidDisbursementScheduleDateErrorCode,
		},
		{
			name:     "unknown program",
			mutate:   func(p *DisbursementEnvelopePayload) { p.ProgramMnemonic = "PM-UNKNOWN" },
			wantCode: data.InvalidProgramMnemonicErrorCode,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			payload := validEnvelopePayload()
			tc.mutate(payload)

			_, err := service.CreateEnvelope(ctx, payload)
			assertBridgeErrorCode(t, err, tc.wantCode)
		})
	}
}

func Test_DisbursementEnvelopeService_CancelEnvelope(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	service := NewDisbursementEnvelopeService(models, NewBenefitProgramService(models))

	envelope := data.CreateDisbursementEnvelopeFixture(t, ctx, models.DBConnectionPool, &data.DisbursementEnvelope{})

	err := service.CancelEnvelope(ctx, envelope.EnvelopeID)
	require.NoError(t, err)

	gotEnvelope, err := models.DisbursementEnvelopes.Get(ctx, models.DBConnectionPool, envelope.EnvelopeID)
	require.NoError(t, err)
	assert.Equal(t, data.CancelledCancellationStatus, gotEnvelope.CancellationStatus)
	assert.NotNil(t, gotEnvelope.CancellationTS)

	err = service.CancelEnvelope(ctx, envelope.EnvelopeID)
	assertBridgeErrorCode(t, err, data.DisbursementEnvelopeAlreadyCanceledErrorCode)

	err = service.CancelEnvelope(ctx, uuid.NewString())
	assertBridgeErrorCode(t, err, data.DisbursementEnvelopeNotFoundErrorCode)

	err = service.CancelEnvelope(ctx, "  ")
	assertBridgeErrorCode(t, err, data.DisbursementEnvelopeNotFoundErrorCode)
}
