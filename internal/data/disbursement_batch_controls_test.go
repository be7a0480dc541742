package data

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DisbursementBatchControlModel_InsertAll(t *testing.T) {
	models := SetupModels(t)
	ctx := context.Background()

	envelope := CreateDisbursementEnvelopeFixture(t, ctx, models.DBConnectionPool, &DisbursementEnvelope{})
	disbursement := CreateDisbursementFixture(t, ctx, models.DBConnectionPool, &Disbursement{EnvelopeID: envelope.EnvelopeID})

	mapperBatchID := uuid.NewString()
	bankBatchID := uuid.NewString()
	batchControls := []DisbursementBatchControl{
		{
			DisbursementID:          disbursement.DisbursementID,
			EnvelopeID:              envelope.EnvelopeID,
			BeneficiaryID:           disbursement.BeneficiaryID,
			MapperResolutionBatchID: mapperBatchID,
			BankDisbursementBatchID: bankBatchID,
		},
	}
	err := models.BatchControls.InsertAll(ctx, models.DBConnectionPool, batchControls)
	require.NoError(t, err)

	gotControl, err := models.BatchControls.GetByDisbursementID(ctx, models.DBConnectionPool, disbursement.DisbursementID)
	require.NoError(t, err)
	assert.Equal(t, envelope.EnvelopeID, gotControl.EnvelopeID)
	assert.Equal(t, mapperBatchID, gotControl.MapperResolutionBatchID)
	assert.Equal(t, bankBatchID, gotControl.BankDisbursementBatchID)

	err = models.BatchControls.InsertAll(ctx, models.DBConnectionPool, batchControls)
	assert.ErrorIs(t, err, ErrRecordAlreadyExists)

	err = models.BatchControls.InsertAll(ctx, models.DBConnectionPool, nil)
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = models.BatchControls.GetByDisbursementID(ctx, models.DBConnectionPool, uuid.NewString())
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func Test_DisbursementBatchControlModel_GetByMapperBatchID_and_GetByBankBatchID(t *testing.T) {
	models := SetupModels(t)
	ctx := context.Background()

	envelope := CreateDisbursementEnvelopeFixture(t, ctx, models.DBConnectionPool, &DisbursementEnvelope{})
	first := CreateDisbursementFixture(t, ctx, models.DBConnectionPool, &Disbursement{EnvelopeID: envelope.EnvelopeID})
	second := CreateDisbursementFixture(t, ctx, models.DBConnectionPool, &Disbursement{EnvelopeID: envelope.EnvelopeID})
	stray := CreateDisbursementFixture(t, ctx, models.DBConnectionPool, &Disbursement{EnvelopeID: envelope.EnvelopeID})

	mapperBatchID := uuid.NewString()
	bankBatchID := uuid.NewString()
	CreateDisbursementBatchControlFixture(t, ctx, models.DBConnectionPool, DisbursementBatchControl{
		DisbursementID:          first.DisbursementID,
		EnvelopeID:              envelope.EnvelopeID,
		BeneficiaryID:           first.BeneficiaryID,
		MapperResolutionBatchID: mapperBatchID,
		BankDisbursementBatchID: bankBatchID,
	})
	CreateDisbursementBatchControlFixture(t, ctx, models.DBConnectionPool, DisbursementBatchControl{
		DisbursementID:          second.DisbursementID,
		EnvelopeID:              envelope.EnvelopeID,
		BeneficiaryID:           second.BeneficiaryID,
		MapperResolutionBatchID: mapperBatchID,
		BankDisbursementBatchID: bankBatchID,
	})
	CreateDisbursementBatchControlFixture(t, ctx, models.DBConnectionPool, DisbursementBatchControl{
		DisbursementID: stray.DisbursementID,
		EnvelopeID:     envelope.EnvelopeID,
		BeneficiaryID:  stray.BeneficiaryID,
	})

	byMapper, err := models.BatchControls.GetByMapperBatchID(ctx, models.DBConnectionPool, mapperBatchID)
	require.NoError(t, err)
	assert.Len(t, byMapper, 2)

	byBank, err := models.BatchControls.GetByBankBatchID(ctx, models.DBConnectionPool, bankBatchID)
	require.NoError(t, err)
	assert.Len(t, byBank, 2)

	empty, err := models.BatchControls.GetByMapperBatchID(ctx, models.DBConnectionPool, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
