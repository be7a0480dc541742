package data

import (
	"errors"

	"github.com/lib/pq"

	"github.com/openg2p/g2p-bridge-backend/db"
)

var (
	ErrRecordNotFound          = errors.New("record not found")
	ErrRecordAlreadyExists     = errors.New("record already exists")
	ErrMismatchNumRowsAffected = errors.New("mismatch number of rows affected")
	ErrMissingInput            = errors.New("missing input")
)

type Models struct {
	DisbursementEnvelopes        *DisbursementEnvelopeModel
	EnvelopeBatchStatuses        *DisbursementEnvelopeBatchStatusModel
	Disbursements                *DisbursementModel
	BatchControls                *DisbursementBatchControlModel
	BankBatchStatuses            *BankDisbursementBatchStatusModel
	MapperBatchStatuses          *MapperResolutionBatchStatusModel
	MapperResolutionDetails      *MapperResolutionDetailModel
	AccountStatements            *AccountStatementModel
	DisbursementRecons           *DisbursementReconModel
	DisbursementErrorRecons      *DisbursementErrorReconModel
	BenefitProgramConfigurations *BenefitProgramConfigurationModel
	DBConnectionPool             db.DBConnectionPool
}

// isDuplicateKeyError checks for the postgres unique_violation error code.
func isDuplicateKeyError(err error) bool {
	var pqErr *pq.Error
	return err != nil && errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func NewModels(dbConnectionPool db.DBConnectionPool) (*Models, error) {
	if dbConnectionPool == nil {
		return nil, errors.New("dbConnectionPool is required for NewModels")
	}
	return &Models{
		DisbursementEnvelopes:        &DisbursementEnvelopeModel{dbConnectionPool: dbConnectionPool},
		EnvelopeBatchStatuses:        &DisbursementEnvelopeBatchStatusModel{dbConnectionPool: dbConnectionPool},
		Disbursements:                &DisbursementModel{dbConnectionPool: dbConnectionPool},
		BatchControls:                &DisbursementBatchControlModel{dbConnectionPool: dbConnectionPool},
		BankBatchStatuses:            &BankDisbursementBatchStatusModel{dbConnectionPool: dbConnectionPool},
		MapperBatchStatuses:          &MapperResolutionBatchStatusModel{dbConnectionPool: dbConnectionPool},
		MapperResolutionDetails:      &MapperResolutionDetailModel{dbConnectionPool: dbConnectionPool},
		AccountStatements:            &AccountStatementModel{dbConnectionPool: dbConnectionPool},
		DisbursementRecons:           &DisbursementReconModel{dbConnectionPool: dbConnectionPool},
		DisbursementErrorRecons:      &DisbursementErrorReconModel{dbConnectionPool: dbConnectionPool},
		BenefitProgramConfigurations: &BenefitProgramConfigurationModel{dbConnectionPool: dbConnectionPool},
		DBConnectionPool:             dbConnectionPool,
	}, nil
}
