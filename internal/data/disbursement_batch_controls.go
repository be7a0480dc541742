package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openg2p/g2p-bridge-backend/db"
)

// DisbursementBatchControl links one disbursement to the mapper resolution
// batch and the bank dispatch batch it was grouped into at ingress time.
type DisbursementBatchControl struct {
	DisbursementID          string    `json:"disbursement_id" db:"disbursement_id"`
	EnvelopeID              string    `json:"envelope_id" db:"envelope_id"`
	BeneficiaryID           string    `json:"beneficiary_id" db:"beneficiary_id"`
	MapperResolutionBatchID string    `json:"mapper_resolution_batch_id" db:"mapper_resolution_batch_id"`
	BankDisbursementBatchID string    `json:"bank_disbursement_batch_id" db:"bank_disbursement_batch_id"`
	CreatedAt               time.Time `json:"created_at,omitempty" db:"created_at"`
}

type DisbursementBatchControlModel struct {
	dbConnectionPool db.DBConnectionPool
}

const disbursementBatchControlColumns = `
	bc.disbursement_id,
	bc.envelope_id,
	bc.beneficiary_id,
	bc.mapper_resolution_batch_id,
	bc.bank_disbursement_batch_id,
	bc.created_at
`

func (m *DisbursementBatchControlModel) InsertAll(ctx context.Context, sqlExec db.SQLExecuter, batchControls []DisbursementBatchControl) error {
	if len(batchControls) == 0 {
		return fmt.Errorf("no batch controls to insert: %w", ErrMissingInput)
	}

	query := `
		INSERT INTO disbursement_batch_controls (
			disbursement_id,
			envelope_id,
			beneficiary_id,
			mapper_resolution_batch_id,
			bank_disbursement_batch_id
		) VALUES ($1, $2, $3, $4, $5)
	`

	for _, batchControl := range batchControls {
		_, err := sqlExec.ExecContext(ctx, query,
			batchControl.DisbursementID,
			batchControl.EnvelopeID,
			batchControl.BeneficiaryID,
			batchControl.MapperResolutionBatchID,
			batchControl.BankDisbursementBatchID,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return ErrRecordAlreadyExists
			}
			return fmt.Errorf("inserting batch control for disbursement %s: %w", batchControl.DisbursementID, err)
		}
	}
	return nil
}

func (m *DisbursementBatchControlModel) GetByDisbursementID(ctx context.Context, sqlExec db.SQLExecuter, disbursementID string) (*DisbursementBatchControl, error) {
	var batchControl DisbursementBatchControl
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			disbursement_batch_controls bc
		WHERE
			bc.disbursement_id = $1
		`, disbursementBatchControlColumns)

	err := sqlExec.GetContext(ctx, &batchControl, query, disbursementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying batch control for disbursement %s: %w", disbursementID, err)
	}
	return &batchControl, nil
}

func (m *DisbursementBatchControlModel) GetByMapperBatchID(ctx context.Context, sqlExec db.SQLExecuter, mapperBatchID string) ([]DisbursementBatchControl, error) {
	batchControls := []DisbursementBatchControl{}
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			disbursement_batch_controls bc
		WHERE
			bc.mapper_resolution_batch_id = $1
		ORDER BY
			bc.created_at ASC
		`, disbursementBatchControlColumns)

	err := sqlExec.SelectContext(ctx, &batchControls, query, mapperBatchID)
	if err != nil {
		return nil, fmt.Errorf("querying batch controls for mapper batch %s: %w", mapperBatchID, err)
	}
	return batchControls, nil
}

func (m *DisbursementBatchControlModel) GetByBankBatchID(ctx context.Context, sqlExec db.SQLExecuter, bankBatchID string) ([]DisbursementBatchControl, error) {
	batchControls := []DisbursementBatchControl{}
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			disbursement_batch_controls bc
		WHERE
			bc.bank_disbursement_batch_id = $1
		ORDER BY
			bc.created_at ASC
		`, disbursementBatchControlColumns)

	err := sqlExec.SelectContext(ctx, &batchControls, query, bankBatchID)
	if err != nil {
		return nil, fmt.Errorf("querying batch controls for bank batch %s: %w", bankBatchID, err)
	}
	return batchControls, nil
}
