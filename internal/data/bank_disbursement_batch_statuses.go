package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openg2p/g2p-bridge-backend/db"
)

// BatchProcessingStatus tracks a pipeline batch through its single PENDING →
// PROCESSED transition. There is no terminal failure state: a batch out of
// attempts simply stops being selected.
type BatchProcessingStatus string

const (
	PendingBatchProcessingStatus   BatchProcessingStatus = "PENDING"
	ProcessedBatchProcessingStatus BatchProcessingStatus = "PROCESSED"
)

func (status BatchProcessingStatus) Validate() error {
	switch status {
	case PendingBatchProcessingStatus, ProcessedBatchProcessingStatus:
		return nil
	default:
		return fmt.Errorf("invalid batch processing status: %s", status)
	}
}

// BankDisbursementBatchStatus is the dispatch state of one bank batch.
type BankDisbursementBatchStatus struct {
	BatchID         string                `json:"batch_id" db:"batch_id"`
	EnvelopeID      string                `json:"envelope_id" db:"envelope_id"`
	Status          BatchProcessingStatus `json:"status" db:"status"`
	Attempts        int                   `json:"attempts" db:"attempts"`
	LatestErrorCode string                `json:"latest_error_code,omitempty" db:"latest_error_code"`
	DispatchTS      *time.Time            `json:"dispatch_ts,omitempty" db:"dispatch_ts"`
	CreatedAt       time.Time             `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at,omitempty" db:"updated_at"`
}

type BankDisbursementBatchStatusModel struct {
	dbConnectionPool db.DBConnectionPool
}

const bankBatchStatusColumns = `
	b.batch_id,
	b.envelope_id,
	b.status,
	b.attempts,
	b.latest_error_code,
	b.dispatch_ts,
	b.created_at,
	b.updated_at
`

func (m *BankDisbursementBatchStatusModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, batchID, envelopeID string) error {
	query := `
		INSERT INTO bank_disbursement_batch_statuses (
			batch_id,
			envelope_id
		) VALUES ($1, $2)
	`

	_, err := sqlExec.ExecContext(ctx, query, batchID, envelopeID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrRecordAlreadyExists
		}
		return fmt.Errorf("inserting bank batch status %s: %w", batchID, err)
	}
	return nil
}

func (m *BankDisbursementBatchStatusModel) GetByBatchID(ctx context.Context, sqlExec db.SQLExecuter, batchID string) (*BankDisbursementBatchStatus, error) {
	var batchStatus BankDisbursementBatchStatus
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			bank_disbursement_batch_statuses b
		WHERE
			b.batch_id = $1
		`, bankBatchStatusColumns)

	err := sqlExec.GetContext(ctx, &batchStatus, query, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying bank batch status %s: %w", batchID, err)
	}
	return &batchStatus, nil
}

// GetByBatchIDForUpdate locks the batch status row for the remainder of the
// transaction.
func (m *BankDisbursementBatchStatusModel) GetByBatchIDForUpdate(ctx context.Context, dbTx db.DBTransaction, batchID string) (*BankDisbursementBatchStatus, error) {
	var batchStatus BankDisbursementBatchStatus
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			bank_disbursement_batch_statuses b
		WHERE
			b.batch_id = $1
		FOR UPDATE
		`, bankBatchStatusColumns)

	err := dbTx.GetContext(ctx, &batchStatus, query, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying bank batch status %s for update: %w", batchID, err)
	}
	return &batchStatus, nil
}

// GetBatchesEligibleForDispatch returns pending bank batch IDs whose envelope
// is not cancelled, fully received, and has its funds successfully blocked.
func (m *BankDisbursementBatchStatusModel) GetBatchesEligibleForDispatch(ctx context.Context, sqlExec db.SQLExecuter, maxAttempts int) ([]string, error) {
	batchIDs := []string{}
	query := `
		SELECT
			b.batch_id
		FROM
			bank_disbursement_batch_statuses b
			JOIN disbursement_envelopes e ON e.envelope_id = b.envelope_id
			JOIN disbursement_envelope_batch_statuses bs ON bs.envelope_id = b.envelope_id
		WHERE
			e.cancellation_status = $1
			AND bs.received_count = e.disbursement_count
			AND bs.funds_blocked = $2
			AND b.status = $3
			AND b.attempts < $4
		ORDER BY
			b.created_at ASC
	`

	err := sqlExec.SelectContext(ctx, &batchIDs, query,
		NotCancelledCancellationStatus, SuccessFundsBlockedStatus, PendingBatchProcessingStatus, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("querying bank batches eligible for dispatch: %w", err)
	}
	return batchIDs, nil
}

// MarkProcessed latches the batch PENDING → PROCESSED. Attempts and the
// dispatch timestamp advance, the error code clears.
func (m *BankDisbursementBatchStatusModel) MarkProcessed(ctx context.Context, sqlExec db.SQLExecuter, batchID string) error {
	query := `
		UPDATE
			bank_disbursement_batch_statuses
		SET
			status = $1,
			latest_error_code = '',
			dispatch_ts = NOW(),
			attempts = attempts + 1
		WHERE
			batch_id = $2
	`

	result, err := sqlExec.ExecContext(ctx, query, ProcessedBatchProcessingStatus, batchID)
	if err != nil {
		return fmt.Errorf("marking bank batch %s processed: %w", batchID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("no bank batch status %s: %w", batchID, ErrRecordNotFound)
	}
	return nil
}

// RecordFailure keeps the batch PENDING for a later retry while advancing
// attempts and the dispatch timestamp.
func (m *BankDisbursementBatchStatusModel) RecordFailure(ctx context.Context, sqlExec db.SQLExecuter, batchID, errorCode string) error {
	query := `
		UPDATE
			bank_disbursement_batch_statuses
		SET
			latest_error_code = $1,
			dispatch_ts = NOW(),
			attempts = attempts + 1
		WHERE
			batch_id = $2
	`

	result, err := sqlExec.ExecContext(ctx, query, errorCode, batchID)
	if err != nil {
		return fmt.Errorf("recording bank batch %s dispatch failure: %w", batchID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("no bank batch status %s: %w", batchID, ErrRecordNotFound)
	}
	return nil
}
