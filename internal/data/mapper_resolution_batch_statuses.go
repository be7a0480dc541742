package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openg2p/g2p-bridge-backend/db"
)

// MapperResolutionBatchStatus is the resolution state of one mapper batch.
type MapperResolutionBatchStatus struct {
	BatchID         string                `json:"batch_id" db:"batch_id"`
	Status          BatchProcessingStatus `json:"status" db:"status"`
	Attempts        int                   `json:"attempts" db:"attempts"`
	LatestErrorCode string                `json:"latest_error_code,omitempty" db:"latest_error_code"`
	ResolutionTS    *time.Time            `json:"resolution_ts,omitempty" db:"resolution_ts"`
	CreatedAt       time.Time             `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at,omitempty" db:"updated_at"`
}

type MapperResolutionBatchStatusModel struct {
	dbConnectionPool db.DBConnectionPool
}

const mapperBatchStatusColumns = `
	mb.batch_id,
	mb.status,
	mb.attempts,
	mb.latest_error_code,
	mb.resolution_ts,
	mb.created_at,
	mb.updated_at
`

func (m *MapperResolutionBatchStatusModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, batchID string) error {
	query := `
		INSERT INTO mapper_resolution_batch_statuses (
			batch_id
		) VALUES ($1)
	`

	_, err := sqlExec.ExecContext(ctx, query, batchID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrRecordAlreadyExists
		}
		return fmt.Errorf("inserting mapper batch status %s: %w", batchID, err)
	}
	return nil
}

func (m *MapperResolutionBatchStatusModel) GetByBatchID(ctx context.Context, sqlExec db.SQLExecuter, batchID string) (*MapperResolutionBatchStatus, error) {
	var batchStatus MapperResolutionBatchStatus
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			mapper_resolution_batch_statuses mb
		WHERE
			mb.batch_id = $1
		`, mapperBatchStatusColumns)

	err := sqlExec.GetContext(ctx, &batchStatus, query, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying mapper batch status %s: %w", batchID, err)
	}
	return &batchStatus, nil
}

// GetByBatchIDForUpdate locks the batch status row for the remainder of the
// transaction.
func (m *MapperResolutionBatchStatusModel) GetByBatchIDForUpdate(ctx context.Context, dbTx db.DBTransaction, batchID string) (*MapperResolutionBatchStatus, error) {
	var batchStatus MapperResolutionBatchStatus
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			mapper_resolution_batch_statuses mb
		WHERE
			mb.batch_id = $1
		FOR UPDATE
		`, mapperBatchStatusColumns)

	err := dbTx.GetContext(ctx, &batchStatus, query, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying mapper batch status %s for update: %w", batchID, err)
	}
	return &batchStatus, nil
}

// GetBatchesEligibleForResolution returns pending mapper batch IDs still
// within their attempt budget.
func (m *MapperResolutionBatchStatusModel) GetBatchesEligibleForResolution(ctx context.Context, sqlExec db.SQLExecuter, maxAttempts int) ([]string, error) {
	batchIDs := []string{}
	query := `
		SELECT
			mb.batch_id
		FROM
			mapper_resolution_batch_statuses mb
		WHERE
			mb.status = $1
			AND mb.attempts < $2
		ORDER BY
			mb.created_at ASC
	`

	err := sqlExec.SelectContext(ctx, &batchIDs, query, PendingBatchProcessingStatus, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("querying mapper batches eligible for resolution: %w", err)
	}
	return batchIDs, nil
}

// MarkProcessed latches the batch PENDING → PROCESSED with the resolution
// timestamp set and the error code cleared.
func (m *MapperResolutionBatchStatusModel) MarkProcessed(ctx context.Context, sqlExec db.SQLExecuter, batchID string) error {
	query := `
		UPDATE
			mapper_resolution_batch_statuses
		SET
			status = $1,
			latest_error_code = '',
			resolution_ts = NOW(),
			attempts = attempts + 1
		WHERE
			batch_id = $2
	`

	result, err := sqlExec.ExecContext(ctx, query, ProcessedBatchProcessingStatus, batchID)
	if err != nil {
		return fmt.Errorf("marking mapper batch %s processed: %w", batchID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("no mapper batch status %s: %w", batchID, ErrRecordNotFound)
	}
	return nil
}

// RecordFailure keeps the batch PENDING for a later retry while advancing
// attempts.
func (m *MapperResolutionBatchStatusModel) RecordFailure(ctx context.Context, sqlExec db.SQLExecuter, batchID, errorCode string) error {
	query := `
		UPDATE
			mapper_resolution_batch_statuses
		SET
			latest_error_code = $1,
			attempts = attempts + 1
		WHERE
			batch_id = $2
	`

	result, err := sqlExec.ExecContext(ctx, query, errorCode, batchID)
	if err != nil {
		return fmt.Errorf("recording mapper batch %s resolution failure: %w", batchID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("no mapper batch status %s: %w", batchID, ErrRecordNotFound)
	}
	return nil
}
