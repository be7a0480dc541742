package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/openg2p/g2p-bridge-backend/db"
)

type FundsAvailableStatus string

const (
	PendingCheckFundsAvailableStatus      FundsAvailableStatus = "PENDING_CHECK"
	FundsAvailableFundsAvailableStatus    FundsAvailableStatus = "FUNDS_AVAILABLE"
	FundsNotAvailableFundsAvailableStatus FundsAvailableStatus = "FUNDS_NOT_AVAILABLE"
)

func (status FundsAvailableStatus) Validate() error {
	switch status {
	case PendingCheckFundsAvailableStatus, FundsAvailableFundsAvailableStatus, FundsNotAvailableFundsAvailableStatus:
		return nil
	default:
		return fmt.Errorf("invalid funds available status: %s", status)
	}
}

type FundsBlockedStatus string

const (
	PendingCheckFundsBlockedStatus FundsBlockedStatus = "PENDING_CHECK"
	SuccessFundsBlockedStatus      FundsBlockedStatus = "FUNDS_BLOCK_SUCCESS"
	FailureFundsBlockedStatus      FundsBlockedStatus = "FUNDS_BLOCK_FAILURE"
)

func (status FundsBlockedStatus) Validate() error {
	switch status {
	case PendingCheckFundsBlockedStatus, SuccessFundsBlockedStatus, FailureFundsBlockedStatus:
		return nil
	default:
		return fmt.Errorf("invalid funds blocked status: %s", status)
	}
}

// DisbursementEnvelopeBatchStatus carries the running totals and per-stage
// state of one envelope, 1:1 with disbursement_envelopes.
type DisbursementEnvelopeBatchStatus struct {
	EnvelopeID                  string               `json:"envelope_id" db:"envelope_id"`
	ReceivedCount               int                  `json:"received_count" db:"received_count"`
	ReceivedAmount              decimal.Decimal      `json:"received_amount" db:"received_amount"`
	ShippedCount                int                  `json:"shipped_count" db:"shipped_count"`
	SucceededCount              int                  `json:"succeeded_count" db:"succeeded_count"`
	FailedCount                 int                  `json:"failed_count" db:"failed_count"`
	FundsAvailable              FundsAvailableStatus `json:"funds_available" db:"funds_available"`
	FundsAvailableTS            *time.Time           `json:"funds_available_ts,omitempty" db:"funds_available_ts"`
	FundsAvailableErrorCode     string               `json:"funds_available_error_code,omitempty" db:"funds_available_error_code"`
	FundsAvailableAttempts      int                  `json:"funds_available_attempts" db:"funds_available_attempts"`
	FundsBlocked                FundsBlockedStatus   `json:"funds_blocked" db:"funds_blocked"`
	FundsBlockedTS              *time.Time           `json:"funds_blocked_ts,omitempty" db:"funds_blocked_ts"`
	FundsBlockedErrorCode       string               `json:"funds_blocked_error_code,omitempty" db:"funds_blocked_error_code"`
	FundsBlockedAttempts        int                  `json:"funds_blocked_attempts" db:"funds_blocked_attempts"`
	FundsBlockedReferenceNumber string               `json:"funds_blocked_reference_number,omitempty" db:"funds_blocked_reference_number"`
	IDMapperResolutionRequired  bool                 `json:"id_mapper_resolution_required" db:"id_mapper_resolution_required"`
	CreatedAt                   time.Time            `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt                   time.Time            `json:"updated_at,omitempty" db:"updated_at"`
}

type DisbursementEnvelopeBatchStatusModel struct {
	dbConnectionPool db.DBConnectionPool
}

const envelopeBatchStatusColumns = `
	bs.envelope_id,
	bs.received_count,
	bs.received_amount,
	bs.shipped_count,
	bs.succeeded_count,
	bs.failed_count,
	bs.funds_available,
	bs.funds_available_ts,
	bs.funds_available_error_code,
	bs.funds_available_attempts,
	bs.funds_blocked,
	bs.funds_blocked_ts,
	bs.funds_blocked_error_code,
	bs.funds_blocked_attempts,
	bs.funds_blocked_reference_number,
	bs.id_mapper_resolution_required,
	bs.created_at,
	bs.updated_at
`

// Insert creates the initial batch status for an envelope: counters at zero,
// both fund states at PENDING_CHECK.
func (m *DisbursementEnvelopeBatchStatusModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, envelopeID string, idMapperResolutionRequired bool) error {
	query := `
		INSERT INTO disbursement_envelope_batch_statuses (
			envelope_id,
			id_mapper_resolution_required
		) VALUES ($1, $2)
	`

	_, err := sqlExec.ExecContext(ctx, query, envelopeID, idMapperResolutionRequired)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrRecordAlreadyExists
		}
		return fmt.Errorf("inserting envelope batch status for envelope %s: %w", envelopeID, err)
	}
	return nil
}

func (m *DisbursementEnvelopeBatchStatusModel) GetByEnvelopeID(ctx context.Context, sqlExec db.SQLExecuter, envelopeID string) (*DisbursementEnvelopeBatchStatus, error) {
	var batchStatus DisbursementEnvelopeBatchStatus
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			disbursement_envelope_batch_statuses bs
		WHERE
			bs.envelope_id = $1
		`, envelopeBatchStatusColumns)

	err := sqlExec.GetContext(ctx, &batchStatus, query, envelopeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying envelope batch status for envelope %s: %w", envelopeID, err)
	}
	return &batchStatus, nil
}

// GetByEnvelopeIDForUpdate locks the batch status row for the remainder of
// the transaction. Ingress quota checks and stage write-backs serialize on
// this lock.
func (m *DisbursementEnvelopeBatchStatusModel) GetByEnvelopeIDForUpdate(ctx context.Context, dbTx db.DBTransaction, envelopeID string) (*DisbursementEnvelopeBatchStatus, error) {
	var batchStatus DisbursementEnvelopeBatchStatus
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			disbursement_envelope_batch_statuses bs
		WHERE
			bs.envelope_id = $1
		FOR UPDATE
		`, envelopeBatchStatusColumns)

	err := dbTx.GetContext(ctx, &batchStatus, query, envelopeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying envelope batch status for envelope %s for update: %w", envelopeID, err)
	}
	return &batchStatus, nil
}

// AddReceived moves the received counters by the given deltas. Deltas are
// negative on the cancellation path; the CHECK constraints backstop the
// non-negativity invariant the caller must have verified.
func (m *DisbursementEnvelopeBatchStatusModel) AddReceived(ctx context.Context, sqlExec db.SQLExecuter, envelopeID string, deltaCount int, deltaAmount decimal.Decimal) error {
	query := `
		UPDATE
			disbursement_envelope_batch_statuses
		SET
			received_count = received_count + $1,
			received_amount = received_amount + $2
		WHERE
			envelope_id = $3
	`

	result, err := sqlExec.ExecContext(ctx, query, deltaCount, deltaAmount, envelopeID)
	if err != nil {
		return fmt.Errorf("updating received counters for envelope %s: %w", envelopeID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("no batch status for envelope %s: %w", envelopeID, ErrRecordNotFound)
	}
	return nil
}

// AddShipped advances shipped_count after a bank batch is dispatched.
func (m *DisbursementEnvelopeBatchStatusModel) AddShipped(ctx context.Context, sqlExec db.SQLExecuter, envelopeID string, deltaCount int) error {
	query := `
		UPDATE
			disbursement_envelope_batch_statuses
		SET
			shipped_count = shipped_count + $1
		WHERE
			envelope_id = $2
	`

	result, err := sqlExec.ExecContext(ctx, query, deltaCount, envelopeID)
	if err != nil {
		return fmt.Errorf("updating shipped count for envelope %s: %w", envelopeID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("no batch status for envelope %s: %w", envelopeID, ErrRecordNotFound)
	}
	return nil
}

// RecordFundsAvailability writes back the outcome of a fund availability
// check and advances the attempt counter.
func (m *DisbursementEnvelopeBatchStatusModel) RecordFundsAvailability(ctx context.Context, sqlExec db.SQLExecuter, envelopeID string, status FundsAvailableStatus, errorCode string) error {
	query := `
		UPDATE
			disbursement_envelope_batch_statuses
		SET
			funds_available = $1,
			funds_available_error_code = $2,
			funds_available_ts = NOW(),
			funds_available_attempts = funds_available_attempts + 1
		WHERE
			envelope_id = $3
	`

	result, err := sqlExec.ExecContext(ctx, query, status, errorCode, envelopeID)
	if err != nil {
		return fmt.Errorf("recording funds availability for envelope %s: %w", envelopeID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("no batch status for envelope %s: %w", envelopeID, ErrRecordNotFound)
	}
	return nil
}

// RecordFundsBlock writes back the outcome of a fund block attempt and
// advances the attempt counter. The reference number is bank-supplied and
// empty on failure.
func (m *DisbursementEnvelopeBatchStatusModel) RecordFundsBlock(ctx context.Context, sqlExec db.SQLExecuter, envelopeID string, status FundsBlockedStatus, referenceNumber, errorCode string) error {
	query := `
		UPDATE
			disbursement_envelope_batch_statuses
		SET
			funds_blocked = $1,
			funds_blocked_reference_number = $2,
			funds_blocked_error_code = $3,
			funds_blocked_ts = NOW(),
			funds_blocked_attempts = funds_blocked_attempts + 1
		WHERE
			envelope_id = $4
	`

	result, err := sqlExec.ExecContext(ctx, query, status, referenceNumber, errorCode, envelopeID)
	if err != nil {
		return fmt.Errorf("recording funds block for envelope %s: %w", envelopeID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("no batch status for envelope %s: %w", envelopeID, ErrRecordNotFound)
	}
	return nil
}

// GetEnvelopesEligibleForFundsCheck returns the IDs of envelopes due a fund
// availability check: not cancelled, schedule date strictly before today,
// fully received in count and amount, and not yet confirmed available nor out
// of attempts.
func (m *DisbursementEnvelopeBatchStatusModel) GetEnvelopesEligibleForFundsCheck(ctx context.Context, sqlExec db.SQLExecuter, today time.Time, maxAttempts int) ([]string, error) {
	envelopeIDs := []string{}
	query := `
		SELECT
			e.envelope_id
		FROM
			disbursement_envelopes e
			JOIN disbursement_envelope_batch_statuses bs ON bs.envelope_id = e.envelope_id
		WHERE
			e.cancellation_status = $1
			AND e.schedule_date < $2::date
			AND bs.received_count = e.disbursement_count
			AND bs.received_amount = e.total_amount
			AND bs.funds_available = ANY($3)
			AND bs.funds_available_attempts < $4
		ORDER BY
			e.schedule_date ASC
	`

	eligibleStatuses := []FundsAvailableStatus{PendingCheckFundsAvailableStatus, FundsNotAvailableFundsAvailableStatus}
	err := sqlExec.SelectContext(ctx, &envelopeIDs, query, NotCancelledCancellationStatus, today, pq.Array(eligibleStatuses), maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("querying envelopes eligible for funds check: %w", err)
	}
	return envelopeIDs, nil
}

// GetEnvelopesEligibleForFundsBlock returns the IDs of envelopes due a fund
// block: not cancelled, schedule date on or before today, fully received in
// count, funds confirmed available, and the block not yet succeeded nor out
// of attempts.
func (m *DisbursementEnvelopeBatchStatusModel) GetEnvelopesEligibleForFundsBlock(ctx context.Context, sqlExec db.SQLExecuter, today time.Time, maxAttempts int) ([]string, error) {
	envelopeIDs := []string{}
	query := `
		SELECT
			e.envelope_id
		FROM
			disbursement_envelopes e
			JOIN disbursement_envelope_batch_statuses bs ON bs.envelope_id = e.envelope_id
		WHERE
			e.cancellation_status = $1
			AND e.schedule_date <= $2::date
			AND bs.received_count = e.disbursement_count
			AND bs.funds_available = $3
			AND bs.funds_blocked = ANY($4)
			AND bs.funds_blocked_attempts < $5
		ORDER BY
			e.schedule_date ASC
	`

	eligibleStatuses := []FundsBlockedStatus{PendingCheckFundsBlockedStatus, FailureFundsBlockedStatus}
	err := sqlExec.SelectContext(ctx, &envelopeIDs, query,
		NotCancelledCancellationStatus, today, FundsAvailableFundsAvailableStatus, pq.Array(eligibleStatuses), maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("querying envelopes eligible for funds block: %w", err)
	}
	return envelopeIDs, nil
}
