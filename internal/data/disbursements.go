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

// Disbursement is one beneficiary line inside an envelope.
type Disbursement struct {
	DisbursementID     string             `json:"disbursement_id" db:"disbursement_id"`
	EnvelopeID         string             `json:"disbursement_envelope_id" db:"envelope_id"`
	BeneficiaryID      string             `json:"beneficiary_id" db:"beneficiary_id"`
	BeneficiaryName    string             `json:"beneficiary_name" db:"beneficiary_name"`
	Narrative          string             `json:"narrative" db:"narrative"`
	Amount             decimal.Decimal    `json:"disbursement_amount" db:"amount"`
	ReceiptTS          time.Time          `json:"receipt_time_stamp" db:"receipt_ts"`
	CancellationStatus CancellationStatus `json:"cancellation_status" db:"cancellation_status"`
	CancellationTS     *time.Time         `json:"cancellation_time_stamp,omitempty" db:"cancellation_ts"`
	CreatedAt          time.Time          `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at,omitempty" db:"updated_at"`
}

type DisbursementModel struct {
	dbConnectionPool db.DBConnectionPool
}

const disbursementColumns = `
	d.disbursement_id,
	d.envelope_id,
	d.beneficiary_id,
	d.beneficiary_name,
	d.narrative,
	d.amount,
	d.receipt_ts,
	d.cancellation_status,
	d.cancellation_ts,
	d.created_at,
	d.updated_at
`

// InsertAll persists the given disbursements, filling in the server-assigned
// IDs and receipt timestamps in place.
func (m *DisbursementModel) InsertAll(ctx context.Context, sqlExec db.SQLExecuter, disbursements []*Disbursement) error {
	if len(disbursements) == 0 {
		return fmt.Errorf("no disbursements to insert: %w", ErrMissingInput)
	}

	query := `
		INSERT INTO disbursements (
			disbursement_id,
			envelope_id,
			beneficiary_id,
			beneficiary_name,
			narrative,
			amount
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING disbursement_id, receipt_ts
	`

	for _, disbursement := range disbursements {
		err := sqlExec.QueryRowxContext(ctx, query,
			disbursement.DisbursementID,
			disbursement.EnvelopeID,
			disbursement.BeneficiaryID,
			disbursement.BeneficiaryName,
			disbursement.Narrative,
			disbursement.Amount,
		).Scan(&disbursement.DisbursementID, &disbursement.ReceiptTS)
		if err != nil {
			if isDuplicateKeyError(err) {
				return ErrRecordAlreadyExists
			}
			return fmt.Errorf("inserting disbursement for beneficiary %s: %w", disbursement.BeneficiaryID, err)
		}
	}
	return nil
}

func (m *DisbursementModel) Get(ctx context.Context, sqlExec db.SQLExecuter, disbursementID string) (*Disbursement, error) {
	var disbursement Disbursement
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			disbursements d
		WHERE
			d.disbursement_id = $1
		`, disbursementColumns)

	err := sqlExec.GetContext(ctx, &disbursement, query, disbursementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying disbursement %s: %w", disbursementID, err)
	}
	return &disbursement, nil
}

func (m *DisbursementModel) GetByIDs(ctx context.Context, sqlExec db.SQLExecuter, disbursementIDs []string) ([]Disbursement, error) {
	disbursements := []Disbursement{}
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			disbursements d
		WHERE
			d.disbursement_id = ANY($1)
		ORDER BY
			d.receipt_ts ASC
		`, disbursementColumns)

	err := sqlExec.SelectContext(ctx, &disbursements, query, pq.Array(disbursementIDs))
	if err != nil {
		return nil, fmt.Errorf("querying disbursements by IDs: %w", err)
	}
	return disbursements, nil
}

// GetByIDsForUpdate locks the matching disbursement rows for the remainder of
// the transaction.
func (m *DisbursementModel) GetByIDsForUpdate(ctx context.Context, dbTx db.DBTransaction, disbursementIDs []string) ([]Disbursement, error) {
	disbursements := []Disbursement{}
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			disbursements d
		WHERE
			d.disbursement_id = ANY($1)
		ORDER BY
			d.receipt_ts ASC
		FOR UPDATE
		`, disbursementColumns)

	err := dbTx.SelectContext(ctx, &disbursements, query, pq.Array(disbursementIDs))
	if err != nil {
		return nil, fmt.Errorf("querying disbursements by IDs for update: %w", err)
	}
	return disbursements, nil
}

// GetByBankBatchID returns all disbursements controlled by the given bank
// dispatch batch, cancelled ones included.
func (m *DisbursementModel) GetByBankBatchID(ctx context.Context, sqlExec db.SQLExecuter, bankBatchID string) ([]Disbursement, error) {
	disbursements := []Disbursement{}
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			disbursements d
			JOIN disbursement_batch_controls bc ON bc.disbursement_id = d.disbursement_id
		WHERE
			bc.bank_disbursement_batch_id = $1
		ORDER BY
			d.receipt_ts ASC
		`, disbursementColumns)

	err := sqlExec.SelectContext(ctx, &disbursements, query, bankBatchID)
	if err != nil {
		return nil, fmt.Errorf("querying disbursements for bank batch %s: %w", bankBatchID, err)
	}
	return disbursements, nil
}

// CancelAll marks all the given disbursements as cancelled. It returns
// ErrMismatchNumRowsAffected if any of them was missing or already cancelled.
func (m *DisbursementModel) CancelAll(ctx context.Context, sqlExec db.SQLExecuter, disbursementIDs []string) error {
	query := `
		UPDATE
			disbursements
		SET
			cancellation_status = $1,
			cancellation_ts = NOW()
		WHERE
			disbursement_id = ANY($2)
			AND cancellation_status = $3
	`

	result, err := sqlExec.ExecContext(ctx, query, CancelledCancellationStatus, pq.Array(disbursementIDs), NotCancelledCancellationStatus)
	if err != nil {
		return fmt.Errorf("cancelling disbursements: %w", err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected != int64(len(disbursementIDs)) {
		return fmt.Errorf("expected to cancel %d disbursements but cancelled %d: %w", len(disbursementIDs), numRowsAffected, ErrMismatchNumRowsAffected)
	}
	return nil
}
