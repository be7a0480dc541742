package data

import (
	"context"
	"fmt"
	"time"

	"github.com/openg2p/g2p-bridge-backend/db"
)

// ReconErrorReason explains why a statement entry could not be attributed to
// a disbursement.
type ReconErrorReason string

const (
	InvalidDisbursementIDReconErrorReason ReconErrorReason = "INVALID_DISBURSEMENT_ID"
	DuplicateDisbursementReconErrorReason ReconErrorReason = "DUPLICATE_DISBURSEMENT"
	InvalidReversalReconErrorReason       ReconErrorReason = "INVALID_REVERSAL"
)

func (reason ReconErrorReason) Validate() error {
	switch reason {
	case InvalidDisbursementIDReconErrorReason, DuplicateDisbursementReconErrorReason, InvalidReversalReconErrorReason:
		return nil
	default:
		return fmt.Errorf("invalid recon error reason: %s", reason)
	}
}

// DisbursementErrorRecon records a statement entry the reconciler could not
// attribute. DisbursementID is empty when the entry named no known
// disbursement at all.
type DisbursementErrorRecon struct {
	StatementID         string           `json:"statement_id" db:"statement_id"`
	StatementNumber     string           `json:"statement_number,omitempty" db:"statement_number"`
	StatementSequence   string           `json:"statement_sequence,omitempty" db:"statement_sequence"`
	EntrySequence       int              `json:"entry_sequence" db:"entry_sequence"`
	EntryDate           *time.Time       `json:"entry_date,omitempty" db:"entry_date"`
	ValueDate           *time.Time       `json:"value_date,omitempty" db:"value_date"`
	BankReferenceNumber string           `json:"bank_reference_number,omitempty" db:"bank_reference_number"`
	DisbursementID      string           `json:"disbursement_id,omitempty" db:"disbursement_id"`
	ErrorReason         ReconErrorReason `json:"error_reason" db:"error_reason"`
	CreatedAt           time.Time        `json:"created_at,omitempty" db:"created_at"`
}

type DisbursementErrorReconModel struct {
	dbConnectionPool db.DBConnectionPool
}

const disbursementErrorReconColumns = `
	er.statement_id,
	er.statement_number,
	er.statement_sequence,
	er.entry_sequence,
	er.entry_date,
	er.value_date,
	er.bank_reference_number,
	er.disbursement_id,
	er.error_reason,
	er.created_at
`

func (m *DisbursementErrorReconModel) InsertAll(ctx context.Context, sqlExec db.SQLExecuter, errorRecons []DisbursementErrorRecon) error {
	query := `
		INSERT INTO disbursement_error_recons (
			statement_id,
			statement_number,
			statement_sequence,
			entry_sequence,
			entry_date,
			value_date,
			bank_reference_number,
			disbursement_id,
			error_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, errorRecon := range errorRecons {
		_, err := sqlExec.ExecContext(ctx, query,
			errorRecon.StatementID,
			errorRecon.StatementNumber,
			errorRecon.StatementSequence,
			errorRecon.EntrySequence,
			errorRecon.EntryDate,
			errorRecon.ValueDate,
			errorRecon.BankReferenceNumber,
			errorRecon.DisbursementID,
			errorRecon.ErrorReason,
		)
		if err != nil {
			return fmt.Errorf("inserting disbursement error recon for statement %s entry %d: %w", errorRecon.StatementID, errorRecon.EntrySequence, err)
		}
	}
	return nil
}

func (m *DisbursementErrorReconModel) GetByStatementID(ctx context.Context, sqlExec db.SQLExecuter, statementID string) ([]DisbursementErrorRecon, error) {
	errorRecons := []DisbursementErrorRecon{}
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			disbursement_error_recons er
		WHERE
			er.statement_id = $1
		ORDER BY
			er.entry_sequence ASC
		`, disbursementErrorReconColumns)

	err := sqlExec.SelectContext(ctx, &errorRecons, query, statementID)
	if err != nil {
		return nil, fmt.Errorf("querying disbursement error recons for statement %s: %w", statementID, err)
	}
	return errorRecons, nil
}
