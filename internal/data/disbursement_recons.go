package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openg2p/g2p-bridge-backend/db"
)

// DisbursementRecon pairs one disbursement with the debit seen on a bank
// statement, and optionally with the reversal seen later.
type DisbursementRecon struct {
	BankDisbursementBatchID     string     `json:"bank_disbursement_batch_id" db:"bank_disbursement_batch_id" csv:"bank_disbursement_batch_id"`
	DisbursementID              string     `json:"disbursement_id" db:"disbursement_id" csv:"disbursement_id"`
	BeneficiaryNameFromBank     string     `json:"beneficiary_name_from_bank,omitempty" db:"beneficiary_name_from_bank" csv:"beneficiary_name_from_bank"`
	RemittanceReferenceNumber   string     `json:"remittance_reference_number,omitempty" db:"remittance_reference_number" csv:"remittance_reference_number"`
	RemittanceStatementID       string     `json:"remittance_statement_id" db:"remittance_statement_id" csv:"remittance_statement_id"`
	RemittanceStatementNumber   string     `json:"remittance_statement_number,omitempty" db:"remittance_statement_number" csv:"remittance_statement_number"`
	RemittanceStatementSequence string     `json:"remittance_statement_sequence,omitempty" db:"remittance_statement_sequence" csv:"remittance_statement_sequence"`
	RemittanceEntrySequence     int        `json:"remittance_entry_sequence" db:"remittance_entry_sequence" csv:"remittance_entry_sequence"`
	RemittanceEntryDate         *time.Time `json:"remittance_entry_date,omitempty" db:"remittance_entry_date" csv:"remittance_entry_date"`
	RemittanceValueDate         *time.Time `json:"remittance_value_date,omitempty" db:"remittance_value_date" csv:"remittance_value_date"`
	ReversalFound               bool       `json:"reversal_found" db:"reversal_found" csv:"reversal_found"`
	ReversalStatementID         string     `json:"reversal_statement_id,omitempty" db:"reversal_statement_id" csv:"reversal_statement_id"`
	ReversalStatementNumber     string     `json:"reversal_statement_number,omitempty" db:"reversal_statement_number" csv:"reversal_statement_number"`
	ReversalStatementSequence   string     `json:"reversal_statement_sequence,omitempty" db:"reversal_statement_sequence" csv:"reversal_statement_sequence"`
	ReversalEntrySequence       *int       `json:"reversal_entry_sequence,omitempty" db:"reversal_entry_sequence" csv:"reversal_entry_sequence"`
	ReversalEntryDate           *time.Time `json:"reversal_entry_date,omitempty" db:"reversal_entry_date" csv:"reversal_entry_date"`
	ReversalValueDate           *time.Time `json:"reversal_value_date,omitempty" db:"reversal_value_date" csv:"reversal_value_date"`
	ReversalReason              string     `json:"reversal_reason,omitempty" db:"reversal_reason" csv:"reversal_reason"`
	CreatedAt                   time.Time  `json:"created_at,omitempty" db:"created_at" csv:"-"`
	UpdatedAt                   time.Time  `json:"updated_at,omitempty" db:"updated_at" csv:"-"`
}

// ReconReversalUpdate carries the reversal-side fields applied to an existing
// recon row when an RD entry is paired with its debit.
type ReconReversalUpdate struct {
	StatementID       string
	StatementNumber   string
	StatementSequence string
	EntrySequence     int
	EntryDate         *time.Time
	ValueDate         *time.Time
	Reason            string
}

type DisbursementReconModel struct {
	dbConnectionPool db.DBConnectionPool
}

const disbursementReconColumns = `
	r.bank_disbursement_batch_id,
	r.disbursement_id,
	r.beneficiary_name_from_bank,
	r.remittance_reference_number,
	r.remittance_statement_id,
	r.remittance_statement_number,
	r.remittance_statement_sequence,
	r.remittance_entry_sequence,
	r.remittance_entry_date,
	r.remittance_value_date,
	r.reversal_found,
	r.reversal_statement_id,
	r.reversal_statement_number,
	r.reversal_statement_sequence,
	r.reversal_entry_sequence,
	r.reversal_entry_date,
	r.reversal_value_date,
	r.reversal_reason,
	r.created_at,
	r.updated_at
`

func (m *DisbursementReconModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, recon *DisbursementRecon) error {
	if recon == nil {
		return fmt.Errorf("recon is required: %w", ErrMissingInput)
	}

	query := `
		INSERT INTO disbursement_recons (
			bank_disbursement_batch_id,
			disbursement_id,
			beneficiary_name_from_bank,
			remittance_reference_number,
			remittance_statement_id,
			remittance_statement_number,
			remittance_statement_sequence,
			remittance_entry_sequence,
			remittance_entry_date,
			remittance_value_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := sqlExec.ExecContext(ctx, query,
		recon.BankDisbursementBatchID,
		recon.DisbursementID,
		recon.BeneficiaryNameFromBank,
		recon.RemittanceReferenceNumber,
		recon.RemittanceStatementID,
		recon.RemittanceStatementNumber,
		recon.RemittanceStatementSequence,
		recon.RemittanceEntrySequence,
		recon.RemittanceEntryDate,
		recon.RemittanceValueDate,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrRecordAlreadyExists
		}
		return fmt.Errorf("inserting disbursement recon for disbursement %s: %w", recon.DisbursementID, err)
	}
	return nil
}

func (m *DisbursementReconModel) GetByDisbursementID(ctx context.Context, sqlExec db.SQLExecuter, disbursementID string) (*DisbursementRecon, error) {
	var recon DisbursementRecon
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			disbursement_recons r
		WHERE
			r.disbursement_id = $1
		`, disbursementReconColumns)

	err := sqlExec.GetContext(ctx, &recon, query, disbursementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying disbursement recon for disbursement %s: %w", disbursementID, err)
	}
	return &recon, nil
}

// UpdateReversal pairs a reversed debit with its recon row.
func (m *DisbursementReconModel) UpdateReversal(ctx context.Context, sqlExec db.SQLExecuter, disbursementID string, reversal ReconReversalUpdate) error {
	query := `
		UPDATE
			disbursement_recons
		SET
			reversal_found = TRUE,
			reversal_statement_id = $1,
			reversal_statement_number = $2,
			reversal_statement_sequence = $3,
			reversal_entry_sequence = $4,
			reversal_entry_date = $5,
			reversal_value_date = $6,
			reversal_reason = $7
		WHERE
			disbursement_id = $8
	`

	result, err := sqlExec.ExecContext(ctx, query,
		reversal.StatementID,
		reversal.StatementNumber,
		reversal.StatementSequence,
		reversal.EntrySequence,
		reversal.EntryDate,
		reversal.ValueDate,
		reversal.Reason,
		disbursementID,
	)
	if err != nil {
		return fmt.Errorf("updating reversal on disbursement recon %s: %w", disbursementID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("no disbursement recon for disbursement %s: %w", disbursementID, ErrRecordNotFound)
	}
	return nil
}

// GetByEnvelopeID returns all recon rows whose disbursements belong to the
// given envelope, in statement entry order.
func (m *DisbursementReconModel) GetByEnvelopeID(ctx context.Context, sqlExec db.SQLExecuter, envelopeID string) ([]DisbursementRecon, error) {
	recons := []DisbursementRecon{}
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			disbursement_recons r
			JOIN disbursement_batch_controls bc ON bc.disbursement_id = r.disbursement_id
		WHERE
			bc.envelope_id = $1
		ORDER BY
			r.remittance_statement_id ASC, r.remittance_entry_sequence ASC
		`, disbursementReconColumns)

	err := sqlExec.SelectContext(ctx, &recons, query, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("querying disbursement recons for envelope %s: %w", envelopeID, err)
	}
	return recons, nil
}
