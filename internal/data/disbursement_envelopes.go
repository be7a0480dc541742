package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openg2p/g2p-bridge-backend/db"
)

type CancellationStatus string

const (
	NotCancelledCancellationStatus CancellationStatus = "NOT_CANCELLED"
	CancelledCancellationStatus    CancellationStatus = "CANCELLED"
)

func (status CancellationStatus) Validate() error {
	switch status {
	case NotCancelledCancellationStatus, CancelledCancellationStatus:
		return nil
	default:
		return fmt.Errorf("invalid cancellation status: %s", status)
	}
}

type DisbursementFrequency string

const (
	DailyDisbursementFrequency        DisbursementFrequency = "Daily"
	WeeklyDisbursementFrequency       DisbursementFrequency = "Weekly"
	FortnightlyDisbursementFrequency  DisbursementFrequency = "Fortnightly"
	MonthlyDisbursementFrequency      DisbursementFrequency = "Monthly"
	BiMonthlyDisbursementFrequency    DisbursementFrequency = "BiMonthly"
	QuarterlyDisbursementFrequency    DisbursementFrequency = "Quarterly"
	SemiAnnuallyDisbursementFrequency DisbursementFrequency = "SemiAnnually"
	AnnuallyDisbursementFrequency     DisbursementFrequency = "Annually"
	OnDemandDisbursementFrequency     DisbursementFrequency = "OnDemand"
)

// Validate validates the disbursement frequency. Frequency values are
// case-sensitive mnemonic strings agreed with program authorities.
func (frequency DisbursementFrequency) Validate() error {
	switch frequency {
	case DailyDisbursementFrequency, WeeklyDisbursementFrequency, FortnightlyDisbursementFrequency,
		MonthlyDisbursementFrequency, BiMonthlyDisbursementFrequency, QuarterlyDisbursementFrequency,
		SemiAnnuallyDisbursementFrequency, AnnuallyDisbursementFrequency, OnDemandDisbursementFrequency:
		return nil
	default:
		return fmt.Errorf("invalid disbursement frequency: %s", frequency)
	}
}

// DisbursementFrequencies returns a list of all possible disbursement frequencies.
func DisbursementFrequencies() []DisbursementFrequency {
	return []DisbursementFrequency{
		DailyDisbursementFrequency,
		WeeklyDisbursementFrequency,
		FortnightlyDisbursementFrequency,
		MonthlyDisbursementFrequency,
		BiMonthlyDisbursementFrequency,
		QuarterlyDisbursementFrequency,
		SemiAnnuallyDisbursementFrequency,
		AnnuallyDisbursementFrequency,
		OnDemandDisbursementFrequency,
	}
}

// DisbursementEnvelope is the immutable declaration of a payment campaign.
// Only the cancellation pair ever mutates after creation.
type DisbursementEnvelope struct {
	EnvelopeID         string                `json:"disbursement_envelope_id" db:"envelope_id"`
	ProgramMnemonic    string                `json:"benefit_program_mnemonic" db:"program_mnemonic"`
	CycleCodeMnemonic  string                `json:"cycle_code_mnemonic" db:"cycle_code_mnemonic"`
	Frequency          DisbursementFrequency `json:"disbursement_frequency" db:"frequency"`
	BeneficiaryCount   int                   `json:"number_of_beneficiaries" db:"beneficiary_count"`
	DisbursementCount  int                   `json:"number_of_disbursements" db:"disbursement_count"`
	TotalAmount        decimal.Decimal       `json:"total_disbursement_amount" db:"total_amount"`
	ScheduleDate       time.Time             `json:"disbursement_schedule_date" db:"schedule_date"`
	ReceiptTS          time.Time             `json:"receipt_time_stamp" db:"receipt_ts"`
	CancellationStatus CancellationStatus    `json:"cancellation_status" db:"cancellation_status"`
	CancellationTS     *time.Time            `json:"cancellation_time_stamp,omitempty" db:"cancellation_ts"`
	CreatedAt          time.Time             `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at,omitempty" db:"updated_at"`
}

type DisbursementEnvelopeModel struct {
	dbConnectionPool db.DBConnectionPool
}

const disbursementEnvelopeColumns = `
	e.envelope_id,
	e.program_mnemonic,
	e.cycle_code_mnemonic,
	e.frequency,
	e.beneficiary_count,
	e.disbursement_count,
	e.total_amount,
	e.schedule_date,
	e.receipt_ts,
	e.cancellation_status,
	e.cancellation_ts,
	e.created_at,
	e.updated_at
`

// Insert persists a new envelope and returns the server-assigned envelope ID.
func (m *DisbursementEnvelopeModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, envelope *DisbursementEnvelope) (string, error) {
	if envelope == nil {
		return "", fmt.Errorf("envelope is required: %w", ErrMissingInput)
	}

	query := `
		INSERT INTO disbursement_envelopes (
			envelope_id,
			program_mnemonic,
			cycle_code_mnemonic,
			frequency,
			beneficiary_count,
			disbursement_count,
			total_amount,
			schedule_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING envelope_id, receipt_ts
	`

	err := sqlExec.QueryRowxContext(ctx, query,
		envelope.EnvelopeID,
		envelope.ProgramMnemonic,
		envelope.CycleCodeMnemonic,
		envelope.Frequency,
		envelope.BeneficiaryCount,
		envelope.DisbursementCount,
		envelope.TotalAmount,
		envelope.ScheduleDate,
	).Scan(&envelope.EnvelopeID, &envelope.ReceiptTS)
	if err != nil {
		if isDuplicateKeyError(err) {
			return "", ErrRecordAlreadyExists
		}
		return "", fmt.Errorf("inserting disbursement envelope: %w", err)
	}
	return envelope.EnvelopeID, nil
}

func (m *DisbursementEnvelopeModel) Get(ctx context.Context, sqlExec db.SQLExecuter, envelopeID string) (*DisbursementEnvelope, error) {
	var envelope DisbursementEnvelope
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			disbursement_envelopes e
		WHERE
			e.envelope_id = $1
		`, disbursementEnvelopeColumns)

	err := sqlExec.GetContext(ctx, &envelope, query, envelopeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying disbursement envelope %s: %w", envelopeID, err)
	}
	return &envelope, nil
}

// GetForUpdate locks the envelope row for the remainder of the transaction.
func (m *DisbursementEnvelopeModel) GetForUpdate(ctx context.Context, dbTx db.DBTransaction, envelopeID string) (*DisbursementEnvelope, error) {
	var envelope DisbursementEnvelope
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			disbursement_envelopes e
		WHERE
			e.envelope_id = $1
		FOR UPDATE
		`, disbursementEnvelopeColumns)

	err := dbTx.GetContext(ctx, &envelope, query, envelopeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying disbursement envelope %s for update: %w", envelopeID, err)
	}
	return &envelope, nil
}

// Cancel marks a not-yet-cancelled envelope as cancelled.
func (m *DisbursementEnvelopeModel) Cancel(ctx context.Context, sqlExec db.SQLExecuter, envelopeID string) error {
	query := `
		UPDATE
			disbursement_envelopes
		SET
			cancellation_status = $1,
			cancellation_ts = NOW()
		WHERE
			envelope_id = $2
			AND cancellation_status = $3
	`

	result, err := sqlExec.ExecContext(ctx, query, CancelledCancellationStatus, envelopeID, NotCancelledCancellationStatus)
	if err != nil {
		return fmt.Errorf("cancelling disbursement envelope %s: %w", envelopeID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("envelope %s could not be cancelled: %w", envelopeID, ErrMismatchNumRowsAffected)
	}
	return nil
}
