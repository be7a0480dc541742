package data

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/openg2p/g2p-bridge-backend/db"
)

const (
	FixtureProgramMnemonic = "PM-NREGA"
	FixtureSponsorBankCode = "EXAMPLE"
)

func CreateBenefitProgramConfigurationFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, programMnemonic string) *BenefitProgramConfiguration {
	config := &BenefitProgramConfiguration{
		ProgramMnemonic:            programMnemonic,
		ProgramName:                "Rural Employment Guarantee",
		FundingOrgCode:             "FO-01",
		FundingOrgName:             "Ministry of Rural Development",
		SponsorBankCode:            FixtureSponsorBankCode,
		SponsorBankAccountNumber:   "SA-" + programMnemonic,
		SponsorBankBranchCode:      "BR-001",
		SponsorBankAccountCurrency: "USD",
		IDMapperResolutionRequired: true,
	}

	const query = `
		INSERT INTO benefit_program_configurations (
			program_mnemonic,
			program_name,
			funding_org_code,
			funding_org_name,
			sponsor_bank_code,
			sponsor_bank_account_number,
			sponsor_bank_branch_code,
			sponsor_bank_account_currency,
			id_mapper_resolution_required
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := sqlExec.QueryRowxContext(ctx, query,
		config.ProgramMnemonic, config.ProgramName, config.FundingOrgCode, config.FundingOrgName,
		config.SponsorBankCode, config.SponsorBankAccountNumber, config.SponsorBankBranchCode,
		config.SponsorBankAccountCurrency, config.IDMapperResolutionRequired,
	).Scan(&config.CreatedAt, &config.UpdatedAt)
	require.NoError(t, err)

	return config
}

func DeleteAllBenefitProgramConfigurationFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	_, err := sqlExec.ExecContext(ctx, "DELETE FROM benefit_program_configurations")
	require.NoError(t, err)
}

// CreateDisbursementEnvelopeFixture inserts the envelope and its batch status
// row, filling deterministic defaults for any zero field. The batch status
// starts at the state ingress leaves it in.
func CreateDisbursementEnvelopeFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, envelope *DisbursementEnvelope) *DisbursementEnvelope {
	if envelope.EnvelopeID == "" {
		envelope.EnvelopeID = uuid.NewString()
	}
	if envelope.ProgramMnemonic == "" {
		envelope.ProgramMnemonic = FixtureProgramMnemonic
	}
	if envelope.CycleCodeMnemonic == "" {
		envelope.CycleCodeMnemonic = "CY-2024-01"
	}
	if envelope.Frequency == "" {
		envelope.Frequency = MonthlyDisbursementFrequency
	}
	if envelope.BeneficiaryCount == 0 {
		envelope.BeneficiaryCount = 2
	}
	if envelope.DisbursementCount == 0 {
		envelope.DisbursementCount = 2
	}
	if envelope.TotalAmount.IsZero() {
		envelope.TotalAmount = decimal.NewFromInt(200)
	}
	if envelope.ScheduleDate.IsZero() {
		envelope.ScheduleDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if envelope.CancellationStatus == "" {
		envelope.CancellationStatus = NotCancelledCancellationStatus
	}

	const envelopeQuery = `
		INSERT INTO disbursement_envelopes (
			envelope_id,
			program_mnemonic,
			cycle_code_mnemonic,
			frequency,
			beneficiary_count,
			disbursement_count,
			total_amount,
			schedule_date,
			cancellation_status,
			cancellation_ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING receipt_ts, created_at, updated_at
	`

	err := sqlExec.QueryRowxContext(ctx, envelopeQuery,
		envelope.EnvelopeID, envelope.ProgramMnemonic, envelope.CycleCodeMnemonic, envelope.Frequency,
		envelope.BeneficiaryCount, envelope.DisbursementCount, envelope.TotalAmount,
		envelope.ScheduleDate, envelope.CancellationStatus, envelope.CancellationTS,
	).Scan(&envelope.ReceiptTS, &envelope.CreatedAt, &envelope.UpdatedAt)
	require.NoError(t, err)

	const statusQuery = `
		INSERT INTO disbursement_envelope_batch_statuses (envelope_id) VALUES ($1)
	`
	_, err = sqlExec.ExecContext(ctx, statusQuery, envelope.EnvelopeID)
	require.NoError(t, err)

	return envelope
}

// UpdateEnvelopeBatchStatusFixture overwrites the mutable batch status fields
// so tests can park an envelope at any pipeline stage.
func UpdateEnvelopeBatchStatusFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, batchStatus *DisbursementEnvelopeBatchStatus) {
	const query = `
		UPDATE
			disbursement_envelope_batch_statuses
		SET
			received_count = $1,
			received_amount = $2,
			shipped_count = $3,
			funds_available = $4,
			funds_available_error_code = $5,
			funds_available_attempts = $6,
			funds_blocked = $7,
			funds_blocked_error_code = $8,
			funds_blocked_attempts = $9,
			funds_blocked_reference_number = $10,
			id_mapper_resolution_required = $11
		WHERE
			envelope_id = $12
	`

	result, err := sqlExec.ExecContext(ctx, query,
		batchStatus.ReceivedCount, batchStatus.ReceivedAmount, batchStatus.ShippedCount,
		batchStatus.FundsAvailable, batchStatus.FundsAvailableErrorCode, batchStatus.FundsAvailableAttempts,
		batchStatus.FundsBlocked, batchStatus.FundsBlockedErrorCode, batchStatus.FundsBlockedAttempts,
		batchStatus.FundsBlockedReferenceNumber, batchStatus.IDMapperResolutionRequired,
		batchStatus.EnvelopeID,
	)
	require.NoError(t, err)
	numRowsAffected, err := result.RowsAffected()
	require.NoError(t, err)
	require.EqualValues(t, 1, numRowsAffected)
}

func DeleteAllDisbursementEnvelopeFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	_, err := sqlExec.ExecContext(ctx, "DELETE FROM disbursement_envelope_batch_statuses")
	require.NoError(t, err)
	_, err = sqlExec.ExecContext(ctx, "DELETE FROM disbursement_envelopes")
	require.NoError(t, err)
}

func CreateDisbursementFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, d *Disbursement) *Disbursement {
	require.NotEmpty(t, d.EnvelopeID, "disbursement fixture needs an envelope")

	if d.DisbursementID == "" {
		d.DisbursementID = uuid.NewString()
	}
	if d.BeneficiaryID == "" {
		d.BeneficiaryID = "voucher://" + uuid.NewString()
	}
	if d.BeneficiaryName == "" {
		d.BeneficiaryName = "Askhat Qanatuly"
	}
	if d.Narrative == "" {
		d.Narrative = "benefit payment"
	}
	if d.Amount.IsZero() {
		d.Amount = decimal.NewFromInt(100)
	}
	if d.CancellationStatus == "" {
		d.CancellationStatus = NotCancelledCancellationStatus
	}

	const query = `
		INSERT INTO disbursements (
			disbursement_id,
			envelope_id,
			beneficiary_id,
			beneficiary_name,
			narrative,
			amount,
			cancellation_status,
			cancellation_ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING receipt_ts, created_at, updated_at
	`

	err := sqlExec.QueryRowxContext(ctx, query,
		d.DisbursementID, d.EnvelopeID, d.BeneficiaryID, d.BeneficiaryName,
		d.Narrative, d.Amount, d.CancellationStatus, d.CancellationTS,
	).Scan(&d.ReceiptTS, &d.CreatedAt, &d.UpdatedAt)
	require.NoError(t, err)

	return d
}

func DeleteAllDisbursementFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	_, err := sqlExec.ExecContext(ctx, "DELETE FROM disbursement_batch_controls")
	require.NoError(t, err)
	_, err = sqlExec.ExecContext(ctx, "DELETE FROM disbursements")
	require.NoError(t, err)
}

func CreateDisbursementBatchControlFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, control DisbursementBatchControl) DisbursementBatchControl {
	if control.MapperResolutionBatchID == "" {
		control.MapperResolutionBatchID = uuid.NewString()
	}
	if control.BankDisbursementBatchID == "" {
		control.BankDisbursementBatchID = uuid.NewString()
	}

	const query = `
		INSERT INTO disbursement_batch_controls (
			disbursement_id,
			envelope_id,
			beneficiary_id,
			mapper_resolution_batch_id,
			bank_disbursement_batch_id
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := sqlExec.QueryRowxContext(ctx, query,
		control.DisbursementID, control.EnvelopeID, control.BeneficiaryID,
		control.MapperResolutionBatchID, control.BankDisbursementBatchID,
	).Scan(&control.CreatedAt)
	require.NoError(t, err)

	return control
}

func CreateBankBatchStatusFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, batchStatus *BankDisbursementBatchStatus) *BankDisbursementBatchStatus {
	if batchStatus.BatchID == "" {
		batchStatus.BatchID = uuid.NewString()
	}
	require.NotEmpty(t, batchStatus.EnvelopeID, "bank batch status fixture needs an envelope")
	if batchStatus.Status == "" {
		batchStatus.Status = PendingBatchProcessingStatus
	}

	const query = `
		INSERT INTO bank_disbursement_batch_statuses (
			batch_id,
			envelope_id,
			status,
			attempts,
			latest_error_code,
			dispatch_ts
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := sqlExec.QueryRowxContext(ctx, query,
		batchStatus.BatchID, batchStatus.EnvelopeID, batchStatus.Status,
		batchStatus.Attempts, batchStatus.LatestErrorCode, batchStatus.DispatchTS,
	).Scan(&batchStatus.CreatedAt, &batchStatus.UpdatedAt)
	require.NoError(t, err)

	return batchStatus
}

func DeleteAllBankBatchStatusFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	_, err := sqlExec.ExecContext(ctx, "DELETE FROM bank_disbursement_batch_statuses")
	require.NoError(t, err)
}

func CreateMapperBatchStatusFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, batchStatus *MapperResolutionBatchStatus) *MapperResolutionBatchStatus {
	if batchStatus.BatchID == "" {
		batchStatus.BatchID = uuid.NewString()
	}
	if batchStatus.Status == "" {
		batchStatus.Status = PendingBatchProcessingStatus
	}

	const query = `
		INSERT INTO mapper_resolution_batch_statuses (
			batch_id,
			status,
			attempts,
			latest_error_code,
			resolution_ts
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := sqlExec.QueryRowxContext(ctx, query,
		batchStatus.BatchID, batchStatus.Status, batchStatus.Attempts,
		batchStatus.LatestErrorCode, batchStatus.ResolutionTS,
	).Scan(&batchStatus.CreatedAt, &batchStatus.UpdatedAt)
	require.NoError(t, err)

	return batchStatus
}

func DeleteAllMapperBatchStatusFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	_, err := sqlExec.ExecContext(ctx, "DELETE FROM mapper_resolution_details")
	require.NoError(t, err)
	_, err = sqlExec.ExecContext(ctx, "DELETE FROM mapper_resolution_batch_statuses")
	require.NoError(t, err)
}

func CreateMapperResolutionDetailFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, detail MapperResolutionDetail) MapperResolutionDetail {
	if detail.BatchID == "" {
		detail.BatchID = uuid.NewString()
	}
	require.NotEmpty(t, detail.DisbursementID, "mapper resolution detail fixture needs a disbursement")
	if detail.ResolvedFA == "" {
		detail.ResolvedFA = "account:1234567890@example.bank"
	}

	const query = `
		INSERT INTO mapper_resolution_details (
			batch_id,
			disbursement_id,
			beneficiary_id,
			resolved_fa,
			resolved_name,
			fa_type,
			bank_account_number,
			bank_code,
			branch_code,
			mobile_number,
			mobile_wallet_provider,
			email_address,
			email_wallet_provider
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`

	err := sqlExec.QueryRowxContext(ctx, query,
		detail.BatchID, detail.DisbursementID, detail.BeneficiaryID, detail.ResolvedFA,
		detail.ResolvedName, detail.FAType, detail.BankAccountNumber, detail.BankCode,
		detail.BranchCode, detail.MobileNumber, detail.MobileWalletProvider,
		detail.EmailAddress, detail.EmailWalletProvider,
	).Scan(&detail.CreatedAt)
	require.NoError(t, err)

	return detail
}

func CreateAccountStatementFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, content string) *AccountStatement {
	statement := &AccountStatement{
		StatementID: uuid.NewString(),
	}

	const statementQuery = `
		INSERT INTO account_statements (statement_id) VALUES ($1)
		RETURNING process_status, attempts, created_at, updated_at
	`
	err := sqlExec.QueryRowxContext(ctx, statementQuery, statement.StatementID).
		Scan(&statement.ProcessStatus, &statement.Attempts, &statement.CreatedAt, &statement.UpdatedAt)
	require.NoError(t, err)

	const lobQuery = `
		INSERT INTO account_statement_lobs (statement_id, content) VALUES ($1, $2)
	`
	_, err = sqlExec.ExecContext(ctx, lobQuery, statement.StatementID, content)
	require.NoError(t, err)

	return statement
}

func DeleteAllAccountStatementFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	_, err := sqlExec.ExecContext(ctx, "DELETE FROM account_statement_lobs")
	require.NoError(t, err)
	_, err = sqlExec.ExecContext(ctx, "DELETE FROM account_statements")
	require.NoError(t, err)
}

func CreateDisbursementReconFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, recon *DisbursementRecon) *DisbursementRecon {
	require.NotEmpty(t, recon.DisbursementID, "recon fixture needs a disbursement")
	if recon.BankDisbursementBatchID == "" {
		recon.BankDisbursementBatchID = uuid.NewString()
	}
	if recon.RemittanceStatementID == "" {
		recon.RemittanceStatementID = "00001"
	}
	if recon.RemittanceEntrySequence == 0 {
		recon.RemittanceEntrySequence = 1
	}

	const query = `
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
		RETURNING created_at, updated_at
	`

	err := sqlExec.QueryRowxContext(ctx, query,
		recon.BankDisbursementBatchID, recon.DisbursementID, recon.BeneficiaryNameFromBank,
		recon.RemittanceReferenceNumber, recon.RemittanceStatementID, recon.RemittanceStatementNumber,
		recon.RemittanceStatementSequence, recon.RemittanceEntrySequence,
		recon.RemittanceEntryDate, recon.RemittanceValueDate,
	).Scan(&recon.CreatedAt, &recon.UpdatedAt)
	require.NoError(t, err)

	return recon
}

func DeleteAllReconFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	_, err := sqlExec.ExecContext(ctx, "DELETE FROM disbursement_error_recons")
	require.NoError(t, err)
	_, err = sqlExec.ExecContext(ctx, "DELETE FROM disbursement_recons")
	require.NoError(t, err)
}

func DeleteAllFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	DeleteAllReconFixtures(t, ctx, sqlExec)
	DeleteAllAccountStatementFixtures(t, ctx, sqlExec)
	DeleteAllMapperBatchStatusFixtures(t, ctx, sqlExec)
	DeleteAllBankBatchStatusFixtures(t, ctx, sqlExec)
	DeleteAllDisbursementFixtures(t, ctx, sqlExec)
	DeleteAllDisbursementEnvelopeFixtures(t, ctx, sqlExec)
	DeleteAllBenefitProgramConfigurationFixtures(t, ctx, sqlExec)
}
