package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/openg2p/g2p-bridge-backend/db"
)

// FundsAccessorType classifies a resolved financial address by its prefix.
type FundsAccessorType string

const (
	BankAccountFundsAccessorType  FundsAccessorType = "BANK_ACCOUNT"
	MobileWalletFundsAccessorType FundsAccessorType = "MOBILE_WALLET"
	EmailWalletFundsAccessorType  FundsAccessorType = "EMAIL_WALLET"
)

func (faType FundsAccessorType) Validate() error {
	switch faType {
	case BankAccountFundsAccessorType, MobileWalletFundsAccessorType, EmailWalletFundsAccessorType:
		return nil
	default:
		return fmt.Errorf("invalid funds accessor type: %s", faType)
	}
}

// FundsAccessorTypes returns a list of all possible funds accessor types.
func FundsAccessorTypes() []FundsAccessorType {
	return []FundsAccessorType{BankAccountFundsAccessorType, MobileWalletFundsAccessorType, EmailWalletFundsAccessorType}
}

// MapperResolutionDetail is the resolved financial address of one
// disbursement's beneficiary. The type-specific fields are empty when the FA
// could not be deconstructed; FAType is nil when the FA prefix was unknown.
type MapperResolutionDetail struct {
	BatchID              string             `json:"batch_id" db:"batch_id"`
	DisbursementID       string             `json:"disbursement_id" db:"disbursement_id"`
	BeneficiaryID        string             `json:"beneficiary_id" db:"beneficiary_id"`
	ResolvedFA           string             `json:"resolved_fa" db:"resolved_fa"`
	ResolvedName         string             `json:"resolved_name,omitempty" db:"resolved_name"`
	FAType               *FundsAccessorType `json:"fa_type,omitempty" db:"fa_type"`
	BankAccountNumber    string             `json:"bank_account_number,omitempty" db:"bank_account_number"`
	BankCode             string             `json:"bank_code,omitempty" db:"bank_code"`
	BranchCode           string             `json:"branch_code,omitempty" db:"branch_code"`
	MobileNumber         string             `json:"mobile_number,omitempty" db:"mobile_number"`
	MobileWalletProvider string             `json:"mobile_wallet_provider,omitempty" db:"mobile_wallet_provider"`
	EmailAddress         string             `json:"email_address,omitempty" db:"email_address"`
	EmailWalletProvider  string             `json:"email_wallet_provider,omitempty" db:"email_wallet_provider"`
	CreatedAt            time.Time          `json:"created_at,omitempty" db:"created_at"`
}

type MapperResolutionDetailModel struct {
	dbConnectionPool db.DBConnectionPool
}

const mapperResolutionDetailColumns = `
	md.batch_id,
	md.disbursement_id,
	md.beneficiary_id,
	md.resolved_fa,
	md.resolved_name,
	md.fa_type,
	md.bank_account_number,
	md.bank_code,
	md.branch_code,
	md.mobile_number,
	md.mobile_wallet_provider,
	md.email_address,
	md.email_wallet_provider,
	md.created_at
`

// InsertAll persists one detail row per resolved disbursement. The caller
// commits all rows of a batch or none.
func (m *MapperResolutionDetailModel) InsertAll(ctx context.Context, sqlExec db.SQLExecuter, details []MapperResolutionDetail) error {
	if len(details) == 0 {
		return fmt.Errorf("no mapper resolution details to insert: %w", ErrMissingInput)
	}

	query := `
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
	`

	for _, detail := range details {
		_, err := sqlExec.ExecContext(ctx, query,
			detail.BatchID,
			detail.DisbursementID,
			detail.BeneficiaryID,
			detail.ResolvedFA,
			detail.ResolvedName,
			detail.FAType,
			detail.BankAccountNumber,
			detail.BankCode,
			detail.BranchCode,
			detail.MobileNumber,
			detail.MobileWalletProvider,
			detail.EmailAddress,
			detail.EmailWalletProvider,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return ErrRecordAlreadyExists
			}
			return fmt.Errorf("inserting mapper resolution detail for disbursement %s: %w", detail.DisbursementID, err)
		}
	}
	return nil
}

func (m *MapperResolutionDetailModel) GetByDisbursementID(ctx context.Context, sqlExec db.SQLExecuter, disbursementID string) (*MapperResolutionDetail, error) {
	var detail MapperResolutionDetail
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			mapper_resolution_details md
		WHERE
			md.disbursement_id = $1
		`, mapperResolutionDetailColumns)

	err := sqlExec.GetContext(ctx, &detail, query, disbursementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying mapper resolution detail for disbursement %s: %w", disbursementID, err)
	}
	return &detail, nil
}

// GetByDisbursementIDs returns the detail rows for the given disbursements;
// disbursements that were never resolved are simply absent from the result.
func (m *MapperResolutionDetailModel) GetByDisbursementIDs(ctx context.Context, sqlExec db.SQLExecuter, disbursementIDs []string) ([]MapperResolutionDetail, error) {
	details := []MapperResolutionDetail{}
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			mapper_resolution_details md
		WHERE
			md.disbursement_id = ANY($1)
		ORDER BY
			md.created_at ASC
		`, mapperResolutionDetailColumns)

	err := sqlExec.SelectContext(ctx, &details, query, pq.Array(disbursementIDs))
	if err != nil {
		return nil, fmt.Errorf("querying mapper resolution details by disbursement IDs: %w", err)
	}
	return details, nil
}

func (m *MapperResolutionDetailModel) GetByBatchID(ctx context.Context, sqlExec db.SQLExecuter, batchID string) ([]MapperResolutionDetail, error) {
	details := []MapperResolutionDetail{}
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			mapper_resolution_details md
		WHERE
			md.batch_id = $1
		ORDER BY
			md.created_at ASC
		`, mapperResolutionDetailColumns)

	err := sqlExec.SelectContext(ctx, &details, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("querying mapper resolution details for batch %s: %w", batchID, err)
	}
	return details, nil
}
