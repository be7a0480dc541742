package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openg2p/g2p-bridge-backend/db"
)

// BenefitProgramConfiguration routes a benefit program to its sponsor bank
// and funding organization.
type BenefitProgramConfiguration struct {
	ProgramMnemonic            string    `json:"benefit_program_mnemonic" db:"program_mnemonic"`
	ProgramName                string    `json:"benefit_program_name" db:"program_name"`
	FundingOrgCode             string    `json:"funding_org_code" db:"funding_org_code"`
	FundingOrgName             string    `json:"funding_org_name" db:"funding_org_name"`
	SponsorBankCode            string    `json:"sponsor_bank_code" db:"sponsor_bank_code"`
	SponsorBankAccountNumber   string    `json:"sponsor_bank_account_number" db:"sponsor_bank_account_number"`
	SponsorBankBranchCode      string    `json:"sponsor_bank_branch_code" db:"sponsor_bank_branch_code"`
	SponsorBankAccountCurrency string    `json:"sponsor_bank_account_currency" db:"sponsor_bank_account_currency"`
	IDMapperResolutionRequired bool      `json:"id_mapper_resolution_required" db:"id_mapper_resolution_required"`
	CreatedAt                  time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt                  time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

type BenefitProgramConfigurationModel struct {
	dbConnectionPool db.DBConnectionPool
}

const benefitProgramConfigurationColumns = `
	pc.program_mnemonic,
	pc.program_name,
	pc.funding_org_code,
	pc.funding_org_name,
	pc.sponsor_bank_code,
	pc.sponsor_bank_account_number,
	pc.sponsor_bank_branch_code,
	pc.sponsor_bank_account_currency,
	pc.id_mapper_resolution_required,
	pc.created_at,
	pc.updated_at
`

func (m *BenefitProgramConfigurationModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, config *BenefitProgramConfiguration) error {
	if config == nil {
		return fmt.Errorf("config is required: %w", ErrMissingInput)
	}

	query := `
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
	`

	_, err := sqlExec.ExecContext(ctx, query,
		config.ProgramMnemonic,
		config.ProgramName,
		config.FundingOrgCode,
		config.FundingOrgName,
		config.SponsorBankCode,
		config.SponsorBankAccountNumber,
		config.SponsorBankBranchCode,
		config.SponsorBankAccountCurrency,
		config.IDMapperResolutionRequired,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrRecordAlreadyExists
		}
		return fmt.Errorf("inserting benefit program configuration %s: %w", config.ProgramMnemonic, err)
	}
	return nil
}

func (m *BenefitProgramConfigurationModel) Get(ctx context.Context, sqlExec db.SQLExecuter, programMnemonic string) (*BenefitProgramConfiguration, error) {
	var config BenefitProgramConfiguration
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			benefit_program_configurations pc
		WHERE
			pc.program_mnemonic = $1
		`, benefitProgramConfigurationColumns)

	err := sqlExec.GetContext(ctx, &config, query, programMnemonic)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying benefit program configuration %s: %w", programMnemonic, err)
	}
	return &config, nil
}

// GetBySponsorBankAccountNumber finds the program whose sponsor account
// matches the account identification of an uploaded statement.
func (m *BenefitProgramConfigurationModel) GetBySponsorBankAccountNumber(ctx context.Context, sqlExec db.SQLExecuter, accountNumber string) (*BenefitProgramConfiguration, error) {
	var config BenefitProgramConfiguration
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			benefit_program_configurations pc
		WHERE
			pc.sponsor_bank_account_number = $1
		ORDER BY
			pc.program_mnemonic ASC
		LIMIT 1
		`, benefitProgramConfigurationColumns)

	err := sqlExec.GetContext(ctx, &config, query, accountNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying benefit program configuration by sponsor account %s: %w", accountNumber, err)
	}
	return &config, nil
}

// GetAll returns all program configurations ordered by mnemonic.
func (m *BenefitProgramConfigurationModel) GetAll(ctx context.Context, sqlExec db.SQLExecuter) ([]BenefitProgramConfiguration, error) {
	configs := []BenefitProgramConfiguration{}
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			benefit_program_configurations pc
		ORDER BY
			pc.program_mnemonic ASC
		`, benefitProgramConfigurationColumns)

	err := sqlExec.SelectContext(ctx, &configs, query)
	if err != nil {
		return nil, fmt.Errorf("querying benefit program configurations: %w", err)
	}
	return configs, nil
}
