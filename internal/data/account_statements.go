package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openg2p/g2p-bridge-backend/db"
)

type StatementProcessStatus string

const (
	PendingStatementProcessStatus   StatementProcessStatus = "PENDING"
	ProcessedStatementProcessStatus StatementProcessStatus = "PROCESSED"
	ErrorStatementProcessStatus     StatementProcessStatus = "ERROR"
)

func (status StatementProcessStatus) Validate() error {
	switch status {
	case PendingStatementProcessStatus, ProcessedStatementProcessStatus, ErrorStatementProcessStatus:
		return nil
	default:
		return fmt.Errorf("invalid statement process status: %s", status)
	}
}

// AccountStatement is the metadata of one uploaded MT940 statement. The
// header fields are populated by the reconciler once the file is parsed.
type AccountStatement struct {
	StatementID      string                 `json:"statement_id" db:"statement_id"`
	StatementDate    *time.Time             `json:"statement_date,omitempty" db:"statement_date"`
	AccountNumber    string                 `json:"account_number,omitempty" db:"account_number"`
	ReferenceNumber  string                 `json:"reference_number,omitempty" db:"reference_number"`
	StatementNumber  string                 `json:"statement_number,omitempty" db:"statement_number"`
	SequenceNumber   string                 `json:"sequence_number,omitempty" db:"sequence_number"`
	ProcessStatus    StatementProcessStatus `json:"process_status" db:"process_status"`
	ProcessErrorCode string                 `json:"process_error_code,omitempty" db:"process_error_code"`
	ProcessTS        *time.Time             `json:"process_ts,omitempty" db:"process_ts"`
	Attempts         int                    `json:"attempts" db:"attempts"`
	CreatedAt        time.Time              `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at,omitempty" db:"updated_at"`
}

// AccountStatementLob holds the raw MT940 content of a statement.
type AccountStatementLob struct {
	StatementID string    `json:"statement_id" db:"statement_id"`
	Content     string    `json:"content" db:"content"`
	CreatedAt   time.Time `json:"created_at,omitempty" db:"created_at"`
}

// StatementHeader carries the fields the reconciler extracts from the MT940
// header block.
type StatementHeader struct {
	AccountNumber   string
	ReferenceNumber string
	StatementNumber string
	SequenceNumber  string
}

type AccountStatementModel struct {
	dbConnectionPool db.DBConnectionPool
}

const accountStatementColumns = `
	s.statement_id,
	s.statement_date,
	s.account_number,
	s.reference_number,
	s.statement_number,
	s.sequence_number,
	s.process_status,
	s.process_error_code,
	s.process_ts,
	s.attempts,
	s.created_at,
	s.updated_at
`

// Insert persists a new statement in PENDING state together with its raw
// content. The caller wraps both writes in one transaction.
func (m *AccountStatementModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, statementID, content string) (*AccountStatement, error) {
	var statement AccountStatement
	query := `
		INSERT INTO account_statements (
			statement_id
		) VALUES ($1)
		RETURNING
			statement_id,
			statement_date,
			account_number,
			reference_number,
			statement_number,
			sequence_number,
			process_status,
			process_error_code,
			process_ts,
			attempts,
			created_at,
			updated_at
	`

	err := sqlExec.GetContext(ctx, &statement, query, statementID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrRecordAlreadyExists
		}
		return nil, fmt.Errorf("inserting account statement: %w", err)
	}

	lobQuery := `
		INSERT INTO account_statement_lobs (
			statement_id,
			content
		) VALUES ($1, $2)
	`
	_, err = sqlExec.ExecContext(ctx, lobQuery, statement.StatementID, content)
	if err != nil {
		return nil, fmt.Errorf("inserting account statement lob for statement %s: %w", statement.StatementID, err)
	}

	return &statement, nil
}

func (m *AccountStatementModel) Get(ctx context.Context, sqlExec db.SQLExecuter, statementID string) (*AccountStatement, error) {
	var statement AccountStatement
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			account_statements s
		WHERE
			s.statement_id = $1
		`, accountStatementColumns)

	err := sqlExec.GetContext(ctx, &statement, query, statementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying account statement %s: %w", statementID, err)
	}
	return &statement, nil
}

// GetForUpdate locks the statement row for the remainder of the transaction.
func (m *AccountStatementModel) GetForUpdate(ctx context.Context, dbTx db.DBTransaction, statementID string) (*AccountStatement, error) {
	var statement AccountStatement
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM
			account_statements s
		WHERE
			s.statement_id = $1
		FOR UPDATE
		`, accountStatementColumns)

	err := dbTx.GetContext(ctx, &statement, query, statementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying account statement %s for update: %w", statementID, err)
	}
	return &statement, nil
}

func (m *AccountStatementModel) GetLobContent(ctx context.Context, sqlExec db.SQLExecuter, statementID string) (string, error) {
	var content string
	query := `
		SELECT
			l.content
		FROM
			account_statement_lobs l
		WHERE
			l.statement_id = $1
	`

	err := sqlExec.GetContext(ctx, &content, query, statementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrRecordNotFound
		}
		return "", fmt.Errorf("querying account statement lob %s: %w", statementID, err)
	}
	return content, nil
}

// GetStatementsEligibleForProcessing returns pending statement IDs still
// within their attempt budget.
func (m *AccountStatementModel) GetStatementsEligibleForProcessing(ctx context.Context, sqlExec db.SQLExecuter, maxAttempts int) ([]string, error) {
	statementIDs := []string{}
	query := `
		SELECT
			s.statement_id
		FROM
			account_statements s
		WHERE
			s.process_status = $1
			AND s.attempts < $2
		ORDER BY
			s.created_at ASC
	`

	err := sqlExec.SelectContext(ctx, &statementIDs, query, PendingStatementProcessStatus, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("querying account statements eligible for processing: %w", err)
	}
	return statementIDs, nil
}

// MarkProcessed writes the parsed header back and latches the statement
// PENDING → PROCESSED.
func (m *AccountStatementModel) MarkProcessed(ctx context.Context, sqlExec db.SQLExecuter, statementID string, header StatementHeader) error {
	query := `
		UPDATE
			account_statements
		SET
			account_number = $1,
			reference_number = $2,
			statement_number = $3,
			sequence_number = $4,
			process_status = $5,
			process_error_code = '',
			process_ts = NOW(),
			attempts = attempts + 1
		WHERE
			statement_id = $6
	`

	result, err := sqlExec.ExecContext(ctx, query,
		header.AccountNumber, header.ReferenceNumber, header.StatementNumber, header.SequenceNumber,
		ProcessedStatementProcessStatus, statementID)
	if err != nil {
		return fmt.Errorf("marking account statement %s processed: %w", statementID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("no account statement %s: %w", statementID, ErrRecordNotFound)
	}
	return nil
}

// MarkError moves the statement to the terminal ERROR state, keeping the
// parsed header for the operator.
func (m *AccountStatementModel) MarkError(ctx context.Context, sqlExec db.SQLExecuter, statementID string, header StatementHeader, errorCode string) error {
	query := `
		UPDATE
			account_statements
		SET
			account_number = $1,
			reference_number = $2,
			statement_number = $3,
			sequence_number = $4,
			process_status = $5,
			process_error_code = $6,
			process_ts = NOW(),
			attempts = attempts + 1
		WHERE
			statement_id = $7
	`

	result, err := sqlExec.ExecContext(ctx, query,
		header.AccountNumber, header.ReferenceNumber, header.StatementNumber, header.SequenceNumber,
		ErrorStatementProcessStatus, errorCode, statementID)
	if err != nil {
		return fmt.Errorf("marking account statement %s errored: %w", statementID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("no account statement %s: %w", statementID, ErrRecordNotFound)
	}
	return nil
}

// RecordFailure keeps the statement PENDING for a later retry while recording
// the error and advancing attempts.
func (m *AccountStatementModel) RecordFailure(ctx context.Context, sqlExec db.SQLExecuter, statementID, errorCode string) error {
	query := `
		UPDATE
			account_statements
		SET
			process_error_code = $1,
			process_ts = NOW(),
			attempts = attempts + 1
		WHERE
			statement_id = $2
	`

	result, err := sqlExec.ExecContext(ctx, query, errorCode, statementID)
	if err != nil {
		return fmt.Errorf("recording account statement %s processing failure: %w", statementID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("no account statement %s: %w", statementID, ErrRecordNotFound)
	}
	return nil
}
