package data

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStatementContent = ":20:REF-1\r\n:25:SA-PM-NREGA\r\n:28C:00001/001\r\n"

func Test_AccountStatementModel_Insert(t *testing.T) {
	models := SetupModels(t)
	ctx := context.Background()

	statementID := uuid.NewString()
	statement, err := models.AccountStatements.Insert(ctx, models.DBConnectionPool, statementID, testStatementContent)
	require.NoError(t, err)
	assert.Equal(t, statementID, statement.StatementID)
	assert.Equal(t, PendingStatementProcessStatus, statement.ProcessStatus)
	assert.Equal(t, 0, statement.Attempts)
	assert.Empty(t, statement.AccountNumber)
	assert.Nil(t, statement.ProcessTS)

	content, err := models.AccountStatements.GetLobContent(ctx, models.DBConnectionPool, statementID)
	require.NoError(t, err)
	assert.Equal(t, testStatementContent, content)

	_, err = models.AccountStatements.Insert(ctx, models.DBConnectionPool, statementID, testStatementContent)
	assert.ErrorIs(t, err, ErrRecordAlreadyExists)

	_, err = models.AccountStatements.GetLobContent(ctx, models.DBConnectionPool, uuid.NewString())
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func Test_AccountStatementModel_GetStatementsEligibleForProcessing(t *testing.T) {
	models := SetupModels(t)
	ctx := context.Background()

	pending := CreateAccountStatementFixture(t, ctx, models.DBConnectionPool, testStatementContent)

	processed := CreateAccountStatementFixture(t, ctx, models.DBConnectionPool, testStatementContent)
	err := models.AccountStatements.MarkProcessed(ctx, models.DBConnectionPool, processed.StatementID, StatementHeader{})
	require.NoError(t, err)

	exhausted := CreateAccountStatementFixture(t, ctx, models.DBConnectionPool, testStatementContent)
	for i := 0; i < 3; i++ {
		err = models.AccountStatements.RecordFailure(ctx, models.DBConnectionPool, exhausted.StatementID, string(StatementProcessingFailedErrorCode))
		require.NoError(t, err)
	}

	rejected := CreateAccountStatementFixture(t, ctx, models.DBConnectionPool, testStatementContent)
	err = models.AccountStatements.MarkError(ctx, models.DBConnectionPool, rejected.StatementID, StatementHeader{}, string(InvalidAccountNumberErrorCode))
	require.NoError(t, err)

	statementIDs, err := models.AccountStatements.GetStatementsEligibleForProcessing(ctx, models.DBConnectionPool, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{pending.StatementID}, statementIDs)
}

func Test_AccountStatementModel_MarkProcessed(t *testing.T) {
	models := SetupModels(t)
	ctx := context.Background()

	statement := CreateAccountStatementFixture(t, ctx, models.DBConnectionPool, testStatementContent)

	header := StatementHeader{
		AccountNumber:   "SA-PM-NREGA",
		ReferenceNumber: "REF-1",
		StatementNumber: "00001",
		SequenceNumber:  "001",
	}
	err := models.AccountStatements.MarkProcessed(ctx, models.DBConnectionPool, statement.StatementID, header)
	require.NoError(t, err)

	gotStatement, err := models.AccountStatements.Get(ctx, models.DBConnectionPool, statement.StatementID)
	require.NoError(t, err)
	assert.Equal(t, ProcessedStatementProcessStatus, gotStatement.ProcessStatus)
	assert.Equal(t, "SA-PM-NREGA", gotStatement.AccountNumber)
	assert.Equal(t, "REF-1", gotStatement.ReferenceNumber)
	assert.Equal(t, "00001", gotStatement.StatementNumber)
	assert.Equal(t, "001", gotStatement.SequenceNumber)
	assert.Equal(t, 1, gotStatement.Attempts)
	assert.NotNil(t, gotStatement.ProcessTS)

	err = models.AccountStatements.MarkProcessed(ctx, models.DBConnectionPool, uuid.NewString(), header)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func Test_AccountStatementModel_MarkError(t *testing.T) {
	models := SetupModels(t)
	ctx := context.Background()

	statement := CreateAccountStatementFixture(t, ctx, models.DBConnectionPool, testStatementContent)

	header := StatementHeader{AccountNumber: "SA-UNKNOWN", StatementNumber: "00001"}
	err := models.AccountStatements.MarkError(ctx, models.DBConnectionPool, statement.StatementID, header, string(InvalidAccountNumberErrorCode))
	require.NoError(t, err)

	gotStatement, err := models.AccountStatements.Get(ctx, models.DBConnectionPool, statement.StatementID)
	require.NoError(t, err)
	assert.Equal(t, ErrorStatementProcessStatus, gotStatement.ProcessStatus)
	assert.Equal(t, string(InvalidAccountNumberErrorCode), gotStatement.ProcessErrorCode)
	assert.Equal(t, "SA-UNKNOWN", gotStatement.AccountNumber)
	assert.Equal(t, 1, gotStatement.Attempts)
}

func Test_AccountStatementModel_RecordFailure(t *testing.T) {
	models := SetupModels(t)
	ctx := context.Background()

	statement := CreateAccountStatementFixture(t, ctx, models.DBConnectionPool, testStatementContent)

	err := models.AccountStatements.RecordFailure(ctx, models.DBConnectionPool, statement.StatementID, string(StatementProcessingFailedErrorCode))
	require.NoError(t, err)

	// the statement stays pending so the next run can retry it
	gotStatement, err := models.AccountStatements.Get(ctx, models.DBConnectionPool, statement.StatementID)
	require.NoError(t, err)
	assert.Equal(t, PendingStatementProcessStatus, gotStatement.ProcessStatus)
	assert.Equal(t, string(StatementProcessingFailedErrorCode), gotStatement.ProcessErrorCode)
	assert.Equal(t, 1, gotStatement.Attempts)
	assert.NotNil(t, gotStatement.ProcessTS)
}
