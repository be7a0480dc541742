package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
)

func Test_AccountStatementService_UploadStatement(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	service := NewAccountStatementService(models)

	fileContent := []byte("\xEF\xBB\xBF:20:REF-20240311-01\r\n:25:SA-PM-NREGA\r\n:28C:00042/001\r\n")

	statement, err := service.UploadStatement(ctx, fileContent)
	require.NoError(t, err)
	assert.NotEmpty(t, statement.StatementID)
	assert.Equal(t, data.PendingStatementProcessStatus, statement.ProcessStatus)
	assert.Equal(t, 0, statement.Attempts)

	// the stored content has the BOM stripped
	content, err := models.AccountStatements.GetLobContent(ctx, models.DBConnectionPool, statement.StatementID)
	require.NoError(t, err)
	assert.Equal(t, ":20:REF-20240311-01\r\n:25:SA-PM-NREGA\r\n:28C:00042/001\r\n", content)
}

func Test_AccountStatementService_UploadStatement_replayGuard(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	service := NewAccountStatementService(models)

	fileContent := []byte(":20:REF-20240311-01\r\n:25:SA-PM-NREGA\r\n")

	_, err := service.UploadStatement(ctx, fileContent)
	require.NoError(t, err)

	_, err = service.UploadStatement(ctx, fileContent)
	assertBridgeErrorCode(t, err, data.StatementUploadErrorErrorCode)
	assert.ErrorContains(t, err, "an identical statement was uploaded recently")

	// the guard keys on the BOM-stripped bytes
	_, err = service.UploadStatement(ctx, append([]byte("\xEF\xBB\xBF"), fileContent...))
	assertBridgeErrorCode(t, err, data.StatementUploadErrorErrorCode)

	// different content is a different statement
	_, err = service.UploadStatement(ctx, []byte(":20:REF-20240312-01\r\n:25:SA-PM-NREGA\r\n"))
	require.NoError(t, err)
}

func Test_AccountStatementService_UploadStatement_emptyFile(t *testing.T) {
	models := data.SetupModels(t)
	ctx := context.Background()

	service := NewAccountStatementService(models)

	_, err := service.UploadStatement(ctx, nil)
	assertBridgeErrorCode(t, err, data.StatementUploadErrorErrorCode)
	assert.ErrorContains(t, err, "statement file is empty")

	// a BOM with nothing behind it is still an empty statement
	_, err = service.UploadStatement(ctx, []byte("\xEF\xBB\xBF"))
	assertBridgeErrorCode(t, err, data.StatementUploadErrorErrorCode)
	assert.ErrorContains(t, err, "statement file is empty")
}
