package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/dimchansky/utfbom"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/openg2p/g2p-bridge-backend/db"
	"github.com/openg2p/g2p-bridge-backend/internal/data"
)

const (
	statementReplayGuardEntries = 1_000
	statementReplayGuardTTL     = 10 * time.Minute
)

type AccountStatementServiceInterface interface {
	UploadStatement(ctx context.Context, fileContent []byte) (*data.AccountStatement, error)
}

// AccountStatementService persists uploaded MT940 files for the statement
// processor to pick up. A short-TTL replay guard rejects byte-identical
// re-uploads, a convenience in front of the recon-level duplicate detection.
type AccountStatementService struct {
	models      *data.Models
	replayGuard *expirable.LRU[string, struct{}]
}

var _ AccountStatementServiceInterface = (*AccountStatementService)(nil)

func NewAccountStatementService(models *data.Models) *AccountStatementService {
	return &AccountStatementService{
		models:      models,
		replayGuard: expirable.NewLRU[string, struct{}](statementReplayGuardEntries, nil, statementReplayGuardTTL),
	}
}

// UploadStatement stores the statement metadata (PENDING, attempts=0) and its
// BOM-stripped raw content, returning the server-assigned statement ID.
func (s *AccountStatementService) UploadStatement(ctx context.Context, fileContent []byte) (*data.AccountStatement, error) {
	content, err := io.ReadAll(utfbom.SkipOnly(bytes.NewReader(fileContent)))
	if err != nil {
		return nil, NewBridgeError(data.StatementUploadErrorErrorCode, fmt.Sprintf("reading statement file: %v", err))
	}
	if len(content) == 0 {
		return nil, NewBridgeError(data.StatementUploadErrorErrorCode, "statement file is empty")
	}

	digest := sha256.Sum256(content)
	replayKey := hex.EncodeToString(digest[:])
	if _, uploadedRecently := s.replayGuard.Get(replayKey); uploadedRecently {
		return nil, NewBridgeError(data.StatementUploadErrorErrorCode, "an identical statement was uploaded recently")
	}

	statement, err := db.RunInTransactionWithResult(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) (*data.AccountStatement, error) {
		return s.models.AccountStatements.Insert(ctx, dbTx, uuid.NewString(), string(content))
	})
	if err != nil {
		return nil, NewBridgeError(data.StatementUploadErrorErrorCode, fmt.Sprintf("persisting statement: %v", err))
	}

	s.replayGuard.Add(replayKey, struct{}{})
	return statement, nil
}
