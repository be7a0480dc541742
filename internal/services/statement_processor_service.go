package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stellar/go/support/log"

	"github.com/openg2p/g2p-bridge-backend/db"
	"github.com/openg2p/g2p-bridge-backend/internal/alerts"
	"github.com/openg2p/g2p-bridge-backend/internal/bank"
	"github.com/openg2p/g2p-bridge-backend/internal/data"
	"github.com/openg2p/g2p-bridge-backend/internal/mt940"
)

type StatementProcessorServiceInterface interface {
	ProcessEligibleStatements(ctx context.Context) error
}

// StatementProcessorService drives the reconciler: it parses each uploaded
// MT940 statement, attributes every debit and reversed-debit entry to a
// disbursement through the sponsor bank's connector, and records recon rows
// for the matches and error recon rows for everything it cannot attribute.
type StatementProcessorService struct {
	models            *data.Models
	connectorFactory  *bank.ConnectorFactory
	programService    BenefitProgramServiceInterface
	alertsDispatcher  alerts.DispatcherInterface
	maxAttempts       int
	statementCurrency string
}

var _ StatementProcessorServiceInterface = (*StatementProcessorService)(nil)

type StatementProcessorServiceOptions struct {
	Models           *data.Models
	ConnectorFactory *bank.ConnectorFactory
	ProgramService   BenefitProgramServiceInterface
	AlertsDispatcher alerts.DispatcherInterface
	MaxAttempts      int
	// StatementCurrency is assumed for statements whose :60F: line carries no
	// currency code. The sponsor account currency still wins once the statement
	// is attributed to a program.
	StatementCurrency string
}

func NewStatementProcessorService(opts StatementProcessorServiceOptions) *StatementProcessorService {
	return &StatementProcessorService{
		models:            opts.Models,
		connectorFactory:  opts.ConnectorFactory,
		programService:    opts.ProgramService,
		alertsDispatcher:  opts.AlertsDispatcher,
		maxAttempts:       opts.MaxAttempts,
		statementCurrency: opts.StatementCurrency,
	}
}

// ProcessEligibleStatements enumerates uploaded statements still pending
// reconciliation and processes each one. A failing statement doesn't stop the
// run.
func (s *StatementProcessorService) ProcessEligibleStatements(ctx context.Context) error {
	statementIDs, err := s.models.AccountStatements.GetStatementsEligibleForProcessing(ctx, s.models.DBConnectionPool, s.maxAttempts)
	if err != nil {
		return fmt.Errorf("getting account statements eligible for processing: %w", err)
	}
	if len(statementIDs) == 0 {
		log.Ctx(ctx).Debug("No account statements eligible for processing")
		return nil
	}
	log.Ctx(ctx).Infof("Processing %d account statement(s)", len(statementIDs))

	var failedStatementIDs []string
	for _, statementID := range statementIDs {
		if processErr := s.processStatement(ctx, statementID); processErr != nil {
			log.Ctx(ctx).Errorf("Processing account statement %s: %v", statementID, processErr)
			failedStatementIDs = append(failedStatementIDs, statementID)
		}
	}
	if len(failedStatementIDs) > 0 {
		return fmt.Errorf("statement processing failed for %d statement(s): %s", len(failedStatementIDs), strings.Join(failedStatementIDs, ", "))
	}
	return nil
}

func (s *StatementProcessorService) processStatement(ctx context.Context, statementID string) error {
	statement, err := s.models.AccountStatements.Get(ctx, s.models.DBConnectionPool, statementID)
	if err != nil {
		return fmt.Errorf("getting account statement: %w", err)
	}
	if !statementProcessingPending(statement, s.maxAttempts) {
		log.Ctx(ctx).Debugf("Account statement %s is no longer eligible for processing", statementID)
		return nil
	}

	processErr := s.reconcileStatement(ctx, statement)
	if processErr == nil {
		return nil
	}

	// The statement stays PENDING with the enum in the column; the exception
	// text itself belongs to the log and the crash tracker.
	if recordErr := s.models.AccountStatements.RecordFailure(ctx, s.models.DBConnectionPool, statementID, string(data.StatementProcessingFailedErrorCode)); recordErr != nil {
		log.Ctx(ctx).Errorf("Recording processing failure for account statement %s: %v", statementID, recordErr)
	}
	if statement.Attempts+1 == s.maxAttempts {
		s.dispatchAlert(ctx, "Statement processing attempts exhausted",
			fmt.Sprintf("Account statement %s exhausted its %d processing attempts (last error: %v).",
				statementID, s.maxAttempts, processErr))
	}
	return processErr
}

type reconcileOutcome struct {
	skipped    bool
	entryCount int
	errorCount int
}

func (s *StatementProcessorService) reconcileStatement(ctx context.Context, statement *data.AccountStatement) error {
	content, err := s.models.AccountStatements.GetLobContent(ctx, s.models.DBConnectionPool, statement.StatementID)
	if err != nil {
		return fmt.Errorf("getting statement content: %w", err)
	}

	parsed, err := mt940.Parse(strings.NewReader(content), s.statementCurrency)
	if err != nil {
		return fmt.Errorf("parsing MT940 content: %w", err)
	}
	header := data.StatementHeader{
		AccountNumber:   parsed.AccountNumber,
		ReferenceNumber: parsed.TransactionReference,
		StatementNumber: parsed.StatementNumber,
		SequenceNumber:  parsed.SequenceNumber,
	}

	programConfig, err := s.programService.GetConfigurationBySponsorAccount(ctx, parsed.AccountNumber)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return s.rejectStatement(ctx, statement.StatementID, header)
		}
		return fmt.Errorf("getting configuration for account %s: %w", parsed.AccountNumber, err)
	}
	parsed.Currency = programConfig.SponsorBankAccountCurrency

	connector, err := s.connectorFactory.GetConnector(programConfig.SponsorBankCode)
	if err != nil {
		return err
	}

	outcome, err := db.RunInTransactionWithResult(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) (reconcileOutcome, error) {
		lockedStatement, lockErr := s.models.AccountStatements.GetForUpdate(ctx, dbTx, statement.StatementID)
		if lockErr != nil {
			return reconcileOutcome{}, fmt.Errorf("locking account statement: %w", lockErr)
		}
		if !statementProcessingPending(lockedStatement, s.maxAttempts) {
			return reconcileOutcome{skipped: true}, nil
		}

		entryCount, errorRecons, reconcileErr := s.reconcileEntries(ctx, dbTx, statement.StatementID, parsed, connector)
		if reconcileErr != nil {
			return reconcileOutcome{}, reconcileErr
		}
		if len(errorRecons) > 0 {
			if insertErr := s.models.DisbursementErrorRecons.InsertAll(ctx, dbTx, errorRecons); insertErr != nil {
				return reconcileOutcome{}, fmt.Errorf("inserting error recons: %w", insertErr)
			}
		}
		if markErr := s.models.AccountStatements.MarkProcessed(ctx, dbTx, statement.StatementID, header); markErr != nil {
			return reconcileOutcome{}, fmt.Errorf("marking account statement processed: %w", markErr)
		}
		return reconcileOutcome{entryCount: entryCount, errorCount: len(errorRecons)}, nil
	})
	if err != nil {
		return fmt.Errorf("writing back reconciliation for statement %s: %w", statement.StatementID, err)
	}
	if outcome.skipped {
		log.Ctx(ctx).Debugf("Account statement %s was picked up by a concurrent run", statement.StatementID)
		return nil
	}

	log.Ctx(ctx).Infof("Account statement %s reconciled %d debit entry(ies) with %d exception(s)",
		statement.StatementID, outcome.entryCount, outcome.errorCount)
	return nil
}

// reconcileEntries walks the statement's debit and reversed-debit lines in
// order. The entry sequence counts only those lines; credits never touch the
// recon tables.
func (s *StatementProcessorService) reconcileEntries(ctx context.Context, dbTx db.DBTransaction, statementID string, parsed *mt940.Statement, connector bank.ConnectorInterface) (int, []data.DisbursementErrorRecon, error) {
	entrySequence := 0
	var errorRecons []data.DisbursementErrorRecon

	for _, transaction := range parsed.Transactions {
		if !transaction.IsDebit() {
			continue
		}
		entrySequence++

		disbursementID := connector.DisbursementID(transaction.BankReference, transaction.CustomerReference, transaction.Narratives)

		batchControl, controlErr := s.models.BatchControls.GetByDisbursementID(ctx, dbTx, disbursementID)
		if controlErr != nil {
			if errors.Is(controlErr, data.ErrRecordNotFound) {
				errorRecons = append(errorRecons, newErrorRecon(statementID, parsed, entrySequence, transaction, "", data.InvalidDisbursementIDReconErrorReason))
				continue
			}
			return 0, nil, fmt.Errorf("getting batch control for disbursement %s: %w", disbursementID, controlErr)
		}

		reconExists := true
		if _, reconErr := s.models.DisbursementRecons.GetByDisbursementID(ctx, dbTx, disbursementID); reconErr != nil {
			if !errors.Is(reconErr, data.ErrRecordNotFound) {
				return 0, nil, fmt.Errorf("getting recon for disbursement %s: %w", disbursementID, reconErr)
			}
			reconExists = false
		}

		if transaction.IsReversal() {
			if !reconExists {
				errorRecons = append(errorRecons, newErrorRecon(statementID, parsed, entrySequence, transaction, disbursementID, data.InvalidReversalReconErrorReason))
				continue
			}
			reversal := data.ReconReversalUpdate{
				StatementID:       parsed.StatementNumber,
				StatementNumber:   parsed.StatementNumber,
				StatementSequence: parsed.SequenceNumber,
				EntrySequence:     entrySequence,
				EntryDate:         transaction.EntryDate,
				ValueDate:         &transaction.ValueDate,
				Reason:            connector.ReversalReason(transaction.Narratives),
			}
			if updateErr := s.models.DisbursementRecons.UpdateReversal(ctx, dbTx, disbursementID, reversal); updateErr != nil {
				return 0, nil, fmt.Errorf("updating reversal for disbursement %s: %w", disbursementID, updateErr)
			}
			continue
		}

		if reconExists {
			errorRecons = append(errorRecons, newErrorRecon(statementID, parsed, entrySequence, transaction, disbursementID, data.DuplicateDisbursementReconErrorReason))
			continue
		}
		recon := &data.DisbursementRecon{
			BankDisbursementBatchID:     batchControl.BankDisbursementBatchID,
			DisbursementID:              disbursementID,
			BeneficiaryNameFromBank:     connector.BeneficiaryName(transaction.Narratives),
			RemittanceReferenceNumber:   transaction.BankReference,
			RemittanceStatementID:       parsed.StatementNumber,
			RemittanceStatementNumber:   parsed.StatementNumber,
			RemittanceStatementSequence: parsed.SequenceNumber,
			RemittanceEntrySequence:     entrySequence,
			RemittanceEntryDate:         transaction.EntryDate,
			RemittanceValueDate:         &transaction.ValueDate,
		}
		if insertErr := s.models.DisbursementRecons.Insert(ctx, dbTx, recon); insertErr != nil {
			return 0, nil, fmt.Errorf("inserting recon for disbursement %s: %w", disbursementID, insertErr)
		}
	}

	return entrySequence, errorRecons, nil
}

// rejectStatement latches the statement into the terminal ERROR state: no
// benefit program sponsors the account it reports on, so retrying is pointless
// and an operator has to look.
func (s *StatementProcessorService) rejectStatement(ctx context.Context, statementID string, header data.StatementHeader) error {
	if err := s.models.AccountStatements.MarkError(ctx, s.models.DBConnectionPool, statementID, header, string(data.InvalidAccountNumberErrorCode)); err != nil {
		return fmt.Errorf("marking account statement errored: %w", err)
	}
	log.Ctx(ctx).Warnf("Account statement %s reports on account %s, which no benefit program sponsors", statementID, header.AccountNumber)
	s.dispatchAlert(ctx, "Account statement rejected",
		fmt.Sprintf("Statement %s reports on sponsor account %s, which no benefit program configuration matches.",
			statementID, header.AccountNumber))
	return nil
}

func newErrorRecon(statementID string, parsed *mt940.Statement, entrySequence int, transaction mt940.Transaction, disbursementID string, reason data.ReconErrorReason) data.DisbursementErrorRecon {
	return data.DisbursementErrorRecon{
		StatementID:         statementID,
		StatementNumber:     parsed.StatementNumber,
		StatementSequence:   parsed.SequenceNumber,
		EntrySequence:       entrySequence,
		EntryDate:           transaction.EntryDate,
		ValueDate:           &transaction.ValueDate,
		BankReferenceNumber: transaction.BankReference,
		DisbursementID:      disbursementID,
		ErrorReason:         reason,
	}
}

func statementProcessingPending(statement *data.AccountStatement, maxAttempts int) bool {
	return statement.ProcessStatus == data.PendingStatementProcessStatus && statement.Attempts < maxAttempts
}

func (s *StatementProcessorService) dispatchAlert(ctx context.Context, title, body string) {
	if err := s.alertsDispatcher.DispatchAlert(ctx, title, body); err != nil {
		log.Ctx(ctx).Errorf("Dispatching %q alert: %v", title, err)
	}
}
