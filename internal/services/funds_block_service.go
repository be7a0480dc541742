package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stellar/go/support/log"

	"github.com/openg2p/g2p-bridge-backend/db"
	"github.com/openg2p/g2p-bridge-backend/internal/alerts"
	"github.com/openg2p/g2p-bridge-backend/internal/bank"
	"github.com/openg2p/g2p-bridge-backend/internal/data"
)

type FundsBlockServiceInterface interface {
	BlockEligibleEnvelopes(ctx context.Context) error
}

// FundsBlockService is the second pipeline stage: it earmarks an envelope's
// total at the sponsor bank. The bank-issued block reference later rides on
// every payment instruction of the envelope.
type FundsBlockService struct {
	models           *data.Models
	connectorFactory *bank.ConnectorFactory
	programService   BenefitProgramServiceInterface
	alertsDispatcher alerts.DispatcherInterface
	maxAttempts      int
}

var _ FundsBlockServiceInterface = (*FundsBlockService)(nil)

type FundsBlockServiceOptions struct {
	Models           *data.Models
	ConnectorFactory *bank.ConnectorFactory
	ProgramService   BenefitProgramServiceInterface
	AlertsDispatcher alerts.DispatcherInterface
	MaxAttempts      int
}

func NewFundsBlockService(opts FundsBlockServiceOptions) *FundsBlockService {
	return &FundsBlockService{
		models:           opts.Models,
		connectorFactory: opts.ConnectorFactory,
		programService:   opts.ProgramService,
		alertsDispatcher: opts.AlertsDispatcher,
		maxAttempts:      opts.MaxAttempts,
	}
}

// BlockEligibleEnvelopes enumerates envelopes whose funds are confirmed
// available and earmarks each one. A failing envelope doesn't stop the run.
func (s *FundsBlockService) BlockEligibleEnvelopes(ctx context.Context) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	envelopeIDs, err := s.models.EnvelopeBatchStatuses.GetEnvelopesEligibleForFundsBlock(ctx, s.models.DBConnectionPool, today, s.maxAttempts)
	if err != nil {
		return fmt.Errorf("getting envelopes eligible for funds block: %w", err)
	}
	if len(envelopeIDs) == 0 {
		log.Ctx(ctx).Debug("No envelopes eligible for funds block")
		return nil
	}
	log.Ctx(ctx).Infof("Blocking funds for %d envelope(s)", len(envelopeIDs))

	var failedEnvelopeIDs []string
	for _, envelopeID := range envelopeIDs {
		if blockErr := s.blockEnvelope(ctx, envelopeID); blockErr != nil {
			log.Ctx(ctx).Errorf("Blocking funds for envelope %s: %v", envelopeID, blockErr)
			failedEnvelopeIDs = append(failedEnvelopeIDs, envelopeID)
		}
	}
	if len(failedEnvelopeIDs) > 0 {
		return fmt.Errorf("funds block failed for %d envelope(s): %s", len(failedEnvelopeIDs), strings.Join(failedEnvelopeIDs, ", "))
	}
	return nil
}

func (s *FundsBlockService) blockEnvelope(ctx context.Context, envelopeID string) error {
	envelope, err := s.models.DisbursementEnvelopes.Get(ctx, s.models.DBConnectionPool, envelopeID)
	if err != nil {
		return fmt.Errorf("getting envelope: %w", err)
	}
	batchStatus, err := s.models.EnvelopeBatchStatuses.GetByEnvelopeID(ctx, s.models.DBConnectionPool, envelopeID)
	if err != nil {
		return fmt.Errorf("getting envelope batch status: %w", err)
	}
	if !s.isEligibleForFundsBlock(envelope, batchStatus) {
		log.Ctx(ctx).Debugf("Envelope %s is no longer eligible for a funds block", envelopeID)
		return nil
	}

	response := s.blockFundsWithBank(ctx, envelope)

	outcome, err := db.RunInTransactionWithResult(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) (stageOutcome[data.FundsBlockedStatus], error) {
		lockedStatus, lockErr := s.models.EnvelopeBatchStatuses.GetByEnvelopeIDForUpdate(ctx, dbTx, envelopeID)
		if lockErr != nil {
			return stageOutcome[data.FundsBlockedStatus]{}, fmt.Errorf("locking envelope batch status: %w", lockErr)
		}
		if !fundsBlockPending(lockedStatus, s.maxAttempts) {
			return stageOutcome[data.FundsBlockedStatus]{skipped: true}, nil
		}

		if recordErr := s.models.EnvelopeBatchStatuses.RecordFundsBlock(ctx, dbTx, envelopeID, response.Status, response.BlockReferenceNo, response.ErrorCode); recordErr != nil {
			return stageOutcome[data.FundsBlockedStatus]{}, fmt.Errorf("recording funds block: %w", recordErr)
		}
		return stageOutcome[data.FundsBlockedStatus]{
			status:    response.Status,
			attempts:  lockedStatus.FundsBlockedAttempts + 1,
			errorCode: response.ErrorCode,
		}, nil
	})
	if err != nil {
		return fmt.Errorf("writing back funds block for envelope %s: %w", envelopeID, err)
	}
	if outcome.skipped {
		log.Ctx(ctx).Debugf("Envelope %s was picked up by a concurrent funds block", envelopeID)
		return nil
	}

	log.Ctx(ctx).Infof("Funds block for envelope %s: %s (attempt %d/%d)", envelopeID, outcome.status, outcome.attempts, s.maxAttempts)

	if outcome.attempts == s.maxAttempts && outcome.status != data.SuccessFundsBlockedStatus {
		s.dispatchAlert(ctx, "Funds block attempts exhausted",
			fmt.Sprintf("Envelope %s exhausted its %d funds block attempts with status %s (last error: %s).",
				envelopeID, s.maxAttempts, outcome.status, outcome.errorCode))
	}
	return nil
}

// blockFundsWithBank resolves the sponsor bank and earmarks the envelope
// total. Setup failures fold into a PENDING_CHECK response: the block may or
// may not exist at the bank, so the state must stay retryable.
func (s *FundsBlockService) blockFundsWithBank(ctx context.Context, envelope *data.DisbursementEnvelope) bank.BlockFundsResponse {
	programConfig, err := s.programService.GetConfiguration(ctx, envelope.ProgramMnemonic)
	if err != nil {
		return bank.BlockFundsResponse{
			Status:    data.PendingCheckFundsBlockedStatus,
			ErrorCode: fmt.Sprintf("getting configuration for program %s: %v", envelope.ProgramMnemonic, err),
		}
	}
	connector, err := s.connectorFactory.GetConnector(programConfig.SponsorBankCode)
	if err != nil {
		return bank.BlockFundsResponse{
			Status:    data.PendingCheckFundsBlockedStatus,
			ErrorCode: err.Error(),
		}
	}
	return connector.BlockFunds(ctx, programConfig.SponsorBankAccountNumber, programConfig.SponsorBankAccountCurrency, envelope.TotalAmount)
}

func (s *FundsBlockService) isEligibleForFundsBlock(envelope *data.DisbursementEnvelope, batchStatus *data.DisbursementEnvelopeBatchStatus) bool {
	if envelope.CancellationStatus == data.CancelledCancellationStatus {
		return false
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if envelope.ScheduleDate.After(today) {
		return false
	}
	if batchStatus.ReceivedCount != envelope.DisbursementCount {
		return false
	}
	if batchStatus.FundsAvailable != data.FundsAvailableFundsAvailableStatus {
		return false
	}
	return fundsBlockPending(batchStatus, s.maxAttempts)
}

func fundsBlockPending(batchStatus *data.DisbursementEnvelopeBatchStatus, maxAttempts int) bool {
	if batchStatus.FundsBlocked != data.PendingCheckFundsBlockedStatus &&
		batchStatus.FundsBlocked != data.FailureFundsBlockedStatus {
		return false
	}
	return batchStatus.FundsBlockedAttempts < maxAttempts
}

func (s *FundsBlockService) dispatchAlert(ctx context.Context, title, body string) {
	if err := s.alertsDispatcher.DispatchAlert(ctx, title, body); err != nil {
		log.Ctx(ctx).Errorf("Dispatching %q alert: %v", title, err)
	}
}
