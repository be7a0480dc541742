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

type FundsAvailabilityServiceInterface interface {
	CheckEligibleEnvelopes(ctx context.Context) error
}

// FundsAvailabilityService is the first pipeline stage: it asks the sponsor
// bank whether an envelope's declared total is covered. An envelope becomes
// eligible the day after its schedule date, once its received counters match
// the declaration.
type FundsAvailabilityService struct {
	models           *data.Models
	connectorFactory *bank.ConnectorFactory
	programService   BenefitProgramServiceInterface
	alertsDispatcher alerts.DispatcherInterface
	maxAttempts      int
}

var _ FundsAvailabilityServiceInterface = (*FundsAvailabilityService)(nil)

type FundsAvailabilityServiceOptions struct {
	Models           *data.Models
	ConnectorFactory *bank.ConnectorFactory
	ProgramService   BenefitProgramServiceInterface
	AlertsDispatcher alerts.DispatcherInterface
	MaxAttempts      int
}

func NewFundsAvailabilityService(opts FundsAvailabilityServiceOptions) *FundsAvailabilityService {
	return &FundsAvailabilityService{
		models:           opts.Models,
		connectorFactory: opts.ConnectorFactory,
		programService:   opts.ProgramService,
		alertsDispatcher: opts.AlertsDispatcher,
		maxAttempts:      opts.MaxAttempts,
	}
}

// CheckEligibleEnvelopes enumerates envelopes due for a fund availability
// check and processes each one. A failing envelope doesn't stop the run.
func (s *FundsAvailabilityService) CheckEligibleEnvelopes(ctx context.Context) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	envelopeIDs, err := s.models.EnvelopeBatchStatuses.GetEnvelopesEligibleForFundsCheck(ctx, s.models.DBConnectionPool, today, s.maxAttempts)
	if err != nil {
		return fmt.Errorf("getting envelopes eligible for funds check: %w", err)
	}
	if len(envelopeIDs) == 0 {
		log.Ctx(ctx).Debug("No envelopes eligible for funds availability check")
		return nil
	}
	log.Ctx(ctx).Infof("Checking fund availability for %d envelope(s)", len(envelopeIDs))

	var failedEnvelopeIDs []string
	for _, envelopeID := range envelopeIDs {
		if checkErr := s.checkEnvelope(ctx, envelopeID); checkErr != nil {
			log.Ctx(ctx).Errorf("Checking fund availability for envelope %s: %v", envelopeID, checkErr)
			failedEnvelopeIDs = append(failedEnvelopeIDs, envelopeID)
		}
	}
	if len(failedEnvelopeIDs) > 0 {
		return fmt.Errorf("fund availability check failed for %d envelope(s): %s", len(failedEnvelopeIDs), strings.Join(failedEnvelopeIDs, ", "))
	}
	return nil
}

// checkEnvelope runs the availability check for one envelope. The bank call
// happens outside any transaction; the write-back transaction re-verifies the
// stage predicate before recording the outcome.
func (s *FundsAvailabilityService) checkEnvelope(ctx context.Context, envelopeID string) error {
	envelope, err := s.models.DisbursementEnvelopes.Get(ctx, s.models.DBConnectionPool, envelopeID)
	if err != nil {
		return fmt.Errorf("getting envelope: %w", err)
	}
	batchStatus, err := s.models.EnvelopeBatchStatuses.GetByEnvelopeID(ctx, s.models.DBConnectionPool, envelopeID)
	if err != nil {
		return fmt.Errorf("getting envelope batch status: %w", err)
	}
	if !s.isEligibleForFundsCheck(envelope, batchStatus) {
		log.Ctx(ctx).Debugf("Envelope %s is no longer eligible for a funds availability check", envelopeID)
		return nil
	}

	response := s.checkFundsWithBank(ctx, envelope)

	outcome, err := db.RunInTransactionWithResult(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) (stageOutcome[data.FundsAvailableStatus], error) {
		lockedStatus, lockErr := s.models.EnvelopeBatchStatuses.GetByEnvelopeIDForUpdate(ctx, dbTx, envelopeID)
		if lockErr != nil {
			return stageOutcome[data.FundsAvailableStatus]{}, fmt.Errorf("locking envelope batch status: %w", lockErr)
		}
		if !fundsCheckPending(lockedStatus, s.maxAttempts) {
			return stageOutcome[data.FundsAvailableStatus]{skipped: true}, nil
		}

		if recordErr := s.models.EnvelopeBatchStatuses.RecordFundsAvailability(ctx, dbTx, envelopeID, response.Status, response.ErrorCode); recordErr != nil {
			return stageOutcome[data.FundsAvailableStatus]{}, fmt.Errorf("recording funds availability: %w", recordErr)
		}
		return stageOutcome[data.FundsAvailableStatus]{
			status:    response.Status,
			attempts:  lockedStatus.FundsAvailableAttempts + 1,
			errorCode: response.ErrorCode,
		}, nil
	})
	if err != nil {
		return fmt.Errorf("writing back funds availability for envelope %s: %w", envelopeID, err)
	}
	if outcome.skipped {
		log.Ctx(ctx).Debugf("Envelope %s was picked up by a concurrent funds availability check", envelopeID)
		return nil
	}

	log.Ctx(ctx).Infof("Funds availability for envelope %s: %s (attempt %d/%d)", envelopeID, outcome.status, outcome.attempts, s.maxAttempts)

	if outcome.attempts == s.maxAttempts && outcome.status != data.FundsAvailableFundsAvailableStatus {
		s.dispatchAlert(ctx, "Funds availability attempts exhausted",
			fmt.Sprintf("Envelope %s exhausted its %d funds availability attempts with status %s (last error: %s).",
				envelopeID, s.maxAttempts, outcome.status, outcome.errorCode))
	}
	return nil
}

// checkFundsWithBank resolves the sponsor bank for the envelope's program and
// performs the check. Setup failures fold into a PENDING_CHECK response so the
// attempt is still recorded and capped.
func (s *FundsAvailabilityService) checkFundsWithBank(ctx context.Context, envelope *data.DisbursementEnvelope) bank.CheckFundsResponse {
	programConfig, err := s.programService.GetConfiguration(ctx, envelope.ProgramMnemonic)
	if err != nil {
		return bank.CheckFundsResponse{
			Status:    data.PendingCheckFundsAvailableStatus,
			ErrorCode: fmt.Sprintf("getting configuration for program %s: %v", envelope.ProgramMnemonic, err),
		}
	}
	connector, err := s.connectorFactory.GetConnector(programConfig.SponsorBankCode)
	if err != nil {
		return bank.CheckFundsResponse{
			Status:    data.PendingCheckFundsAvailableStatus,
			ErrorCode: err.Error(),
		}
	}
	return connector.CheckFunds(ctx, programConfig.SponsorBankAccountNumber, programConfig.SponsorBankAccountCurrency, envelope.TotalAmount)
}

func (s *FundsAvailabilityService) isEligibleForFundsCheck(envelope *data.DisbursementEnvelope, batchStatus *data.DisbursementEnvelopeBatchStatus) bool {
	if envelope.CancellationStatus == data.CancelledCancellationStatus {
		return false
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if !envelope.ScheduleDate.Before(today) {
		return false
	}
	if batchStatus.ReceivedCount != envelope.DisbursementCount {
		return false
	}
	if !batchStatus.ReceivedAmount.Equal(envelope.TotalAmount) {
		return false
	}
	return fundsCheckPending(batchStatus, s.maxAttempts)
}

func fundsCheckPending(batchStatus *data.DisbursementEnvelopeBatchStatus, maxAttempts int) bool {
	if batchStatus.FundsAvailable != data.PendingCheckFundsAvailableStatus &&
		batchStatus.FundsAvailable != data.FundsNotAvailableFundsAvailableStatus {
		return false
	}
	return batchStatus.FundsAvailableAttempts < maxAttempts
}

func (s *FundsAvailabilityService) dispatchAlert(ctx context.Context, title, body string) {
	if err := s.alertsDispatcher.DispatchAlert(ctx, title, body); err != nil {
		log.Ctx(ctx).Errorf("Dispatching %q alert: %v", title, err)
	}
}

// stageOutcome is what a stage write-back transaction reports to the caller:
// whether the unit was skipped because another run got there first, and
// otherwise the recorded status and the attempt count after the write.
type stageOutcome[T any] struct {
	skipped   bool
	status    T
	attempts  int
	errorCode string
}
