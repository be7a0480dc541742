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
	"github.com/openg2p/g2p-bridge-backend/internal/utils"
)

type PaymentDispatchServiceInterface interface {
	DispatchEligibleBatches(ctx context.Context) error
}

// PaymentDispatchService is the fourth pipeline stage: it turns each bank
// batch of a fully funded envelope into payment instructions and hands them
// to the sponsor bank, riding on the envelope's funds block reference.
type PaymentDispatchService struct {
	models           *data.Models
	connectorFactory *bank.ConnectorFactory
	programService   BenefitProgramServiceInterface
	alertsDispatcher alerts.DispatcherInterface
	maxAttempts      int
}

var _ PaymentDispatchServiceInterface = (*PaymentDispatchService)(nil)

type PaymentDispatchServiceOptions struct {
	Models           *data.Models
	ConnectorFactory *bank.ConnectorFactory
	ProgramService   BenefitProgramServiceInterface
	AlertsDispatcher alerts.DispatcherInterface
	MaxAttempts      int
}

func NewPaymentDispatchService(opts PaymentDispatchServiceOptions) *PaymentDispatchService {
	return &PaymentDispatchService{
		models:           opts.Models,
		connectorFactory: opts.ConnectorFactory,
		programService:   opts.ProgramService,
		alertsDispatcher: opts.AlertsDispatcher,
		maxAttempts:      opts.MaxAttempts,
	}
}

// DispatchEligibleBatches enumerates bank batches whose envelope has its
// funds blocked and dispatches each one. A failing batch doesn't stop the run.
func (s *PaymentDispatchService) DispatchEligibleBatches(ctx context.Context) error {
	batchIDs, err := s.models.BankBatchStatuses.GetBatchesEligibleForDispatch(ctx, s.models.DBConnectionPool, s.maxAttempts)
	if err != nil {
		return fmt.Errorf("getting bank batches eligible for dispatch: %w", err)
	}
	if len(batchIDs) == 0 {
		log.Ctx(ctx).Debug("No bank batches eligible for dispatch")
		return nil
	}
	log.Ctx(ctx).Infof("Dispatching %d bank batch(es)", len(batchIDs))

	var failedBatchIDs []string
	for _, batchID := range batchIDs {
		if dispatchErr := s.dispatchBatch(ctx, batchID); dispatchErr != nil {
			log.Ctx(ctx).Errorf("Dispatching bank batch %s: %v", batchID, dispatchErr)
			failedBatchIDs = append(failedBatchIDs, batchID)
		}
	}
	if len(failedBatchIDs) > 0 {
		return fmt.Errorf("payment dispatch failed for %d batch(es): %s", len(failedBatchIDs), strings.Join(failedBatchIDs, ", "))
	}
	return nil
}

func (s *PaymentDispatchService) dispatchBatch(ctx context.Context, batchID string) error {
	batchStatus, err := s.models.BankBatchStatuses.GetByBatchID(ctx, s.models.DBConnectionPool, batchID)
	if err != nil {
		return fmt.Errorf("getting bank batch status: %w", err)
	}
	envelope, err := s.models.DisbursementEnvelopes.Get(ctx, s.models.DBConnectionPool, batchStatus.EnvelopeID)
	if err != nil {
		return fmt.Errorf("getting envelope: %w", err)
	}
	envelopeBatchStatus, err := s.models.EnvelopeBatchStatuses.GetByEnvelopeID(ctx, s.models.DBConnectionPool, batchStatus.EnvelopeID)
	if err != nil {
		return fmt.Errorf("getting envelope batch status: %w", err)
	}
	if !s.isEligibleForDispatch(envelope, envelopeBatchStatus, batchStatus) {
		log.Ctx(ctx).Debugf("Bank batch %s is no longer eligible for dispatch", batchID)
		return nil
	}

	disbursements, err := s.models.Disbursements.GetByBankBatchID(ctx, s.models.DBConnectionPool, batchID)
	if err != nil {
		return fmt.Errorf("getting batch disbursements: %w", err)
	}
	activeDisbursements := make([]data.Disbursement, 0, len(disbursements))
	for _, disbursement := range disbursements {
		if disbursement.CancellationStatus != data.CancelledCancellationStatus {
			activeDisbursements = append(activeDisbursements, disbursement)
		}
	}

	var response bank.PaymentResponse
	var shippedCount int
	if len(activeDisbursements) == 0 {
		// Every disbursement of the batch was cancelled before dispatch, so
		// there is nothing to instruct. The batch latches PROCESSED.
		response = bank.PaymentResponse{Status: bank.SuccessPaymentStatus}
	} else {
		detailsByDisbursementID, detailsErr := s.getResolutionDetails(ctx, activeDisbursements)
		if detailsErr != nil {
			return fmt.Errorf("getting mapper resolution details: %w", detailsErr)
		}
		response, shippedCount = s.initiatePaymentWithBank(ctx, envelope, envelopeBatchStatus, activeDisbursements, detailsByDisbursementID)
	}

	outcome, err := db.RunInTransactionWithResult(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) (stageOutcome[bank.PaymentStatus], error) {
		lockedStatus, lockErr := s.models.BankBatchStatuses.GetByBatchIDForUpdate(ctx, dbTx, batchID)
		if lockErr != nil {
			return stageOutcome[bank.PaymentStatus]{}, fmt.Errorf("locking bank batch status: %w", lockErr)
		}
		if !bankDispatchPending(lockedStatus, s.maxAttempts) {
			return stageOutcome[bank.PaymentStatus]{skipped: true}, nil
		}

		if response.Status != bank.SuccessPaymentStatus {
			if recordErr := s.models.BankBatchStatuses.RecordFailure(ctx, dbTx, batchID, response.ErrorCode); recordErr != nil {
				return stageOutcome[bank.PaymentStatus]{}, fmt.Errorf("recording payment dispatch failure: %w", recordErr)
			}
			return stageOutcome[bank.PaymentStatus]{
				status:    response.Status,
				attempts:  lockedStatus.Attempts + 1,
				errorCode: response.ErrorCode,
			}, nil
		}

		if markErr := s.models.BankBatchStatuses.MarkProcessed(ctx, dbTx, batchID); markErr != nil {
			return stageOutcome[bank.PaymentStatus]{}, fmt.Errorf("marking bank batch processed: %w", markErr)
		}
		if shippedCount > 0 {
			if shipErr := s.models.EnvelopeBatchStatuses.AddShipped(ctx, dbTx, batchStatus.EnvelopeID, shippedCount); shipErr != nil {
				return stageOutcome[bank.PaymentStatus]{}, fmt.Errorf("advancing envelope shipped count: %w", shipErr)
			}
		}
		return stageOutcome[bank.PaymentStatus]{
			status:   response.Status,
			attempts: lockedStatus.Attempts + 1,
		}, nil
	})
	if err != nil {
		return fmt.Errorf("writing back payment dispatch for batch %s: %w", batchID, err)
	}
	if outcome.skipped {
		log.Ctx(ctx).Debugf("Bank batch %s was picked up by a concurrent dispatch", batchID)
		return nil
	}

	if outcome.status == bank.SuccessPaymentStatus && response.AckReferenceNo != "" {
		log.Ctx(ctx).Infof("Bank batch %s acknowledged with reference %s", batchID, response.AckReferenceNo)
	}
	log.Ctx(ctx).Infof("Payment dispatch for bank batch %s: %s with %d payment(s) (attempt %d/%d)",
		batchID, outcome.status, shippedCount, outcome.attempts, s.maxAttempts)

	if outcome.attempts == s.maxAttempts && outcome.status != bank.SuccessPaymentStatus {
		s.dispatchAlert(ctx, "Payment dispatch attempts exhausted",
			fmt.Sprintf("Bank batch %s exhausted its %d payment dispatch attempts (last error: %s).",
				batchID, s.maxAttempts, outcome.errorCode))
	}
	return nil
}

func (s *PaymentDispatchService) getResolutionDetails(ctx context.Context, disbursements []data.Disbursement) (map[string]data.MapperResolutionDetail, error) {
	disbursementIDs := utils.MapSlice(disbursements, func(d data.Disbursement) string { return d.DisbursementID })
	details, err := s.models.MapperResolutionDetails.GetByDisbursementIDs(ctx, s.models.DBConnectionPool, disbursementIDs)
	if err != nil {
		return nil, err
	}
	detailsByDisbursementID := make(map[string]data.MapperResolutionDetail, len(details))
	for _, detail := range details {
		detailsByDisbursementID[detail.DisbursementID] = detail
	}
	return detailsByDisbursementID, nil
}

// initiatePaymentWithBank resolves the sponsor bank and instructs one payment
// per disbursement. Setup failures fold into an ERROR response so the batch
// stays retryable with its attempts advanced.
func (s *PaymentDispatchService) initiatePaymentWithBank(
	ctx context.Context,
	envelope *data.DisbursementEnvelope,
	envelopeBatchStatus *data.DisbursementEnvelopeBatchStatus,
	disbursements []data.Disbursement,
	detailsByDisbursementID map[string]data.MapperResolutionDetail,
) (bank.PaymentResponse, int) {
	programConfig, err := s.programService.GetConfiguration(ctx, envelope.ProgramMnemonic)
	if err != nil {
		return bank.PaymentResponse{
			Status:    bank.ErrorPaymentStatus,
			ErrorCode: fmt.Sprintf("getting configuration for program %s: %v", envelope.ProgramMnemonic, err),
		}, 0
	}
	connector, err := s.connectorFactory.GetConnector(programConfig.SponsorBankCode)
	if err != nil {
		return bank.PaymentResponse{
			Status:    bank.ErrorPaymentStatus,
			ErrorCode: err.Error(),
		}, 0
	}

	payloads := buildPaymentPayloads(envelope, programConfig, envelopeBatchStatus, disbursements, detailsByDisbursementID)
	return connector.InitiatePayment(ctx, payloads), len(payloads)
}

// buildPaymentPayloads assembles one instruction per disbursement. The
// beneficiary routing fields ride on the mapper resolution detail when the
// beneficiary was resolved and stay empty otherwise.
func buildPaymentPayloads(
	envelope *data.DisbursementEnvelope,
	programConfig *data.BenefitProgramConfiguration,
	envelopeBatchStatus *data.DisbursementEnvelopeBatchStatus,
	disbursements []data.Disbursement,
	detailsByDisbursementID map[string]data.MapperResolutionDetail,
) []bank.PaymentPayload {
	paymentDate := time.Now().UTC().Format(bank.PaymentDateLayout)

	payloads := make([]bank.PaymentPayload, 0, len(disbursements))
	for _, disbursement := range disbursements {
		payload := bank.PaymentPayload{
			DisbursementID:           disbursement.DisbursementID,
			RemittingAccount:         programConfig.SponsorBankAccountNumber,
			RemittingAccountCurrency: programConfig.SponsorBankAccountCurrency,
			PaymentAmount:            bank.NewWireAmount(disbursement.Amount),
			FundsBlockedReferenceNo:  envelopeBatchStatus.FundsBlockedReferenceNumber,
			BeneficiaryID:            disbursement.BeneficiaryID,
			BeneficiaryName:          disbursement.BeneficiaryName,
			DisbursementNarrative:    disbursement.Narrative,
			BenefitProgramMnemonic:   envelope.ProgramMnemonic,
			CycleCodeMnemonic:        envelope.CycleCodeMnemonic,
			PaymentDate:              paymentDate,
		}
		if detail, ok := detailsByDisbursementID[disbursement.DisbursementID]; ok {
			payload.BeneficiaryAccount = detail.BankAccountNumber
			payload.BeneficiaryAccountCurrency = programConfig.SponsorBankAccountCurrency
			if detail.FAType != nil {
				payload.BeneficiaryAccountType = string(*detail.FAType)
			}
			payload.BeneficiaryBankCode = detail.BankCode
			payload.BeneficiaryBranchCode = detail.BranchCode
			payload.BeneficiaryPhoneNo = detail.MobileNumber
			payload.BeneficiaryMobileWallet = detail.MobileWalletProvider
			payload.BeneficiaryEmail = detail.EmailAddress
			payload.BeneficiaryEmailWallet = detail.EmailWalletProvider
		}
		payloads = append(payloads, payload)
	}
	return payloads
}

func (s *PaymentDispatchService) isEligibleForDispatch(envelope *data.DisbursementEnvelope, envelopeBatchStatus *data.DisbursementEnvelopeBatchStatus, batchStatus *data.BankDisbursementBatchStatus) bool {
	if envelope.CancellationStatus == data.CancelledCancellationStatus {
		return false
	}
	if envelopeBatchStatus.ReceivedCount != envelope.DisbursementCount {
		return false
	}
	if envelopeBatchStatus.FundsBlocked != data.SuccessFundsBlockedStatus {
		return false
	}
	return bankDispatchPending(batchStatus, s.maxAttempts)
}

func bankDispatchPending(batchStatus *data.BankDisbursementBatchStatus, maxAttempts int) bool {
	return batchStatus.Status == data.PendingBatchProcessingStatus && batchStatus.Attempts < maxAttempts
}

func (s *PaymentDispatchService) dispatchAlert(ctx context.Context, title, body string) {
	if err := s.alertsDispatcher.DispatchAlert(ctx, title, body); err != nil {
		log.Ctx(ctx).Errorf("Dispatching %q alert: %v", title, err)
	}
}
