package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/stellar/go/support/log"

	"github.com/openg2p/g2p-bridge-backend/db"
	"github.com/openg2p/g2p-bridge-backend/internal/alerts"
	"github.com/openg2p/g2p-bridge-backend/internal/data"
	"github.com/openg2p/g2p-bridge-backend/internal/mapper"
)

type MapperResolutionServiceInterface interface {
	ResolveEligibleBatches(ctx context.Context) error
}

// MapperResolutionService is the third pipeline stage: it translates the
// beneficiary IDs of a mapper batch into funds accessors through the ID
// mapper, deconstructs each accessor into routing fields, and persists the
// resolution details the payment dispatch stage rides on.
type MapperResolutionService struct {
	models           *data.Models
	resolveClient    mapper.ResolveClientInterface
	deconstructor    *mapper.Deconstructor
	alertsDispatcher alerts.DispatcherInterface
	maxAttempts      int
}

var _ MapperResolutionServiceInterface = (*MapperResolutionService)(nil)

type MapperResolutionServiceOptions struct {
	Models           *data.Models
	ResolveClient    mapper.ResolveClientInterface
	Deconstructor    *mapper.Deconstructor
	AlertsDispatcher alerts.DispatcherInterface
	MaxAttempts      int
}

func NewMapperResolutionService(opts MapperResolutionServiceOptions) *MapperResolutionService {
	return &MapperResolutionService{
		models:           opts.Models,
		resolveClient:    opts.ResolveClient,
		deconstructor:    opts.Deconstructor,
		alertsDispatcher: opts.AlertsDispatcher,
		maxAttempts:      opts.MaxAttempts,
	}
}

// ResolveEligibleBatches enumerates mapper batches still pending resolution
// and resolves each one. A failing batch doesn't stop the run.
func (s *MapperResolutionService) ResolveEligibleBatches(ctx context.Context) error {
	batchIDs, err := s.models.MapperBatchStatuses.GetBatchesEligibleForResolution(ctx, s.models.DBConnectionPool, s.maxAttempts)
	if err != nil {
		return fmt.Errorf("getting mapper batches eligible for resolution: %w", err)
	}
	if len(batchIDs) == 0 {
		log.Ctx(ctx).Debug("No mapper batches eligible for resolution")
		return nil
	}
	log.Ctx(ctx).Infof("Resolving %d mapper batch(es)", len(batchIDs))

	var failedBatchIDs []string
	for _, batchID := range batchIDs {
		if resolveErr := s.resolveBatch(ctx, batchID); resolveErr != nil {
			log.Ctx(ctx).Errorf("Resolving mapper batch %s: %v", batchID, resolveErr)
			failedBatchIDs = append(failedBatchIDs, batchID)
		}
	}
	if len(failedBatchIDs) > 0 {
		return fmt.Errorf("mapper resolution failed for %d batch(es): %s", len(failedBatchIDs), strings.Join(failedBatchIDs, ", "))
	}
	return nil
}

func (s *MapperResolutionService) resolveBatch(ctx context.Context, batchID string) error {
	batchStatus, err := s.models.MapperBatchStatuses.GetByBatchID(ctx, s.models.DBConnectionPool, batchID)
	if err != nil {
		return fmt.Errorf("getting mapper batch status: %w", err)
	}
	if !mapperResolutionPending(batchStatus, s.maxAttempts) {
		log.Ctx(ctx).Debugf("Mapper batch %s is no longer eligible for resolution", batchID)
		return nil
	}

	batchControls, err := s.models.BatchControls.GetByMapperBatchID(ctx, s.models.DBConnectionPool, batchID)
	if err != nil {
		return fmt.Errorf("getting batch controls: %w", err)
	}
	if len(batchControls) == 0 {
		return fmt.Errorf("mapper batch %s has no batch controls", batchID)
	}

	details, failureMessage := s.resolveBeneficiaries(ctx, batchID, batchControls)

	outcome, err := db.RunInTransactionWithResult(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) (stageOutcome[data.BatchProcessingStatus], error) {
		lockedStatus, lockErr := s.models.MapperBatchStatuses.GetByBatchIDForUpdate(ctx, dbTx, batchID)
		if lockErr != nil {
			return stageOutcome[data.BatchProcessingStatus]{}, fmt.Errorf("locking mapper batch status: %w", lockErr)
		}
		if !mapperResolutionPending(lockedStatus, s.maxAttempts) {
			return stageOutcome[data.BatchProcessingStatus]{skipped: true}, nil
		}

		if failureMessage != "" {
			if recordErr := s.models.MapperBatchStatuses.RecordFailure(ctx, dbTx, batchID, failureMessage); recordErr != nil {
				return stageOutcome[data.BatchProcessingStatus]{}, fmt.Errorf("recording mapper resolution failure: %w", recordErr)
			}
			return stageOutcome[data.BatchProcessingStatus]{
				status:    data.PendingBatchProcessingStatus,
				attempts:  lockedStatus.Attempts + 1,
				errorCode: failureMessage,
			}, nil
		}

		if insertErr := s.models.MapperResolutionDetails.InsertAll(ctx, dbTx, details); insertErr != nil {
			return stageOutcome[data.BatchProcessingStatus]{}, fmt.Errorf("inserting mapper resolution details: %w", insertErr)
		}
		if markErr := s.models.MapperBatchStatuses.MarkProcessed(ctx, dbTx, batchID); markErr != nil {
			return stageOutcome[data.BatchProcessingStatus]{}, fmt.Errorf("marking mapper batch processed: %w", markErr)
		}
		return stageOutcome[data.BatchProcessingStatus]{
			status:   data.ProcessedBatchProcessingStatus,
			attempts: lockedStatus.Attempts + 1,
		}, nil
	})
	if err != nil {
		return fmt.Errorf("writing back mapper resolution for batch %s: %w", batchID, err)
	}
	if outcome.skipped {
		log.Ctx(ctx).Debugf("Mapper batch %s was picked up by a concurrent resolution", batchID)
		return nil
	}

	log.Ctx(ctx).Infof("Mapper resolution for batch %s: %s (attempt %d/%d)", batchID, outcome.status, outcome.attempts, s.maxAttempts)

	if outcome.attempts == s.maxAttempts && outcome.status != data.ProcessedBatchProcessingStatus {
		s.dispatchAlert(ctx, "Mapper resolution attempts exhausted",
			fmt.Sprintf("Mapper batch %s exhausted its %d resolution attempts (last error: %s).",
				batchID, s.maxAttempts, outcome.errorCode))
	}
	return nil
}

// resolveBeneficiaries calls the ID mapper for every beneficiary of the batch
// and deconstructs each funds accessor into routing fields. A batch resolves
// atomically: one unresolved beneficiary fails the whole batch, so a partial
// detail set is never persisted.
func (s *MapperResolutionService) resolveBeneficiaries(ctx context.Context, batchID string, batchControls []data.DisbursementBatchControl) ([]data.MapperResolutionDetail, string) {
	seen := make(map[string]bool, len(batchControls))
	beneficiaryIDs := make([]string, 0, len(batchControls))
	for _, batchControl := range batchControls {
		if !seen[batchControl.BeneficiaryID] {
			seen[batchControl.BeneficiaryID] = true
			beneficiaryIDs = append(beneficiaryIDs, batchControl.BeneficiaryID)
		}
	}

	resolveResponse, err := s.resolveClient.Resolve(ctx, beneficiaryIDs)
	if err != nil {
		return nil, fmt.Sprintf("Failed to resolve the request: %v", err)
	}

	responsesByBeneficiaryID := make(map[string]mapper.SingleResolveResponse, len(resolveResponse.Message.ResolveResponse))
	for _, singleResponse := range resolveResponse.Message.ResolveResponse {
		responsesByBeneficiaryID[singleResponse.ID] = singleResponse
	}

	details := make([]data.MapperResolutionDetail, 0, len(batchControls))
	for _, batchControl := range batchControls {
		singleResponse, ok := responsesByBeneficiaryID[batchControl.BeneficiaryID]
		if !ok || singleResponse.FA == "" {
			return nil, fmt.Sprintf("Failed to resolve the request for beneficiary: %s", batchControl.BeneficiaryID)
		}

		detail := data.MapperResolutionDetail{
			BatchID:        batchID,
			DisbursementID: batchControl.DisbursementID,
			BeneficiaryID:  batchControl.BeneficiaryID,
			ResolvedFA:     singleResponse.FA,
		}
		if singleResponse.AccountProviderInfo != nil {
			detail.ResolvedName = singleResponse.AccountProviderInfo.Name
		}

		breakdown := s.deconstructor.Deconstruct(singleResponse.FA)
		detail.FAType = breakdown.FAType
		detail.BankAccountNumber = breakdown.AccountNumber
		detail.BankCode = breakdown.BankCode
		detail.BranchCode = breakdown.BranchCode
		detail.MobileNumber = breakdown.MobileNumber
		detail.MobileWalletProvider = breakdown.MobileWalletProvider
		detail.EmailAddress = breakdown.EmailAddress
		detail.EmailWalletProvider = breakdown.EmailWalletProvider

		details = append(details, detail)
	}
	return details, ""
}

func mapperResolutionPending(batchStatus *data.MapperResolutionBatchStatus, maxAttempts int) bool {
	return batchStatus.Status == data.PendingBatchProcessingStatus && batchStatus.Attempts < maxAttempts
}

func (s *MapperResolutionService) dispatchAlert(ctx context.Context, title, body string) {
	if err := s.alertsDispatcher.DispatchAlert(ctx, title, body); err != nil {
		log.Ctx(ctx).Errorf("Dispatching %q alert: %v", title, err)
	}
}
