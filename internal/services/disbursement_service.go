package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openg2p/g2p-bridge-backend/db"
	"github.com/openg2p/g2p-bridge-backend/internal/data"
)

// DisbursementPayload is the ingress shape of one disbursement. On create the
// service fills the server-assigned ID and receipt timestamp in place; on
// rejection the per-payload violations land in ResponseErrorCodes.
type DisbursementPayload struct {
	DisbursementID     string                  `json:"disbursement_id,omitempty"`
	EnvelopeID         string                  `json:"disbursement_envelope_id"`
	BeneficiaryID      string                  `json:"beneficiary_id"`
	BeneficiaryName    string                  `json:"beneficiary_name"`
	Narrative          string                  `json:"narrative"`
	Amount             decimal.Decimal         `json:"disbursement_amount"`
	ReceiptTS          *time.Time              `json:"receipt_time_stamp,omitempty"`
	CancellationStatus data.CancellationStatus `json:"cancellation_status,omitempty"`
	ResponseErrorCodes []data.BridgeErrorCode  `json:"response_error_codes,omitempty"`
}

type DisbursementServiceInterface interface {
	CreateDisbursements(ctx context.Context, payloads []*DisbursementPayload) error
	CancelDisbursements(ctx context.Context, payloads []*DisbursementPayload) error
}

type DisbursementService struct {
	models *data.Models
}

var _ DisbursementServiceInterface = (*DisbursementService)(nil)

func NewDisbursementService(models *data.Models) *DisbursementService {
	return &DisbursementService{models: models}
}

// CreateDisbursements admits a batch of disbursements into one envelope. The
// whole batch is admitted or rejected: quota violations and per-payload
// violations both fail it without partial inserts. On success every payload
// carries its assigned disbursement ID and receipt timestamp.
func (s *DisbursementService) CreateDisbursements(ctx context.Context, payloads []*DisbursementPayload) error {
	if len(payloads) == 0 {
		return NewBridgeError(data.InvalidDisbursementPayloadErrorCode, "no disbursements in batch")
	}

	envelopeID, err := singleEnvelopeID(payloads)
	if err != nil {
		return err
	}

	batchAmount := decimal.Zero
	for _, payload := range payloads {
		batchAmount = batchAmount.Add(payload.Amount)
	}

	return db.RunInTransaction(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) error {
		envelope, err := s.lockEnvelope(ctx, dbTx, envelopeID)
		if err != nil {
			return err
		}

		batchStatus, err := s.models.EnvelopeBatchStatuses.GetByEnvelopeIDForUpdate(ctx, dbTx, envelopeID)
		if err != nil {
			return fmt.Errorf("getting batch status for envelope %s: %w", envelopeID, err)
		}

		if batchStatus.ReceivedCount+len(payloads) > envelope.DisbursementCount {
			return NewBridgeError(data.NoOfDisbursementsExceedsDeclaredErrorCode,
				fmt.Sprintf("%d received + %d in batch exceeds the declared %d", batchStatus.ReceivedCount, len(payloads), envelope.DisbursementCount))
		}
		if batchStatus.ReceivedAmount.Add(batchAmount).GreaterThan(envelope.TotalAmount) {
			return NewBridgeError(data.TotalDisbursementAmountExceedsDeclaredErrorCode,
				fmt.Sprintf("%s received + %s in batch exceeds the declared %s", batchStatus.ReceivedAmount, batchAmount, envelope.TotalAmount))
		}

		payloadsValid := true
		for _, payload := range payloads {
			payload.ResponseErrorCodes = validateDisbursementPayload(payload)
			if len(payload.ResponseErrorCodes) > 0 {
				payloadsValid = false
			}
		}
		if !payloadsValid {
			return NewBridgeError(data.InvalidDisbursementPayloadErrorCode, "one or more disbursement payloads are invalid")
		}

		mapperResolutionBatchID := uuid.NewString()
		bankDisbursementBatchID := uuid.NewString()

		disbursements := make([]*data.Disbursement, 0, len(payloads))
		batchControls := make([]data.DisbursementBatchControl, 0, len(payloads))
		for _, payload := range payloads {
			disbursement := &data.Disbursement{
				DisbursementID:  uuid.NewString(),
				EnvelopeID:      envelopeID,
				BeneficiaryID:   payload.BeneficiaryID,
				BeneficiaryName: payload.BeneficiaryName,
				Narrative:       payload.Narrative,
				Amount:          payload.Amount,
			}
			disbursements = append(disbursements, disbursement)
			batchControls = append(batchControls, data.DisbursementBatchControl{
				DisbursementID:          disbursement.DisbursementID,
				EnvelopeID:              envelopeID,
				BeneficiaryID:           payload.BeneficiaryID,
				MapperResolutionBatchID: mapperResolutionBatchID,
				BankDisbursementBatchID: bankDisbursementBatchID,
			})
		}

		if err = s.models.Disbursements.InsertAll(ctx, dbTx, disbursements); err != nil {
			return fmt.Errorf("inserting disbursements: %w", err)
		}
		if err = s.models.BatchControls.InsertAll(ctx, dbTx, batchControls); err != nil {
			return fmt.Errorf("inserting batch controls: %w", err)
		}
		if err = s.models.BankBatchStatuses.Insert(ctx, dbTx, bankDisbursementBatchID, envelopeID); err != nil {
			return fmt.Errorf("inserting bank disbursement batch status: %w", err)
		}
		if batchStatus.IDMapperResolutionRequired {
			if err = s.models.MapperBatchStatuses.Insert(ctx, dbTx, mapperResolutionBatchID); err != nil {
				return fmt.Errorf("inserting mapper resolution batch status: %w", err)
			}
		}
		if err = s.models.EnvelopeBatchStatuses.AddReceived(ctx, dbTx, envelopeID, len(payloads), batchAmount); err != nil {
			return fmt.Errorf("incrementing received counters for envelope %s: %w", envelopeID, err)
		}

		for i, payload := range payloads {
			payload.DisbursementID = disbursements[i].DisbursementID
			receiptTS := disbursements[i].ReceiptTS
			payload.ReceiptTS = &receiptTS
			payload.CancellationStatus = data.NotCancelledCancellationStatus
		}
		return nil
	})
}

// CancelDisbursements cancels a batch of disbursements of one envelope and
// returns their quota to the envelope. Only allowed strictly before the
// envelope's schedule date.
func (s *DisbursementService) CancelDisbursements(ctx context.Context, payloads []*DisbursementPayload) error {
	if len(payloads) == 0 {
		return NewBridgeError(data.InvalidDisbursementPayloadErrorCode, "no disbursements in batch")
	}

	idsValid := true
	uniqueIDs := make([]string, 0, len(payloads))
	seen := make(map[string]bool, len(payloads))
	for _, payload := range payloads {
		payload.ResponseErrorCodes = nil
		if strings.TrimSpace(payload.DisbursementID) == "" {
			payload.ResponseErrorCodes = append(payload.ResponseErrorCodes, data.InvalidDisbursementIDErrorCode)
			idsValid = false
			continue
		}
		if !seen[payload.DisbursementID] {
			seen[payload.DisbursementID] = true
			uniqueIDs = append(uniqueIDs, payload.DisbursementID)
		}
	}
	if !idsValid {
		return NewBridgeError(data.InvalidDisbursementPayloadErrorCode, "one or more disbursement payloads are invalid")
	}

	return db.RunInTransaction(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) error {
		disbursements, err := s.models.Disbursements.GetByIDsForUpdate(ctx, dbTx, uniqueIDs)
		if err != nil {
			return fmt.Errorf("getting disbursements for update: %w", err)
		}
		if len(disbursements) == 0 {
			return NewBridgeError(data.InvalidDisbursementIDErrorCode, "none of the disbursements exist")
		}

		envelopeID := disbursements[0].EnvelopeID
		for _, disbursement := range disbursements {
			if disbursement.EnvelopeID != envelopeID {
				return NewBridgeError(data.MultipleEnvelopesFoundErrorCode, "disbursements belong to more than one envelope")
			}
		}

		envelope, err := s.lockEnvelope(ctx, dbTx, envelopeID)
		if err != nil {
			return err
		}
		today := time.Now().UTC().Truncate(24 * time.Hour)
		if !envelope.ScheduleDate.After(today) {
			return NewBridgeError(data.DisbursementEnvelopeScheduleDateReachedErrorCode,
				fmt.Sprintf("envelope %s schedule date %s is already reached", envelopeID, envelope.ScheduleDate.Format(time.DateOnly)))
		}

		byID := make(map[string]data.Disbursement, len(disbursements))
		for _, disbursement := range disbursements {
			byID[disbursement.DisbursementID] = disbursement
		}

		payloadsValid := true
		for _, payload := range payloads {
			disbursement, found := byID[payload.DisbursementID]
			if !found {
				payload.ResponseErrorCodes = append(payload.ResponseErrorCodes, data.InvalidDisbursementIDErrorCode)
				payloadsValid = false
				continue
			}
			if disbursement.CancellationStatus == data.CancelledCancellationStatus {
				payload.ResponseErrorCodes = append(payload.ResponseErrorCodes, data.DisbursementAlreadyCanceledErrorCode)
				payloadsValid = false
			}
		}
		if !payloadsValid {
			return NewBridgeError(data.InvalidDisbursementPayloadErrorCode, "one or more disbursement payloads are invalid")
		}

		batchAmount := decimal.Zero
		for _, disbursement := range disbursements {
			batchAmount = batchAmount.Add(disbursement.Amount)
		}

		batchStatus, err := s.models.EnvelopeBatchStatuses.GetByEnvelopeIDForUpdate(ctx, dbTx, envelopeID)
		if err != nil {
			return fmt.Errorf("getting batch status for envelope %s: %w", envelopeID, err)
		}
		if batchStatus.ReceivedCount-len(disbursements) < 0 {
			return NewBridgeError(data.NoOfDisbursementsLessThanZeroErrorCode,
				fmt.Sprintf("cancelling %d disbursements would drop received count %d below zero", len(disbursements), batchStatus.ReceivedCount))
		}
		if batchStatus.ReceivedAmount.Sub(batchAmount).IsNegative() {
			return NewBridgeError(data.TotalDisbursementAmountLessThanZeroErrorCode,
				fmt.Sprintf("cancelling %s would drop received amount %s below zero", batchAmount, batchStatus.ReceivedAmount))
		}

		if err = s.models.Disbursements.CancelAll(ctx, dbTx, uniqueIDs); err != nil {
			return fmt.Errorf("cancelling disbursements: %w", err)
		}
		if err = s.models.EnvelopeBatchStatuses.AddReceived(ctx, dbTx, envelopeID, -len(disbursements), batchAmount.Neg()); err != nil {
			return fmt.Errorf("decrementing received counters for envelope %s: %w", envelopeID, err)
		}

		for _, payload := range payloads {
			payload.EnvelopeID = envelopeID
			payload.CancellationStatus = data.CancelledCancellationStatus
		}
		return nil
	})
}

// lockEnvelope fetches the envelope FOR UPDATE and rejects missing or
// cancelled envelopes.
func (s *DisbursementService) lockEnvelope(ctx context.Context, dbTx db.DBTransaction, envelopeID string) (*data.DisbursementEnvelope, error) {
	envelope, err := s.models.DisbursementEnvelopes.GetForUpdate(ctx, dbTx, envelopeID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, NewBridgeError(data.DisbursementEnvelopeNotFoundErrorCode, fmt.Sprintf("envelope %q not found", envelopeID))
		}
		return nil, fmt.Errorf("getting envelope %s: %w", envelopeID, err)
	}
	if envelope.CancellationStatus == data.CancelledCancellationStatus {
		return nil, NewBridgeError(data.DisbursementEnvelopeAlreadyCanceledErrorCode, fmt.Sprintf("envelope %s is cancelled", envelopeID))
	}
	return envelope, nil
}

func singleEnvelopeID(payloads []*DisbursementPayload) (string, error) {
	envelopeID := payloads[0].EnvelopeID
	for _, payload := range payloads {
		if payload.EnvelopeID != envelopeID {
			return "", NewBridgeError(data.MultipleEnvelopesFoundErrorCode, "payloads reference more than one envelope")
		}
	}
	return envelopeID, nil
}

func validateDisbursementPayload(payload *DisbursementPayload) []data.BridgeErrorCode {
	var codes []data.BridgeErrorCode
	if strings.TrimSpace(payload.EnvelopeID) == "" {
		codes = append(codes, data.InvalidDisbursementEnvelopeIDErrorCode)
	}
	if !payload.Amount.IsPositive() {
		codes = append(codes, data.InvalidDisbursementAmountErrorCode)
	}
	if strings.TrimSpace(payload.BeneficiaryID) == "" {
		codes = append(codes, data.InvalidBeneficiaryIDErrorCode)
	}
	if strings.TrimSpace(payload.BeneficiaryName) == "" {
		codes = append(codes, data.InvalidBeneficiaryNameErrorCode)
	}
	if strings.TrimSpace(payload.Narrative) == "" {
		codes = append(codes, data.InvalidNarrativeErrorCode)
	}
	return codes
}
