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

// DisbursementEnvelopePayload is the ingress shape of an envelope. The
// schedule date travels as an ISO date string and is validated here.
type DisbursementEnvelopePayload struct {
	ProgramMnemonic   string                     `json:"benefit_program_mnemonic"`
	CycleCodeMnemonic string                     `json:"cycle_code_mnemonic"`
	Frequency         data.DisbursementFrequency `json:"disbursement_frequency"`
	BeneficiaryCount  int                        `json:"number_of_beneficiaries"`
	DisbursementCount int                        `json:"number_of_disbursements"`
	TotalAmount       decimal.Decimal            `json:"total_disbursement_amount"`
	ScheduleDate      string                     `json:"disbursement_schedule_date"`
}

type DisbursementEnvelopeServiceInterface interface {
	CreateEnvelope(ctx context.Context, payload *DisbursementEnvelopePayload) (*data.DisbursementEnvelope, error)
	CancelEnvelope(ctx context.Context, envelopeID string) error
}

type DisbursementEnvelopeService struct {
	models         *data.Models
	programService BenefitProgramServiceInterface
}

var _ DisbursementEnvelopeServiceInterface = (*DisbursementEnvelopeService)(nil)

func NewDisbursementEnvelopeService(models *data.Models, programService BenefitProgramServiceInterface) *DisbursementEnvelopeService {
	return &DisbursementEnvelopeService{
		models:         models,
		programService: programService,
	}
}

// CreateEnvelope validates the declared campaign and persists the envelope
// together with its initial batch status in one transaction.
func (s *DisbursementEnvelopeService) CreateEnvelope(ctx context.Context, payload *DisbursementEnvelopePayload) (*data.DisbursementEnvelope, error) {
	scheduleDate, err := validateEnvelopePayload(payload)
	if err != nil {
		return nil, err
	}

	programConfig, err := s.programService.GetConfiguration(ctx, payload.ProgramMnemonic)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, NewBridgeError(data.InvalidProgramMnemonicErrorCode, fmt.Sprintf("no configuration for program %s", payload.ProgramMnemonic))
		}
		return nil, fmt.Errorf("getting configuration for program %s: %w", payload.ProgramMnemonic, err)
	}

	envelope := &data.DisbursementEnvelope{
		EnvelopeID:         uuid.NewString(),
		ProgramMnemonic:    payload.ProgramMnemonic,
		CycleCodeMnemonic:  payload.CycleCodeMnemonic,
		Frequency:          payload.Frequency,
		BeneficiaryCount:   payload.BeneficiaryCount,
		DisbursementCount:  payload.DisbursementCount,
		TotalAmount:        payload.TotalAmount,
		ScheduleDate:       scheduleDate,
		CancellationStatus: data.NotCancelledCancellationStatus,
	}

	err = db.RunInTransaction(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) error {
		if _, insertErr := s.models.DisbursementEnvelopes.Insert(ctx, dbTx, envelope); insertErr != nil {
			return fmt.Errorf("inserting envelope: %w", insertErr)
		}

		if insertErr := s.models.EnvelopeBatchStatuses.Insert(ctx, dbTx, envelope.EnvelopeID, programConfig.IDMapperResolutionRequired); insertErr != nil {
			return fmt.Errorf("inserting envelope batch status: %w", insertErr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating disbursement envelope: %w", err)
	}

	return envelope, nil
}

// CancelEnvelope marks an envelope cancelled, removing it from pipeline
// selection. Disbursements already attached keep their own state.
func (s *DisbursementEnvelopeService) CancelEnvelope(ctx context.Context, envelopeID string) error {
	if strings.TrimSpace(envelopeID) == "" {
		return NewBridgeError(data.DisbursementEnvelopeNotFoundErrorCode, "envelope id is empty")
	}

	return db.RunInTransaction(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) error {
		envelope, err := s.models.DisbursementEnvelopes.GetForUpdate(ctx, dbTx, envelopeID)
		if err != nil {
			if errors.Is(err, data.ErrRecordNotFound) {
				return NewBridgeError(data.DisbursementEnvelopeNotFoundErrorCode, fmt.Sprintf("envelope %s not found", envelopeID))
			}
			return fmt.Errorf("getting envelope %s: %w", envelopeID, err)
		}

		if envelope.CancellationStatus == data.CancelledCancellationStatus {
			return NewBridgeError(data.DisbursementEnvelopeAlreadyCanceledErrorCode, fmt.Sprintf("envelope %s is already cancelled", envelopeID))
		}

		if err = s.models.DisbursementEnvelopes.Cancel(ctx, dbTx, envelopeID); err != nil {
			return fmt.Errorf("cancelling envelope %s: %w", envelopeID, err)
		}
		return nil
	})
}

// validateEnvelopePayload applies the declaration rules in order, first
// failure wins. Returns the parsed schedule date.
func validateEnvelopePayload(payload *DisbursementEnvelopePayload) (time.Time, error) {
	if payload == nil {
		return time.Time{}, NewBridgeError(data.InvalidProgramMnemonicErrorCode, "payload is empty")
	}

	if strings.TrimSpace(payload.ProgramMnemonic) == "" {
		return time.Time{}, NewBridgeError(data.InvalidProgramMnemonicErrorCode, "benefit program mnemonic is empty")
	}

	if err := payload.Frequency.Validate(); err != nil {
		return time.Time{}, NewBridgeError(data.InvalidDisbursementFrequencyErrorCode, err.Error())
	}

	if strings.TrimSpace(payload.CycleCodeMnemonic) == "" {
		return time.Time{}, NewBridgeError(data.InvalidCycleCodeMnemonicErrorCode, "cycle code mnemonic is empty")
	}

	if payload.BeneficiaryCount < 1 {
		return time.Time{}, NewBridgeError(data.InvalidNoOfBeneficiariesErrorCode, fmt.Sprintf("number of beneficiaries %d must be at least 1", payload.BeneficiaryCount))
	}

	if payload.DisbursementCount < 1 {
		return time.Time{}, NewBridgeError(data.InvalidNoOfDisbursementsErrorCode, fmt.Sprintf("number of disbursements %d must be at least 1", payload.DisbursementCount))
	}

	if payload.TotalAmount.IsNegative() {
		return time.Time{}, NewBridgeError(data.InvalidTotalDisbursementAmountErrorCode, fmt.Sprintf("total disbursement amount %s must not be negative", payload.TotalAmount))
	}

	scheduleDate, err := time.Parse(time.DateOnly, payload.ScheduleDate)
	if err != nil {
		return time.Time{}, NewBridgeError(data.InvalidDisbursementScheduleDateErrorCode, fmt.Sprintf("schedule date %q is not a valid %s date", payload.ScheduleDate, time.DateOnly))
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if scheduleDate.Before(today) {
		return time.Time{}, NewBridgeError(data.InvalidDisbursementScheduleDateErrorCode, fmt.Sprintf("schedule date %s is in the past", payload.ScheduleDate))
	}

	return scheduleDate, nil
}
