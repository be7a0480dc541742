package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
)

// PaymentStatus is the terminal outcome of a payment instruction at the sponsor bank.
type PaymentStatus string

const (
	SuccessPaymentStatus PaymentStatus = "SUCCESS"
	ErrorPaymentStatus   PaymentStatus = "ERROR"
)

// CheckFundsResponse reports whether the sponsor account can cover an envelope.
// Transport failures surface as PENDING_CHECK with an error code, never as a Go error.
type CheckFundsResponse struct {
	Status    data.FundsAvailableStatus `json:"status"`
	ErrorCode string                    `json:"error_code"`
}

// BlockFundsResponse carries the bank-issued reference for a successful earmark.
type BlockFundsResponse struct {
	Status           data.FundsBlockedStatus `json:"status"`
	BlockReferenceNo string                  `json:"block_reference_no"`
	ErrorCode        string                  `json:"error_code"`
}

// PaymentResponse acknowledges a dispatched payment batch.
type PaymentResponse struct {
	Status         PaymentStatus `json:"status"`
	ErrorCode      string        `json:"error_code"`
	AckReferenceNo string        `json:"ack_reference_no"`
}

// PaymentPayload is one payment instruction within a dispatched batch. The
// beneficiary_* routing fields are populated from the mapper resolution detail
// when ID mapper resolution was required, and left empty otherwise. Amounts
// travel as JSON numbers; use NewWireAmount to build them without float
// round-tripping.
type PaymentPayload struct {
	DisbursementID             string      `json:"disbursement_id"`
	RemittingAccount           string      `json:"remitting_account"`
	RemittingAccountCurrency   string      `json:"remitting_account_currency"`
	PaymentAmount              json.Number `json:"payment_amount"`
	FundsBlockedReferenceNo    string      `json:"funds_blocked_reference_number"`
	BeneficiaryID              string      `json:"beneficiary_id"`
	BeneficiaryName            string      `json:"beneficiary_name"`
	BeneficiaryAccount         string      `json:"beneficiary_account"`
	BeneficiaryAccountCurrency string      `json:"beneficiary_account_currency"`
	BeneficiaryAccountType     string      `json:"beneficiary_account_type"`
	BeneficiaryBankCode        string      `json:"beneficiary_bank_code"`
	BeneficiaryBranchCode      string      `json:"beneficiary_branch_code"`
	BeneficiaryPhoneNo         string      `json:"beneficiary_phone_no"`
	BeneficiaryMobileWallet    string      `json:"beneficiary_mobile_wallet_provider"`
	BeneficiaryEmail           string      `json:"beneficiary_email"`
	BeneficiaryEmailWallet     string      `json:"beneficiary_email_wallet_provider"`
	DisbursementNarrative      string      `json:"disbursement_narrative"`
	BenefitProgramMnemonic     string      `json:"benefit_program_mnemonic"`
	CycleCodeMnemonic          string      `json:"cycle_code_mnemonic"`
	PaymentDate                string      `json:"payment_date"`
}

// NewWireAmount renders a decimal amount as an unquoted JSON number.
func NewWireAmount(amount decimal.Decimal) json.Number {
	return json.Number(amount.String())
}

// ConnectorInterface is the per-bank capability set. CheckFunds, BlockFunds and
// InitiatePayment talk to the bank; the remaining methods extract bridge fields
// from MT940 statement lines, whose layout is bank-specific.
type ConnectorInterface interface {
	CheckFunds(ctx context.Context, accountNumber, currency string, amount decimal.Decimal) CheckFundsResponse
	BlockFunds(ctx context.Context, accountNumber, currency string, amount decimal.Decimal) BlockFundsResponse
	InitiatePayment(ctx context.Context, payloads []PaymentPayload) PaymentResponse
	DisbursementID(bankReference, customerReference string, narratives []string) string
	BeneficiaryName(narratives []string) string
	ReversalReason(narratives []string) string
}

// PaymentDateLayout is the wire format of PaymentPayload.PaymentDate.
const PaymentDateLayout = time.DateOnly

// ConnectorFactory maps a sponsor bank code to its connector. The factory is
// built once at startup and is immutable afterwards.
type ConnectorFactory struct {
	connectors map[string]ConnectorInterface
}

func NewConnectorFactory(connectors map[string]ConnectorInterface) *ConnectorFactory {
	byCode := make(map[string]ConnectorInterface, len(connectors))
	for code, connector := range connectors {
		byCode[code] = connector
	}
	return &ConnectorFactory{connectors: byCode}
}

// GetConnector returns the connector registered for the sponsor bank code.
func (f *ConnectorFactory) GetConnector(sponsorBankCode string) (ConnectorInterface, error) {
	connector, ok := f.connectors[sponsorBankCode]
	if !ok {
		return nil, fmt.Errorf("no bank connector registered for sponsor bank code %q", sponsorBankCode)
	}
	return connector, nil
}
