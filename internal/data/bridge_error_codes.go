package data

// BridgeErrorCode is a stable machine-readable code for a domain rule
// violation. The codes travel in API responses (`response_error_code`,
// per-payload `response_error_codes`) and in the pipeline's
// `latest_error_code`/`process_error_code` columns, so their values must not
// change.
type BridgeErrorCode string

const (
	// Envelope validation.
	InvalidProgramMnemonicErrorCode          BridgeErrorCode = "INVALID_PROGRAM_MNEMONIC"
	InvalidDisbursementFrequencyErrorCode    BridgeErrorCode = "INVALID_DISBURSEMENT_FREQUENCY"
	InvalidCycleCodeMnemonicErrorCode        BridgeErrorCode = "INVALID_CYCLE_CODE_MNEMONIC"
	InvalidNoOfBeneficiariesErrorCode        BridgeErrorCode = "INVALID_NO_OF_BENEFICIARIES"
	InvalidNoOfDisbursementsErrorCode        BridgeErrorCode = "INVALID_NO_OF_DISBURSEMENTS"
	InvalidTotalDisbursementAmountErrorCode  BridgeErrorCode = "INVALID_TOTAL_DISBURSEMENT_AMOUNT"
	InvalidDisbursementScheduleDateErrorCode BridgeErrorCode = "INVALID_DISBURSEMENT_SCHEDULE_DATE"

	// Envelope state.
	DisbursementEnvelopeNotFoundErrorCode            BridgeErrorCode = "DISBURSEMENT_ENVELOPE_NOT_FOUND"
	DisbursementEnvelopeAlreadyCanceledErrorCode     BridgeErrorCode = "DISBURSEMENT_ENVELOPE_ALREADY_CANCELED"
	DisbursementEnvelopeScheduleDateReachedErrorCode BridgeErrorCode = "DISBURSEMENT_ENVELOPE_SCHEDULE_DATE_REACHED"

	// Disbursement validation.
	InvalidDisbursementPayloadErrorCode    BridgeErrorCode = "INVALID_DISBURSEMENT_PAYLOAD"
	InvalidDisbursementEnvelopeIDErrorCode BridgeErrorCode = "INVALID_DISBURSEMENT_ENVELOPE_ID"
	InvalidDisbursementAmountErrorCode     BridgeErrorCode = "INVALID_DISBURSEMENT_AMOUNT"
	InvalidBeneficiaryIDErrorCode          BridgeErrorCode = "INVALID_BENEFICIARY_ID"
	InvalidBeneficiaryNameErrorCode        BridgeErrorCode = "INVALID_BENEFICIARY_NAME"
	InvalidNarrativeErrorCode              BridgeErrorCode = "INVALID_NARRATIVE"
	InvalidDisbursementIDErrorCode         BridgeErrorCode = "INVALID_DISBURSEMENT_ID"
	DisbursementAlreadyCanceledErrorCode   BridgeErrorCode = "DISBURSEMENT_ALREADY_CANCELED"

	// Envelope quota.
	MultipleEnvelopesFoundErrorCode                 BridgeErrorCode = "MULTIPLE_ENVELOPES_FOUND"
	NoOfDisbursementsExceedsDeclaredErrorCode       BridgeErrorCode = "NO_OF_DISBURSEMENTS_EXCEEDS_DECLARED"
	TotalDisbursementAmountExceedsDeclaredErrorCode BridgeErrorCode = "TOTAL_DISBURSEMENT_AMOUNT_EXCEEDS_DECLARED"
	NoOfDisbursementsLessThanZeroErrorCode          BridgeErrorCode = "NO_OF_DISBURSEMENTS_LESS_THAN_ZERO"
	TotalDisbursementAmountLessThanZeroErrorCode    BridgeErrorCode = "TOTAL_DISBURSEMENT_AMOUNT_LESS_THAN_ZERO"

	// Account statements.
	StatementUploadErrorErrorCode      BridgeErrorCode = "STATEMENT_UPLOAD_ERROR"
	InvalidAccountNumberErrorCode      BridgeErrorCode = "INVALID_ACCOUNT_NUMBER"
	StatementProcessingFailedErrorCode BridgeErrorCode = "STATEMENT_PROCESSING_FAILED"
)
