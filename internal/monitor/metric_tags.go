package monitor

type MetricTag string

const (
	SuccessfulQueryDurationTag MetricTag = "successful_queries_duration"
	FailureQueryDurationTag    MetricTag = "failure_queries_duration"
	HttpRequestDurationTag     MetricTag = "requests_duration_seconds"
	// Pipeline:
	PipelineStageRunsCounterTag MetricTag = "pipeline_stage_runs_total"
	// Ingress:
	DisbursementsReceivedCounterTag MetricTag = "disbursements_received_total"
	StatementsUploadedCounterTag    MetricTag = "statements_uploaded_total"
	// Bank API requests:
	BankAPIRequestDurationTag MetricTag = "bank_api_request_duration_seconds"
	BankAPIRequestsTotalTag   MetricTag = "bank_api_requests_total"
)

func (m MetricTag) ListAll() []MetricTag {
	return []MetricTag{
		SuccessfulQueryDurationTag,
		FailureQueryDurationTag,
		HttpRequestDurationTag,
		PipelineStageRunsCounterTag,
		DisbursementsReceivedCounterTag,
		StatementsUploadedCounterTag,
		BankAPIRequestDurationTag,
		BankAPIRequestsTotalTag,
	}
}
