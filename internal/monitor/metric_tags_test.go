package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_MetricTag_ListAll(t *testing.T) {
	allTags := MetricTag("").ListAll()

	expectedTags := []MetricTag{
		SuccessfulQueryDurationTag,
		FailureQueryDurationTag,
		HttpRequestDurationTag,
		PipelineStageRunsCounterTag,
		DisbursementsReceivedCounterTag,
		StatementsUploadedCounterTag,
		BankAPIRequestDurationTag,
		BankAPIRequestsTotalTag,
	}

	assert.ElementsMatch(t, expectedTags, allTags)
}

func Test_MetricTag_EveryTagIsRegistered(t *testing.T) {
	metrics := PrometheusMetrics()

	for _, tag := range MetricTag("").ListAll() {
		assert.Containsf(t, metrics, tag, "tag %s has no prometheus collector", tag)
	}
}
