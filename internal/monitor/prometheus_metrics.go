package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

func PrometheusMetrics() map[MetricTag]prometheus.Collector {
	metrics := make(map[MetricTag]prometheus.Collector)

	for tag, summaryVec := range SummaryVecMetrics {
		metrics[tag] = summaryVec
	}

	for tag, counter := range CounterMetrics {
		metrics[tag] = counter
	}

	for tag, histogramVec := range HistogramVecMetrics {
		metrics[tag] = histogramVec
	}

	for tag, counterVec := range CounterVecMetrics {
		metrics[tag] = counterVec
	}

	return metrics
}

var SummaryVecMetrics = map[MetricTag]*prometheus.SummaryVec{
	HttpRequestDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "g2pbridge", Subsystem: "http", Name: string(HttpRequestDurationTag),
		Help: "HTTP requests durations, sliding window = 10m",
	},
		[]string{"status", "route", "method"},
	),
	SuccessfulQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "g2pbridge", Subsystem: "db", Name: string(SuccessfulQueryDurationTag),
		Help: "Successful DB query durations",
	},
		[]string{"query_type"},
	),
	FailureQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "g2pbridge", Subsystem: "db", Name: string(FailureQueryDurationTag),
		Help: "Failure DB query durations",
	},
		[]string{"query_type"},
	),
}

var CounterMetrics = map[MetricTag]prometheus.Counter{
	StatementsUploadedCounterTag: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "g2pbridge", Subsystem: "ingress", Name: string(StatementsUploadedCounterTag),
		Help: "A counter of the MT940 account statements accepted for reconciliation",
	}),
}

var HistogramVecMetrics = map[MetricTag]*prometheus.HistogramVec{
	BankAPIRequestDurationTag: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "g2pbridge", Subsystem: "bank", Name: string(BankAPIRequestDurationTag),
		Help: "A histogram of the sponsor bank API request durations",
	},
		BankAPILabelNames,
	),
}

var CounterVecMetrics = map[MetricTag]*prometheus.CounterVec{
	PipelineStageRunsCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "g2pbridge", Subsystem: "pipeline", Name: string(PipelineStageRunsCounterTag),
		Help: "A counter of pipeline stage worker runs, labeled by stage and outcome",
	},
		PipelineStageLabelNames,
	),
	DisbursementsReceivedCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "g2pbridge", Subsystem: "ingress", Name: string(DisbursementsReceivedCounterTag),
		Help: "A counter of disbursements accepted by the ingress API, labeled by benefit program",
	},
		[]string{"program"},
	),
	BankAPIRequestsTotalTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "g2pbridge", Subsystem: "bank", Name: string(BankAPIRequestsTotalTag),
		Help: "A counter of the sponsor bank API requests",
	},
		BankAPILabelNames,
	),
}
