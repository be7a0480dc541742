package monitor

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stellar/go/support/log"
)

// prometheusClient serves every bridge metric from a dedicated registry, so
// the exposition endpoint carries no default Go runtime collectors.
type prometheusClient struct {
	httpHandler http.Handler
}

var _ MonitorClient = (*prometheusClient)(nil)

func NewPrometheusClient() (*prometheusClient, error) {
	registry := prometheus.NewRegistry()

	var tag MetricTag
	for _, t := range tag.ListAll() {
		collector, ok := collectorForTag(t)
		if !ok {
			return nil, fmt.Errorf("metric not registered in prometheus metrics: %s", t)
		}
		registry.MustRegister(collector)
	}

	return &prometheusClient{httpHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}, nil
}

// collectorForTag resolves a tag to its collector, whichever metric family it
// was declared under.
func collectorForTag(tag MetricTag) (prometheus.Collector, bool) {
	if m, ok := SummaryVecMetrics[tag]; ok {
		return m, true
	}
	if m, ok := CounterMetrics[tag]; ok {
		return m, true
	}
	if m, ok := CounterVecMetrics[tag]; ok {
		return m, true
	}
	if m, ok := HistogramVecMetrics[tag]; ok {
		return m, true
	}
	return nil, false
}

func (p *prometheusClient) GetMetricType() MetricType {
	return MetricTypePrometheus
}

func (p *prometheusClient) GetMetricHttpHandler() http.Handler {
	return p.httpHandler
}

func (p *prometheusClient) MonitorHttpRequestDuration(duration time.Duration, labels HttpRequestLabels) {
	SummaryVecMetrics[HttpRequestDurationTag].With(labels.ToMap()).Observe(duration.Seconds())
}

func (p *prometheusClient) MonitorDBQueryDuration(duration time.Duration, tag MetricTag, labels DBQueryLabels) {
	SummaryVecMetrics[tag].With(labels.ToMap()).Observe(duration.Seconds())
}

func (p *prometheusClient) MonitorDuration(duration time.Duration, tag MetricTag, labels map[string]string) {
	SummaryVecMetrics[tag].With(labels).Observe(duration.Seconds())
}

func (p *prometheusClient) MonitorHistogram(value float64, tag MetricTag, labels map[string]string) {
	HistogramVecMetrics[tag].With(labels).Observe(value)
}

// MonitorCounters increments the labeled counter vec when labels are given,
// the plain counter otherwise.
func (p *prometheusClient) MonitorCounters(tag MetricTag, labels map[string]string) {
	if len(labels) != 0 {
		if counterVec, ok := CounterVecMetrics[tag]; ok {
			counterVec.With(labels).Inc()
		} else {
			log.Errorf("metric not registered in Prometheus CounterVecMetrics: %s", tag)
		}
		return
	}

	if counter, ok := CounterMetrics[tag]; ok {
		counter.Inc()
	} else {
		log.Errorf("metric not registered in Prometheus CounterMetrics: %s", tag)
	}
}
