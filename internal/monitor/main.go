package monitor

import (
	"fmt"
	"strings"
)

type MetricType string

const MetricTypePrometheus MetricType = "PROMETHEUS"

// ParseMetricType parses a case-insensitive metric type name.
func ParseMetricType(metricTypeStr string) (MetricType, error) {
	mType := MetricType(strings.ToUpper(metricTypeStr))
	if mType != MetricTypePrometheus {
		return "", fmt.Errorf("invalid metric type %q", strings.ToUpper(metricTypeStr))
	}
	return mType, nil
}

type MetricOptions struct {
	MetricType  MetricType
	Environment string
}

func GetClient(opts MetricOptions) (MonitorClient, error) {
	if opts.MetricType != MetricTypePrometheus {
		return nil, fmt.Errorf("unknown metric type: %q", opts.MetricType)
	}
	return NewPrometheusClient()
}
