package monitor

type HttpRequestLabels struct {
	Status string
	Route  string
	Method string
}

func (h HttpRequestLabels) ToMap() map[string]string {
	return map[string]string{
		"status": h.Status,
		"route":  h.Route,
		"method": h.Method,
	}
}

type DBQueryLabels struct {
	QueryType string
}

func (d DBQueryLabels) ToMap() map[string]string {
	return map[string]string{
		"query_type": d.QueryType,
	}
}

type PipelineStageLabels struct {
	Stage   string
	Outcome string
}

func (p PipelineStageLabels) ToMap() map[string]string {
	return map[string]string{
		"stage":   p.Stage,
		"outcome": p.Outcome,
	}
}

var PipelineStageLabelNames = []string{"stage", "outcome"}

type BankAPILabels struct {
	Method     string
	Endpoint   string
	Status     string
	StatusCode string
}

func (b BankAPILabels) ToMap() map[string]string {
	return map[string]string{
		"method":      b.Method,
		"endpoint":    b.Endpoint,
		"status":      b.Status,
		"status_code": b.StatusCode,
	}
}

var BankAPILabelNames = []string{"method", "endpoint", "status", "status_code"}
