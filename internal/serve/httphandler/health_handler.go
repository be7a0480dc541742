package httphandler

import (
	"net/http"

	"github.com/stellar/go/support/render/httpjson"

	"github.com/openg2p/g2p-bridge-backend/db"
)

type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// HealthResponse follows the draft IETF health check response format for
// HTTP APIs:
// https://datatracker.ietf.org/doc/html/draft-inadarei-api-health-check-06#name-api-health-response
type HealthResponse struct {
	Status    Status            `json:"status"`
	Version   string            `json:"version,omitempty"`
	ServiceID string            `json:"service_id,omitempty"`
	ReleaseID string            `json:"release_id,omitempty"`
	Services  map[string]Status `json:"services,omitempty"`
}

// HealthHandler reports the bridge's own health plus the health of its
// database dependency.
type HealthHandler struct {
	Version          string
	ServiceID        string
	ReleaseID        string
	DBConnectionPool db.DBConnectionPool
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	dbStatus := StatusPass
	if err := h.DBConnectionPool.Ping(r.Context()); err != nil {
		dbStatus = StatusFail
	}

	response := HealthResponse{
		Status:    dbStatus,
		Version:   h.Version,
		ServiceID: h.ServiceID,
		ReleaseID: h.ReleaseID,
		Services:  map[string]Status{"database": dbStatus},
	}

	// A 503 tells the orchestrator to take this instance out of rotation.
	statusCode := http.StatusOK
	if response.Status == StatusFail {
		statusCode = http.StatusServiceUnavailable
	}
	httpjson.RenderStatus(w, statusCode, response, httpjson.JSON)
}
