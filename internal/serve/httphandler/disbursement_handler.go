package httphandler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/stellar/go/support/log"
	"github.com/stellar/go/support/render/httpjson"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
	"github.com/openg2p/g2p-bridge-backend/internal/monitor"
	"github.com/openg2p/g2p-bridge-backend/internal/serve/httperror"
	"github.com/openg2p/g2p-bridge-backend/internal/serve/httpresponse"
	"github.com/openg2p/g2p-bridge-backend/internal/services"
)

type DisbursementHandler struct {
	Models              *data.Models
	MonitorService      monitor.MonitorServiceInterface
	DisbursementService services.DisbursementServiceInterface
}

type DisbursementBatchRequest struct {
	RequestPayload []*services.DisbursementPayload `json:"request_payload"`
}

// PostCreateDisbursements admits a batch of disbursements into one envelope.
// The batch is all-or-nothing: on rejection the payloads are echoed back with
// their per-payload error codes filled in.
func (d DisbursementHandler) PostCreateDisbursements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req DisbursementBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperror.BadRequest("invalid request body", err, nil).Render(w)
		return
	}

	if err := d.DisbursementService.CreateDisbursements(ctx, req.RequestPayload); err != nil {
		renderServiceError(ctx, w, err, req.RequestPayload, "Cannot create disbursements")
		return
	}

	d.monitorDisbursementsReceived(ctx, req.RequestPayload)

	httpjson.RenderStatus(w, http.StatusCreated, httpresponse.Success(req.RequestPayload), httpjson.JSON)
}

// PostCancelDisbursements cancels a batch of disbursements and returns their
// quota to the envelope.
func (d DisbursementHandler) PostCancelDisbursements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req DisbursementBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperror.BadRequest("invalid request body", err, nil).Render(w)
		return
	}

	if err := d.DisbursementService.CancelDisbursements(ctx, req.RequestPayload); err != nil {
		renderServiceError(ctx, w, err, req.RequestPayload, "Cannot cancel disbursements")
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, httpresponse.Success(req.RequestPayload), httpjson.JSON)
}

// monitorDisbursementsReceived increments the received counter once per
// accepted disbursement, labeled with the envelope's benefit program.
func (d DisbursementHandler) monitorDisbursementsReceived(ctx context.Context, payloads []*services.DisbursementPayload) {
	if len(payloads) == 0 {
		return
	}

	envelope, err := d.Models.DisbursementEnvelopes.Get(ctx, d.Models.DBConnectionPool, payloads[0].EnvelopeID)
	if err != nil {
		log.Ctx(ctx).Errorf("Error retrieving envelope for disbursements received counter: %s", err)
		return
	}

	labels := map[string]string{"program": envelope.ProgramMnemonic}
	for i := 0; i < len(payloads); i++ {
		if err = d.MonitorService.MonitorCounters(monitor.DisbursementsReceivedCounterTag, labels); err != nil {
			log.Ctx(ctx).Errorf("Error trying to monitor disbursements received counter: %s", err)
			return
		}
	}
}
