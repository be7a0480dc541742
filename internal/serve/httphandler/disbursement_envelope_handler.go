package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/stellar/go/support/render/httpjson"

	"github.com/openg2p/g2p-bridge-backend/internal/serve/httperror"
	"github.com/openg2p/g2p-bridge-backend/internal/serve/httpresponse"
	"github.com/openg2p/g2p-bridge-backend/internal/services"
)

type DisbursementEnvelopeHandler struct {
	EnvelopeService services.DisbursementEnvelopeServiceInterface
}

type PostDisbursementEnvelopeRequest struct {
	RequestPayload services.DisbursementEnvelopePayload `json:"request_payload"`
}

type CancelDisbursementEnvelopeRequest struct {
	RequestPayload struct {
		EnvelopeID string `json:"disbursement_envelope_id"`
	} `json:"request_payload"`
}

// PostDisbursementEnvelope declares a new payment campaign.
func (h DisbursementEnvelopeHandler) PostDisbursementEnvelope(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PostDisbursementEnvelopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperror.BadRequest("invalid request body", err, nil).Render(w)
		return
	}

	envelope, err := h.EnvelopeService.CreateEnvelope(ctx, &req.RequestPayload)
	if err != nil {
		renderServiceError(ctx, w, err, nil, "Cannot create disbursement envelope")
		return
	}

	httpjson.RenderStatus(w, http.StatusCreated, httpresponse.Success(envelope), httpjson.JSON)
}

// CancelDisbursementEnvelope withdraws an envelope from pipeline selection.
func (h DisbursementEnvelopeHandler) CancelDisbursementEnvelope(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CancelDisbursementEnvelopeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperror.BadRequest("invalid request body", err, nil).Render(w)
		return
	}

	if err := h.EnvelopeService.CancelEnvelope(ctx, req.RequestPayload.EnvelopeID); err != nil {
		renderServiceError(ctx, w, err, nil, "Cannot cancel disbursement envelope")
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, httpresponse.Success(map[string]string{
		"disbursement_envelope_id": req.RequestPayload.EnvelopeID,
	}), httpjson.JSON)
}
