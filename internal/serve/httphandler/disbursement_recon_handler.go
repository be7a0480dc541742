package httphandler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
	"github.com/openg2p/g2p-bridge-backend/internal/serve/httperror"
)

type DisbursementReconHandler struct {
	Models *data.Models
}

// ExportDisbursementRecons streams the reconciliation records of one envelope
// as a CSV attachment.
func (h DisbursementReconHandler) ExportDisbursementRecons(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	envelopeID := strings.TrimSpace(r.URL.Query().Get("envelope_id"))
	if envelopeID == "" {
		extras := map[string]interface{}{"envelope_id": "envelope_id is required"}
		httperror.BadRequest("Request invalid", nil, extras).Render(rw)
		return
	}

	recons, err := h.Models.DisbursementRecons.GetByEnvelopeID(ctx, h.Models.DBConnectionPool, envelopeID)
	if err != nil {
		httperror.InternalError(ctx, "Failed to get disbursement recon records", err, nil).Render(rw)
		return
	}

	fileName := fmt.Sprintf("disbursement_recon_%s.csv", time.Now().Format("2006-01-02-15-04-05"))
	rw.Header().Set("Content-Type", "text/csv")
	rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", fileName))

	if err := gocsv.Marshal(recons, rw); err != nil {
		httperror.InternalError(ctx, "Failed to write CSV", err, nil).Render(rw)
		return
	}
}
