package httphandler

import (
	"bytes"
	"io"
	"net/http"

	"github.com/stellar/go/support/log"
	"github.com/stellar/go/support/render/httpjson"

	"github.com/openg2p/g2p-bridge-backend/internal/monitor"
	"github.com/openg2p/g2p-bridge-backend/internal/serve/httperror"
	"github.com/openg2p/g2p-bridge-backend/internal/serve/httpresponse"
	"github.com/openg2p/g2p-bridge-backend/internal/services"
	"github.com/openg2p/g2p-bridge-backend/internal/utils"
)

type AccountStatementHandler struct {
	StatementService services.AccountStatementServiceInterface
	MonitorService   monitor.MonitorServiceInterface
}

// PostUploadStatement accepts an MT940 statement file as multipart form data
// and stages it for asynchronous reconciliation.
func (h AccountStatementHandler) PostUploadStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !utils.IsMultipartFormData(r) {
		httperror.BadRequest("request Content-Type must be multipart/form-data", nil, nil).Render(w)
		return
	}

	file, header, err := r.FormFile("statement_file")
	if err != nil {
		httperror.BadRequest("could not parse statement file", err, nil).Render(w)
		return
	}
	defer file.Close()

	if err = utils.ValidatePathIsNotTraversal(header.Filename); err != nil {
		httperror.BadRequest("file name contains invalid traversal pattern", nil, nil).Render(w)
		return
	}

	var buf bytes.Buffer
	if _, err = io.Copy(&buf, file); err != nil {
		httperror.BadRequest("could not read statement file", err, nil).Render(w)
		return
	}

	statement, err := h.StatementService.UploadStatement(ctx, buf.Bytes())
	if err != nil {
		renderServiceError(ctx, w, err, nil, "Cannot upload account statement")
		return
	}

	if err = h.MonitorService.MonitorCounters(monitor.StatementsUploadedCounterTag, nil); err != nil {
		log.Ctx(ctx).Errorf("Error trying to monitor statements uploaded counter: %s", err)
	}

	httpjson.RenderStatus(w, http.StatusCreated, httpresponse.Success(map[string]string{
		"statement_id": statement.StatementID,
	}), httpjson.JSON)
}
