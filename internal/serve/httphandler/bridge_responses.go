package httphandler

import (
	"context"
	"net/http"

	"github.com/stellar/go/support/log"
	"github.com/stellar/go/support/render/httpjson"

	"github.com/openg2p/g2p-bridge-backend/internal/serve/httperror"
	"github.com/openg2p/g2p-bridge-backend/internal/serve/httpresponse"
	"github.com/openg2p/g2p-bridge-backend/internal/services"
)

// renderServiceError maps a service error to the wire: domain rule violations
// become a FAILURE envelope with the stable code, anything else is an
// unexpected 500. The payload travels back on failures so per-item error
// codes attached to it reach the caller.
func renderServiceError(ctx context.Context, w http.ResponseWriter, err error, payload any, msg string) {
	if bridgeErr, ok := services.AsBridgeError(err); ok {
		log.Ctx(ctx).Infof("%s: %v", msg, err)
		httpjson.RenderStatus(w, http.StatusBadRequest, httpresponse.Failure(bridgeErr.Code, payload), httpjson.JSON)
		return
	}

	httperror.InternalError(ctx, msg, err, nil).Render(w)
}
