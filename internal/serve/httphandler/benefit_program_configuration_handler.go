package httphandler

import (
	"errors"
	"net/http"

	"github.com/stellar/go/support/http/httpdecode"
	"github.com/stellar/go/support/render/httpjson"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
	"github.com/openg2p/g2p-bridge-backend/internal/serve/httperror"
	"github.com/openg2p/g2p-bridge-backend/internal/serve/httpresponse"
	"github.com/openg2p/g2p-bridge-backend/internal/services"
)

type BenefitProgramConfigurationHandler struct {
	ProgramService services.BenefitProgramServiceInterface
}

type PostBenefitProgramConfigurationRequest struct {
	RequestPayload data.BenefitProgramConfiguration `json:"request_payload"`
}

// GetBenefitProgramConfigurations lists all program configurations.
func (h BenefitProgramConfigurationHandler) GetBenefitProgramConfigurations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	configs, err := h.ProgramService.GetAllConfigurations(ctx)
	if err != nil {
		httperror.InternalError(ctx, "Cannot retrieve benefit program configurations", err, nil).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusOK, httpresponse.Success(configs), httpjson.JSON)
}

// PostBenefitProgramConfiguration registers the sponsor bank routing of a
// benefit program.
func (h BenefitProgramConfigurationHandler) PostBenefitProgramConfiguration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PostBenefitProgramConfigurationRequest
	if err := httpdecode.DecodeJSON(r, &req); err != nil {
		httperror.BadRequest("invalid request body", err, nil).Render(w)
		return
	}

	config := req.RequestPayload
	if err := h.ProgramService.CreateConfiguration(ctx, &config); err != nil {
		switch {
		case errors.Is(err, data.ErrRecordAlreadyExists):
			httperror.Conflict("program configuration already exists", err, nil).Render(w)
		case errors.Is(err, data.ErrMissingInput):
			httperror.BadRequest(err.Error(), err, nil).Render(w)
		default:
			httperror.InternalError(ctx, "Cannot create benefit program configuration", err, nil).Render(w)
		}
		return
	}

	httpjson.RenderStatus(w, http.StatusCreated, httpresponse.Success(config), httpjson.JSON)
}
