package httpresponse

import (
	"github.com/openg2p/g2p-bridge-backend/internal/data"
)

// ResponseStatus tells the caller whether the request was accepted as a whole.
type ResponseStatus string

const (
	SuccessResponseStatus ResponseStatus = "SUCCESS"
	FailureResponseStatus ResponseStatus = "FAILURE"
)

// BridgeResponse is the uniform envelope every ingress endpoint answers with.
// SUCCESS responses carry the (possibly enriched) payload back; FAILURE
// responses carry the stable error code, plus the payload when per-item codes
// were attached to it.
type BridgeResponse struct {
	ResponseStatus    ResponseStatus       `json:"response_status"`
	ResponsePayload   any                  `json:"response_payload,omitempty"`
	ResponseErrorCode data.BridgeErrorCode `json:"response_error_code,omitempty"`
}

func Success(payload any) BridgeResponse {
	return BridgeResponse{
		ResponseStatus:  SuccessResponseStatus,
		ResponsePayload: payload,
	}
}

func Failure(errorCode data.BridgeErrorCode, payload any) BridgeResponse {
	return BridgeResponse{
		ResponseStatus:    FailureResponseStatus,
		ResponsePayload:   payload,
		ResponseErrorCode: errorCode,
	}
}
