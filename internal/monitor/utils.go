package monitor

import (
	"fmt"
	"net/http"
)

const (
	noHTTPStatus  = "0"
	successStatus = "success"
	errorStatus   = "error"
)

// ParseHTTPResponseStatus derives metric labels from an outbound HTTP call to
// the sponsor bank or the ID mapper. Transport errors carry no HTTP status, so
// the status code label is pinned to "0".
func ParseHTTPResponseStatus(resp *http.Response, reqErr error) (status, statusCode string) {
	if reqErr != nil {
		return errorStatus, noHTTPStatus
	}
	return successStatus, fmt.Sprint(resp.StatusCode)
}
