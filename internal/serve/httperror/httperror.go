package httperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stellar/go/support/log"
	"github.com/stellar/go/support/render/httpjson"
)

// HTTPError is the JSON error body rendered by every ingress handler.
type HTTPError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	// Extras carries structured details, e.g. per-payload validation codes.
	Extras map[string]any `json:"extras,omitempty"`
	// Err wraps the original error to pass it forward.
	Err error `json:"-"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) Render(w http.ResponseWriter) {
	httpjson.RenderStatus(w, e.StatusCode, e, httpjson.JSON)
}

// ReportErrorFunc reports unexpected errors, typically into the crash tracker.
type ReportErrorFunc func(ctx context.Context, err error, msg string)

var reportError ReportErrorFunc = func(ctx context.Context, err error, msg string) {
	if msg != "" {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	log.Ctx(ctx).WithStack(err).Errorf("%+v", err)
}

// SetDefaultReportErrorFunc replaces the reporter used by InternalError.
func SetDefaultReportErrorFunc(fn ReportErrorFunc) {
	reportError = fn
}

// NewHTTPError builds an HTTPError. When the original error already is an
// HTTPError with the same status and no message or extras are given, it is
// passed through unchanged so wrapped handler errors keep their body.
func NewHTTPError(statusCode int, msg string, originalErr error, extras map[string]interface{}) *HTTPError {
	if msg == "" && originalErr != nil && len(extras) == 0 {
		var hErr *HTTPError
		if errors.As(originalErr, &hErr) && hErr.StatusCode == statusCode {
			return hErr
		}
	}

	return &HTTPError{
		StatusCode: statusCode,
		Message:    msg,
		Extras:     extras,
		Err:        originalErr,
	}
}

func NotFound(msg string, originalErr error, extras map[string]interface{}) *HTTPError {
	return newWithDefault(http.StatusNotFound, msg, "Resource not found.", originalErr, extras)
}

func Conflict(msg string, originalErr error, extras map[string]interface{}) *HTTPError {
	return newWithDefault(http.StatusConflict, msg, "The resource already exists.", originalErr, extras)
}

func BadRequest(msg string, originalErr error, extras map[string]interface{}) *HTTPError {
	return newWithDefault(http.StatusBadRequest, msg, "The request was invalid in some way.", originalErr, extras)
}

func UnprocessableEntity(msg string, originalErr error, extras map[string]interface{}) *HTTPError {
	return newWithDefault(http.StatusUnprocessableEntity, msg, "Unprocessable entity.", originalErr, extras)
}

// InternalError also reports the original error through the configured
// reporter, since a 500 is never expected behavior.
func InternalError(ctx context.Context, msg string, originalErr error, extras map[string]interface{}) *HTTPError {
	if msg == "" {
		msg = "An internal error occurred while processing this request."
	}
	reportError(ctx, originalErr, msg)
	return NewHTTPError(http.StatusInternalServerError, msg, originalErr, extras)
}

func newWithDefault(statusCode int, msg, defaultMsg string, originalErr error, extras map[string]interface{}) *HTTPError {
	if msg == "" {
		msg = defaultMsg
	}
	return NewHTTPError(statusCode, msg, originalErr, extras)
}
