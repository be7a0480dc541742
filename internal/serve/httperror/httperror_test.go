package httperror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stellar/go/support/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_convenienceConstructors(t *testing.T) {
	originalErr := errors.New("original error")
	extras := map[string]interface{}{"foo": "bar"}

	testCases := []struct {
		name           string
		build          func(msg string) *HTTPError
		wantStatusCode int
		wantDefaultMsg string
	}{
		{
			name:           "NotFound",
			build:          func(msg string) *HTTPError { return NotFound(msg, originalErr, extras) },
			wantStatusCode: http.StatusNotFound,
			wantDefaultMsg: "Resource not found.",
		},
		{
			name:           "Conflict",
			build:          func(msg string) *HTTPError { return Conflict(msg, originalErr, extras) },
			wantStatusCode: http.StatusConflict,
			wantDefaultMsg: "The resource already exists.",
		},
		{
			name:           "BadRequest",
			build:          func(msg string) *HTTPError { return BadRequest(msg, originalErr, extras) },
			wantStatusCode: http.StatusBadRequest,
			wantDefaultMsg: "The request was invalid in some way.",
		},
		{
			name:           "UnprocessableEntity",
			build:          func(msg string) *HTTPError { return UnprocessableEntity(msg, originalErr, extras) },
			wantStatusCode: http.StatusUnprocessableEntity,
			wantDefaultMsg: "Unprocessable entity.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			httpErr := tc.build("")
			assert.Equal(t, tc.wantStatusCode, httpErr.StatusCode)
			assert.Equal(t, tc.wantDefaultMsg, httpErr.Message)
			assert.Equal(t, originalErr, httpErr.Err)
			assert.Equal(t, extras, httpErr.Extras)

			httpErr = tc.build("custom message")
			assert.Equal(t, tc.wantStatusCode, httpErr.StatusCode)
			assert.Equal(t, "custom message", httpErr.Message)
		})
	}
}

func Test_NewHTTPError_passThrough(t *testing.T) {
	httpErr := NewHTTPError(http.StatusBadRequest, "Bad request", nil, map[string]interface{}{"foo": "bar"})

	// no new info: the wrapped HTTPError is returned as is
	assert.Equal(t, httpErr, NewHTTPError(http.StatusBadRequest, "", httpErr, nil))

	// a new message, status code or extras produce a fresh error
	assert.NotEqual(t, httpErr, NewHTTPError(http.StatusBadRequest, "another message", httpErr, nil))
	assert.NotEqual(t, httpErr, NewHTTPError(http.StatusNotFound, "", httpErr, nil))
	assert.NotEqual(t, httpErr, NewHTTPError(http.StatusBadRequest, "", httpErr, map[string]interface{}{"foo2": "bar2"}))
}

func Test_InternalError(t *testing.T) {
	originalErr := errors.New("original error")
	ctx := context.Background()

	captureLogs := func(t *testing.T) *strings.Builder {
		t.Helper()
		buf := new(strings.Builder)
		log.DefaultLogger.SetOutput(buf)
		return buf
	}

	t.Run("reports with the default message", func(t *testing.T) {
		buf := captureLogs(t)

		httpErr := InternalError(ctx, "", originalErr, map[string]interface{}{"foo": "bar"})
		assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
		assert.Equal(t, "An internal error occurred while processing this request.", httpErr.Message)
		assert.Equal(t, originalErr, httpErr.Err)
		assert.Equal(t, map[string]interface{}{"foo": "bar"}, httpErr.Extras)
		require.Contains(t, buf.String(), "An internal error occurred while processing this request.: original error")
	})

	t.Run("reports with a custom message", func(t *testing.T) {
		buf := captureLogs(t)

		httpErr := InternalError(ctx, "statement upload failed", originalErr, nil)
		assert.Equal(t, "statement upload failed", httpErr.Message)
		require.Contains(t, buf.String(), "statement upload failed: original error")
	})

	t.Run("reports through a custom ReportErrorFunc", func(t *testing.T) {
		buf := captureLogs(t)

		SetDefaultReportErrorFunc(func(ctx context.Context, err error, msg string) {
			log.Error("reported with custom ReportFunc")
		})

		httpErr := InternalError(ctx, "", originalErr, nil)
		assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
		require.Contains(t, buf.String(), "reported with custom ReportFunc")
	})
}

func Test_HTTPError_Render(t *testing.T) {
	rr := httptest.NewRecorder()
	BadRequest("", nil, map[string]interface{}{"invalid_payloads": []string{"INVALID_DISBURSEMENT_AMOUNT"}}).Render(rr)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	wantJson := `{
		"error": "The request was invalid in some way.",
		"extras": {
			"invalid_payloads": ["INVALID_DISBURSEMENT_AMOUNT"]
		}
	}`
	assert.JSONEq(t, wantJson, rr.Body.String())
}

func Test_HTTPError_json(t *testing.T) {
	httpErr := NewHTTPError(http.StatusAccepted, "Bad request", nil, map[string]interface{}{"foo": "bar"})

	gotJson, err := json.Marshal(httpErr)
	require.NoError(t, err)
	require.JSONEq(t, `{"error": "Bad request", "extras": {"foo": "bar"}}`, string(gotJson))
}

type testError struct {
	Msg string
}

func (te *testError) Error() string {
	return te.Msg
}

func Test_HTTPError_unwrap(t *testing.T) {
	wrappedError := testError{"wrapped error"}
	httpErr := NewHTTPError(http.StatusForbidden, "Bad request", &wrappedError, nil)

	require.Equal(t, &wrappedError, httpErr.Unwrap())
	require.True(t, errors.Is(httpErr, &wrappedError))

	var e *testError
	require.True(t, errors.As(httpErr, &e))
	require.Equal(t, &wrappedError, e)
}
