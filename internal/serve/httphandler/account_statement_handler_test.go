package httphandler

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
	"github.com/openg2p/g2p-bridge-backend/internal/monitor"
	"github.com/openg2p/g2p-bridge-backend/internal/services"
	"github.com/openg2p/g2p-bridge-backend/internal/services/mocks"
)

func createStatementMultipartRequest(t *testing.T, multipartFieldName, fileName string, fileContent io.Reader) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if multipartFieldName == "" {
		multipartFieldName = "statement_file"
	}

	if fileName == "" {
		fileName = "statement.mt940"
	}

	part, err := writer.CreateFormFile(multipartFieldName, fileName)
	require.NoError(t, err)

	_, err = io.Copy(part, fileContent)
	require.NoError(t, err)

	err = writer.Close()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/upload_mt940", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func Test_AccountStatementHandler_PostUploadStatement(t *testing.T) {
	statementContent := ":20:REF-1\n:25:SA-PM-NREGA\n:28C:00001/001\n"

	t.Run("returns BadRequest when the statement file field is missing", func(t *testing.T) {
		mStatementService := &mocks.MockAccountStatementService{}
		handler := AccountStatementHandler{StatementService: mStatementService}

		req := createStatementMultipartRequest(t, "wrong_field", "", strings.NewReader(statementContent))
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.PostUploadStatement).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error": "could not parse statement file"}`, rr.Body.String())
		mStatementService.AssertExpectations(t)
	})

	t.Run("returns BadRequest when the file name contains a traversal pattern", func(t *testing.T) {
		mStatementService := &mocks.MockAccountStatementService{}
		handler := AccountStatementHandler{StatementService: mStatementService}

		req := createStatementMultipartRequest(t, "", "../statement.mt940", strings.NewReader(statementContent))
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.PostUploadStatement).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error": "file name contains invalid traversal pattern"}`, rr.Body.String())
		mStatementService.AssertExpectations(t)
	})

	t.Run("returns FAILURE when the service rejects the statement", func(t *testing.T) {
		mStatementService := &mocks.MockAccountStatementService{}
		mStatementService.
			On("UploadStatement", mock.Anything, []byte(statementContent)).
			Return(nil, services.NewBridgeError(data.StatementUploadErrorErrorCode, "statement could not be staged")).
			Once()

		handler := AccountStatementHandler{StatementService: mStatementService}

		req := createStatementMultipartRequest(t, "", "", strings.NewReader(statementContent))
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.PostUploadStatement).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{
			"response_status": "FAILURE",
			"response_error_code": "STATEMENT_UPLOAD_ERROR"
		}`, rr.Body.String())
		mStatementService.AssertExpectations(t)
	})

	t.Run("successfully uploads the statement", func(t *testing.T) {
		mStatementService := &mocks.MockAccountStatementService{}
		mStatementService.
			On("UploadStatement", mock.Anything, []byte(statementContent)).
			Return(&data.AccountStatement{StatementID: "statement-123"}, nil).
			Once()

		mMonitorService := monitor.NewMockMonitorService(t)
		mMonitorService.
			On("MonitorCounters", monitor.StatementsUploadedCounterTag, mock.Anything).
			Return(nil).
			Once()

		handler := AccountStatementHandler{
			StatementService: mStatementService,
			MonitorService:   mMonitorService,
		}

		req := createStatementMultipartRequest(t, "", "", strings.NewReader(statementContent))
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.PostUploadStatement).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.JSONEq(t, `{
			"response_status": "SUCCESS",
			"response_payload": {"statement_id": "statement-123"}
		}`, rr.Body.String())
		mStatementService.AssertExpectations(t)
	})
}
