package mapper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpclientMocks "github.com/openg2p/g2p-bridge-backend/internal/serve/httpclient/mocks"
)

func Test_ResolveClient_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("no beneficiary IDs", func(t *testing.T) {
		rc, _ := newResolveClientWithMock(t)
		resp, err := rc.Resolve(ctx, nil)
		assert.EqualError(t, err, "no beneficiary IDs to resolve")
		assert.Nil(t, resp)
	})

	t.Run("successful resolve", func(t *testing.T) {
		rc, httpClientMock := newResolveClientWithMock(t)
		respJSON := `{
			"message": {
				"transaction_id": "trans-123",
				"resolve_response": [
					{"reference_id": "ref-1", "id": "b-001", "fa": "BANK_ACCOUNT:111@EXBK.BR1", "account_provider_info": {"name": "JANE DOE"}},
					{"reference_id": "ref-2", "id": "b-002", "fa": ""}
				]
			}
		}`
		httpClientMock.
			On("Do", mock.Anything).
			Return(&http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewBufferString(respJSON)),
			}, nil).
			Run(func(args mock.Arguments) {
				req, ok := args.Get(0).(*http.Request)
				require.True(t, ok)

				assert.Equal(t, "http://localhost:8007/mapper/resolve", req.URL.String())
				assert.Equal(t, http.MethodPost, req.Method)
				assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

				var reqBody ResolveRequest
				require.NoError(t, json.NewDecoder(req.Body).Decode(&reqBody))
				assert.Equal(t, "resolve", reqBody.Header.Action)
				assert.Equal(t, 2, reqBody.Header.TotalCount)
				assert.NotEmpty(t, reqBody.Header.MessageID)
				assert.NotEmpty(t, reqBody.Message.TransactionID)
				require.Len(t, reqBody.Message.ResolveRequest, 2)
				assert.Equal(t, "b-001", reqBody.Message.ResolveRequest[0].ID)
				assert.Equal(t, "details", reqBody.Message.ResolveRequest[0].Scope)
				assert.NotEmpty(t, reqBody.Message.ResolveRequest[0].ReferenceID)
				assert.Equal(t, "b-002", reqBody.Message.ResolveRequest[1].ID)
			}).
			Once()

		resp, err := rc.Resolve(ctx, []string{"b-001", "b-002"})
		require.NoError(t, err)
		require.Len(t, resp.Message.ResolveResponse, 2)
		assert.Equal(t, "BANK_ACCOUNT:111@EXBK.BR1", resp.Message.ResolveResponse[0].FA)
		require.NotNil(t, resp.Message.ResolveResponse[0].AccountProviderInfo)
		assert.Equal(t, "JANE DOE", resp.Message.ResolveResponse[0].AccountProviderInfo.Name)
		assert.Empty(t, resp.Message.ResolveResponse[1].FA)
		assert.Nil(t, resp.Message.ResolveResponse[1].AccountProviderInfo)
	})

	t.Run("retries transient failures before succeeding", func(t *testing.T) {
		rc, httpClientMock := newResolveClientWithMock(t)
		httpClientMock.
			On("Do", mock.Anything).
			Return(nil, errors.New("connection refused")).
			Twice()
		httpClientMock.
			On("Do", mock.Anything).
			Return(&http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewBufferString(`{"message": {"resolve_response": []}}`)),
			}, nil).
			Once()

		resp, err := rc.Resolve(ctx, []string{"b-001"})
		require.NoError(t, err)
		assert.Empty(t, resp.Message.ResolveResponse)
	})

	t.Run("gives up after exhausting the attempts", func(t *testing.T) {
		rc, httpClientMock := newResolveClientWithMock(t)
		httpClientMock.
			On("Do", mock.Anything).
			Return(nil, errors.New("connection refused")).
			Times(resolveRequestAttempts)

		resp, err := rc.Resolve(ctx, []string{"b-001"})
		assert.ErrorContains(t, err, "making resolve request")
		assert.ErrorContains(t, err, "connection refused")
		assert.Nil(t, resp)
	})

	t.Run("non-2xx response surfaces the body", func(t *testing.T) {
		rc, httpClientMock := newResolveClientWithMock(t)
		httpClientMock.
			On("Do", mock.Anything).
			Return(&http.Response{
				StatusCode: http.StatusBadGateway,
				Body:       io.NopCloser(bytes.NewBufferString("mapper unavailable")),
			}, nil).
			Times(resolveRequestAttempts)

		resp, err := rc.Resolve(ctx, []string{"b-001"})
		assert.ErrorContains(t, err, "unexpected status code 502")
		assert.ErrorContains(t, err, "mapper unavailable")
		assert.Nil(t, resp)
	})
}

func newResolveClientWithMock(t *testing.T) (*ResolveClient, *httpclientMocks.HttpClientMock) {
	httpClientMock := httpclientMocks.NewHttpClientMock(t)

	return &ResolveClient{
		ResolveAPIURL: "http://localhost:8007/mapper/resolve",
		httpClient:    httpClientMock,
	}, httpClientMock
}
