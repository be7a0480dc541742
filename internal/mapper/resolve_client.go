package mapper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/openg2p/g2p-bridge-backend/internal/serve/httpclient"
)

// G2P Connect resolve constants.
const (
	resolveAction = "resolve"
	resolveScope  = "details"
)

const resolveRequestAttempts = 3

// SingleResolveRequest asks the ID mapper for the financial address of one beneficiary.
type SingleResolveRequest struct {
	ReferenceID string `json:"reference_id"`
	Timestamp   string `json:"timestamp"`
	ID          string `json:"id"`
	Scope       string `json:"scope"`
}

// RequestHeader is the G2P Connect message header.
type RequestHeader struct {
	MessageID  string `json:"message_id"`
	MessageTS  string `json:"message_ts"`
	Action     string `json:"action"`
	SenderID   string `json:"sender_id"`
	SenderURI  string `json:"sender_uri"`
	TotalCount int    `json:"total_count"`
}

type ResolveRequestMessage struct {
	TransactionID  string                 `json:"transaction_id"`
	ResolveRequest []SingleResolveRequest `json:"resolve_request"`
}

type ResolveRequest struct {
	Signature string                `json:"signature"`
	Header    RequestHeader         `json:"header"`
	Message   ResolveRequestMessage `json:"message"`
}

// AccountProviderInfo describes the institution holding the resolved financial address.
type AccountProviderInfo struct {
	Name string `json:"name"`
}

// SingleResolveResponse is the mapper's answer for one beneficiary. FA is empty
// when the mapper knows the ID but holds no financial address for it.
type SingleResolveResponse struct {
	ReferenceID         string               `json:"reference_id"`
	ID                  string               `json:"id"`
	FA                  string               `json:"fa"`
	AccountProviderInfo *AccountProviderInfo `json:"account_provider_info,omitempty"`
	Status              string               `json:"status,omitempty"`
	StatusReasonMessage string               `json:"status_reason_message,omitempty"`
}

type ResolveResponseMessage struct {
	TransactionID   string                  `json:"transaction_id"`
	CorrelationID   string                  `json:"correlation_id,omitempty"`
	ResolveResponse []SingleResolveResponse `json:"resolve_response"`
}

type ResolveResponse struct {
	Message ResolveResponseMessage `json:"message"`
}

// ResolveClientInterface resolves beneficiary IDs to financial addresses.
type ResolveClientInterface interface {
	Resolve(ctx context.Context, beneficiaryIDs []string) (*ResolveResponse, error)
}

// ResolveClient talks to a G2P Connect ID mapper over HTTP. Transient transport
// failures are retried with backoff before the batch is given up for this tick.
type ResolveClient struct {
	ResolveAPIURL string
	httpClient    httpclient.HTTPClientInterface
}

func NewResolveClient(resolveAPIURL string, requestTimeout time.Duration) *ResolveClient {
	return &ResolveClient{
		ResolveAPIURL: resolveAPIURL,
		httpClient:    httpclient.ClientWithTimeout(requestTimeout),
	}
}

// Resolve sends one resolve request covering all beneficiary IDs of a batch.
func (c *ResolveClient) Resolve(ctx context.Context, beneficiaryIDs []string) (*ResolveResponse, error) {
	if len(beneficiaryIDs) == 0 {
		return nil, fmt.Errorf("no beneficiary IDs to resolve")
	}

	reqBody, err := json.Marshal(newResolveRequest(beneficiaryIDs))
	if err != nil {
		return nil, fmt.Errorf("marshalling resolve request: %w", err)
	}

	var resolveResponse ResolveResponse
	err = retry.Do(
		func() error {
			return c.postResolveRequest(ctx, reqBody, &resolveResponse)
		},
		retry.Attempts(resolveRequestAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("making resolve request: %w", err)
	}

	return &resolveResponse, nil
}

func (c *ResolveClient) postResolveRequest(ctx context.Context, reqBody []byte, resolveResponse *ResolveResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ResolveAPIURL, bytes.NewReader(reqBody))
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("unexpected status code %d", resp.StatusCode)
		}
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(respBytes)))
	}

	if err = json.NewDecoder(resp.Body).Decode(resolveResponse); err != nil {
		return fmt.Errorf("decoding resolve response: %w", err)
	}

	return nil
}

func newResolveRequest(beneficiaryIDs []string) ResolveRequest {
	now := time.Now().UTC().Format(time.RFC3339)

	singleRequests := make([]SingleResolveRequest, 0, len(beneficiaryIDs))
	for _, beneficiaryID := range beneficiaryIDs {
		singleRequests = append(singleRequests, SingleResolveRequest{
			ReferenceID: uuid.NewString(),
			Timestamp:   now,
			ID:          beneficiaryID,
			Scope:       resolveScope,
		})
	}

	return ResolveRequest{
		Signature: "",
		Header: RequestHeader{
			MessageID:  uuid.NewString(),
			MessageTS:  now,
			Action:     resolveAction,
			TotalCount: len(singleRequests),
		},
		Message: ResolveRequestMessage{
			TransactionID:  uuid.NewString(),
			ResolveRequest: singleRequests,
		},
	}
}

var _ ResolveClientInterface = (*ResolveClient)(nil)
