package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/support/log"

	"github.com/openg2p/g2p-bridge-backend/internal/data"
	"github.com/openg2p/g2p-bridge-backend/internal/monitor"
	"github.com/openg2p/g2p-bridge-backend/internal/serve/httpclient"
)

// ExampleBankCode is the sponsor bank code the Example Bank connector registers under.
const ExampleBankCode = "EXAMPLE_BANK"

const (
	checkFundsPath      = "/check_funds"
	blockFundsPath      = "/block_funds"
	initiatePaymentPath = "/initiate_payment"
)

// ExampleBankConnector talks to the Example Bank's REST API. Transport and
// decoding failures are folded into the stage-appropriate non-terminal status
// so the calling worker can retry on the next tick.
type ExampleBankConnector struct {
	BasePath string
	// MonitorService is optional. When set, every bank API request is recorded
	// as a duration histogram and a request counter.
	MonitorService monitor.MonitorServiceInterface
	httpClient     httpclient.HTTPClientInterface
}

func NewExampleBankConnector(basePath string, requestTimeout time.Duration) *ExampleBankConnector {
	return &ExampleBankConnector{
		BasePath:   basePath,
		httpClient: httpclient.ClientWithTimeout(requestTimeout),
	}
}

func (c *ExampleBankConnector) CheckFunds(ctx context.Context, accountNumber, currency string, amount decimal.Decimal) CheckFundsResponse {
	reqBody := struct {
		AccountNumber    string      `json:"account_number"`
		AccountCurrency  string      `json:"account_currency"`
		TotalFundsNeeded json.Number `json:"total_funds_needed"`
	}{
		AccountNumber:    accountNumber,
		AccountCurrency:  currency,
		TotalFundsNeeded: NewWireAmount(amount),
	}

	var respBody struct {
		Status string `json:"status"`
	}
	if err := c.post(ctx, checkFundsPath, reqBody, &respBody); err != nil {
		log.Ctx(ctx).Errorf("checking funds with example bank: %v", err)
		return CheckFundsResponse{Status: data.PendingCheckFundsAvailableStatus, ErrorCode: err.Error()}
	}

	if respBody.Status == "success" {
		return CheckFundsResponse{Status: data.FundsAvailableFundsAvailableStatus}
	}
	return CheckFundsResponse{Status: data.FundsNotAvailableFundsAvailableStatus}
}

func (c *ExampleBankConnector) BlockFunds(ctx context.Context, accountNumber, currency string, amount decimal.Decimal) BlockFundsResponse {
	reqBody := struct {
		AccountNumber string      `json:"account_number"`
		Currency      string      `json:"currency"`
		Amount        json.Number `json:"amount"`
	}{
		AccountNumber: accountNumber,
		Currency:      currency,
		Amount:        NewWireAmount(amount),
	}

	var respBody struct {
		Status           string `json:"status"`
		BlockReferenceNo string `json:"block_reference_no"`
		ErrorCode        string `json:"error_code"`
	}
	if err := c.post(ctx, blockFundsPath, reqBody, &respBody); err != nil {
		log.Ctx(ctx).Errorf("blocking funds with example bank: %v", err)
		return BlockFundsResponse{Status: data.FailureFundsBlockedStatus, ErrorCode: err.Error()}
	}

	if respBody.Status == "success" {
		return BlockFundsResponse{Status: data.SuccessFundsBlockedStatus, BlockReferenceNo: respBody.BlockReferenceNo}
	}
	return BlockFundsResponse{Status: data.FailureFundsBlockedStatus, ErrorCode: respBody.ErrorCode}
}

func (c *ExampleBankConnector) InitiatePayment(ctx context.Context, payloads []PaymentPayload) PaymentResponse {
	reqBody := struct {
		InitiatePaymentPayloads []PaymentPayload `json:"initiate_payment_payloads"`
	}{
		InitiatePaymentPayloads: payloads,
	}

	var respBody struct {
		Status         string `json:"status"`
		ErrorMessage   string `json:"error_message"`
		AckReferenceNo string `json:"ack_reference_no"`
	}
	if err := c.post(ctx, initiatePaymentPath, reqBody, &respBody); err != nil {
		log.Ctx(ctx).Errorf("initiating payment with example bank: %v", err)
		return PaymentResponse{Status: ErrorPaymentStatus, ErrorCode: err.Error()}
	}

	if respBody.Status == "success" {
		return PaymentResponse{Status: SuccessPaymentStatus, AckReferenceNo: respBody.AckReferenceNo}
	}
	return PaymentResponse{Status: ErrorPaymentStatus, ErrorCode: respBody.ErrorMessage}
}

// DisbursementID recovers the bridge disbursement id from an MT940 entry. The
// Example Bank echoes it back as the :61: customer reference; older statement
// exports left the reference as NONREF and carried the id on the first
// narrative line instead.
func (c *ExampleBankConnector) DisbursementID(bankReference, customerReference string, narratives []string) string {
	customerReference = strings.TrimSpace(customerReference)
	if customerReference != "" && !strings.EqualFold(customerReference, "NONREF") {
		return customerReference
	}
	if len(narratives) > 0 {
		return strings.TrimSpace(narratives[0])
	}
	return ""
}

// BeneficiaryName reads the beneficiary name from the second narrative line.
func (c *ExampleBankConnector) BeneficiaryName(narratives []string) string {
	if len(narratives) > 1 {
		return strings.TrimSpace(narratives[1])
	}
	return ""
}

// ReversalReason reads the reversal reason from the third narrative line.
func (c *ExampleBankConnector) ReversalReason(narratives []string) string {
	if len(narratives) > 2 {
		return strings.TrimSpace(narratives[2])
	}
	return ""
}

// post sends a JSON request to the Example Bank and decodes the JSON response.
func (c *ExampleBankConnector) post(ctx context.Context, path string, reqBody, respBody any) error {
	u, err := url.JoinPath(c.BasePath, path)
	if err != nil {
		return fmt.Errorf("building path: %w", err)
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshalling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startedAt := time.Now()
	resp, err := c.httpClient.Do(req)
	c.recordRequestMetrics(ctx, path, time.Since(startedAt), resp, err)
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

	if err = json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}

	return nil
}

func (c *ExampleBankConnector) recordRequestMetrics(ctx context.Context, path string, duration time.Duration, resp *http.Response, reqErr error) {
	if c.MonitorService == nil {
		return
	}

	status, statusCode := monitor.ParseHTTPResponseStatus(resp, reqErr)
	labels := monitor.BankAPILabels{
		Method:     http.MethodPost,
		Endpoint:   path,
		Status:     status,
		StatusCode: statusCode,
	}.ToMap()

	if err := c.MonitorService.MonitorHistogram(duration.Seconds(), monitor.BankAPIRequestDurationTag, labels); err != nil {
		log.Ctx(ctx).Debugf("error monitoring bank API request duration: %v", err)
	}
	if err := c.MonitorService.MonitorCounters(monitor.BankAPIRequestsTotalTag, labels); err != nil {
		log.Ctx(ctx).Debugf("error monitoring bank API request counter: %v", err)
	}
}

var _ ConnectorInterface = (*ExampleBankConnector)(nil)
