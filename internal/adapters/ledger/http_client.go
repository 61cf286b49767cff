package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/yapmint/yapmint/internal/domain/model"
	"github.com/yapmint/yapmint/pkg/metrics"
)

// DefaultTimeout bounds each ledger RPC.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes bounds how much of a ledger response is read.
const maxResponseBytes = 1 << 20

// HTTPClient implements Client over HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		if client != nil {
			c.client = client
		}
	}
}

// NewHTTPClient creates a ledger JSON-RPC client for endpoint.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call performs one JSON-RPC round trip. There is deliberately no retry
// loop: the orchestrator surfaces failures verbatim and the operator decides
// whether to resubmit.
func (c *HTTPClient) call(ctx context.Context, method string, params, result any) error {
	start := time.Now()
	defer func() {
		metrics.RecordLedgerRPCDuration(method, float64(time.Since(start).Milliseconds()))
	}()

	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	body, err := json.Marshal(Request{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  rawParams,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordLedgerRPCError(method)
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.RecordLedgerRPCError(method)
		return fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.RecordLedgerRPCError(method)
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		metrics.RecordLedgerRPCError(method)
		return fmt.Errorf("%w: unmarshal response: %w", ErrUnavailable, err)
	}
	if rpcResp.Error != nil {
		metrics.RecordLedgerRPCError(method)
		// An internal server failure is unavailability, not a refusal.
		if rpcResp.Error.Code == CodeInternal {
			return fmt.Errorf("%w: %w", ErrUnavailable, rpcResp.Error)
		}
		return fmt.Errorf("%w: %w", ErrRejected, rpcResp.Error)
	}
	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			metrics.RecordLedgerRPCError(method)
			return fmt.Errorf("%w: unmarshal result: %w", ErrUnavailable, err)
		}
	}
	return nil
}

// Balance implements Client.
func (c *HTTPClient) Balance(ctx context.Context, accountID string) (string, error) {
	var res BalanceResult
	if err := c.call(ctx, MethodBalance, BalanceParams{Account: accountID}, &res); err != nil {
		return "", err
	}
	if res.Balance == "" {
		res.Balance = "0"
	}
	return res.Balance, nil
}

// LastIssuanceTime implements Client.
func (c *HTTPClient) LastIssuanceTime(ctx context.Context, accountID string) (int64, error) {
	var res LastIssuanceResult
	if err := c.call(ctx, MethodLastIssuance, LastIssuanceParams{Account: accountID}, &res); err != nil {
		return 0, err
	}
	return res.Timestamp, nil
}

// Submit implements Client.
func (c *HTTPClient) Submit(ctx context.Context, req model.IssuanceRequest, accountID string) (model.Receipt, error) {
	var res SubmitResult
	params := SubmitParams{
		Account:  accountID,
		Handle:   req.Handle,
		RawScore: req.RawScore,
	}
	if err := c.call(ctx, MethodSubmit, params, &res); err != nil {
		return model.Receipt{}, err
	}
	return model.Receipt{SettlementRef: res.SettlementRef}, nil
}
