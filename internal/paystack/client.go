package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/pkg/errors"

	"paystack-service/internal/config"
)

const (
	opInitialize = "initialize"
	opVerify     = "verify"

	maxErrorBody = 512
)

// ErrGateway marks every failed round-trip to the Paystack API: transport
// errors, non-2xx statuses, undecodable bodies and status:false envelopes.
var ErrGateway = errors.New("paystack: gateway error")

type Client struct {
	client    *http.Client
	baseURL   string
	secretKey string
	logger    *slog.Logger
}

func NewClient(cfg config.Paystack, logger *slog.Logger) *Client {
	return &Client{
		client:    &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		logger:    logger,
	}
}

// Initialize creates a checkout transaction. Amount is in minor units.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*Transaction, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal initialize request")
	}

	data, err := c.do(ctx, opInitialize, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}

	var trx Transaction
	if err := json.Unmarshal(data, &trx); err != nil {
		return nil, errors.Wrapf(ErrGateway, "decode initialize data: %v", err)
	}
	if trx.Reference == "" || trx.AuthorizationURL == "" {
		return nil, errors.Wrap(ErrGateway, "initialize response without reference or authorization url")
	}
	return &trx, nil
}

// Verify fetches the final state of a transaction by reference.
func (c *Client) Verify(ctx context.Context, reference string) (*Verification, error) {
	data, err := c.do(ctx, opVerify, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var charge Charge
	if err := json.Unmarshal(data, &charge); err != nil {
		return nil, errors.Wrapf(ErrGateway, "decode verify data: %v", err)
	}
	return &Verification{Charge: charge, Raw: data}, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte) (json.RawMessage, error) {
	startTime := time.Now()
	defer func() {
		metrics.GetOrCreateHistogram(fmt.Sprintf(`paystack_gateway_duration_milliseconds{op=%q}`, op)).
			Update(float64(time.Since(startTime).Milliseconds()))
	}()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		c.count(op, "request_error")
		return nil, errors.Wrap(err, "create paystack request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.DebugContext(ctx, "Sending paystack request", "op", op, "method", method, "path", path)

	resp, err := c.client.Do(req)
	if err != nil {
		c.count(op, "transport_error")
		return nil, errors.Wrapf(ErrGateway, "%s request failed: %v", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.count(op, "transport_error")
		return nil, errors.Wrapf(ErrGateway, "read %s response: %v", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.count(op, "http_error")
		c.logger.WarnContext(ctx, "Paystack returned an error status", "op", op, "status", resp.StatusCode, "body", truncate(respBody))
		return nil, errors.Wrapf(ErrGateway, "%s returned %s: %s", op, resp.Status, truncate(respBody))
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		c.count(op, "malformed")
		return nil, errors.Wrapf(ErrGateway, "decode %s response: %v", op, err)
	}
	if !env.Status || len(env.Data) == 0 {
		c.count(op, "rejected")
		return nil, errors.Wrapf(ErrGateway, "%s rejected: %s", op, env.Message)
	}

	c.count(op, "success")
	return env.Data, nil
}

func (c *Client) count(op, result string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`paystack_gateway_requests_total{op=%q,result=%q}`, op, result)).Inc()
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}
