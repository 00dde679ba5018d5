package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/you/storefront/domain"
	"github.com/you/storefront/internal/observability"
)

const (
	// maxResponseBodySize limits how much of a response body is read.
	maxResponseBodySize = 1 << 20

	statusSuccess = "success"

	// IdempotencyHeader carries the per-checkout key on order placement.
	IdempotencyHeader = "Idempotency-Key"
)

// envelope is the {status, message, data} wrapper every endpoint returns.
// DRF-style failures sometimes only carry "detail".
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

func (e *envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Detail != "" {
		return e.Detail
	}
	return domain.GenericErrorMessage
}

// Client talks to the storefront REST backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a client. timeout bounds every request that has no earlier context deadline.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger.Named("api"),
	}
}

// call describes one backend request. route is the templated path used as metric label.
type call struct {
	method  string
	path    string
	route   string
	token   string
	body    any
	headers map[string]string
}

// do performs the call, decodes envelope.data into out (when non-nil) and
// returns the envelope message. Every backend failure is a *domain.APIError.
func (c *Client) do(ctx context.Context, rc call, out any) (string, error) {
	var reader io.Reader
	if rc.body != nil {
		payload, err := json.Marshal(rc.body)
		if err != nil {
			return "", fmt.Errorf("encode %s body: %w", rc.route, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, rc.method, c.baseURL+rc.path, reader)
	if err != nil {
		return "", fmt.Errorf("build %s %s: %w", rc.method, rc.route, err)
	}
	req.Header.Set("Accept", "application/json")
	if rc.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rc.token != "" {
		req.Header.Set("Authorization", "Bearer "+rc.token)
	}
	for k, v := range rc.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.BackendRequest(rc.route, "error", time.Since(start))
		c.logger.Warn("backend request failed",
			zap.String("method", rc.method),
			zap.String("route", rc.route),
			zap.Error(err))
		return "", &domain.APIError{Message: domain.GenericErrorMessage, Err: err}
	}
	defer resp.Body.Close()
	c.metrics.BackendRequest(rc.route, strconv.Itoa(resp.StatusCode), time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return "", &domain.APIError{Status: resp.StatusCode, Message: domain.GenericErrorMessage, Err: err}
	}

	// 204 and other empty 2xx bodies carry nothing to decode
	if len(bytes.TrimSpace(raw)) == 0 && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return "", nil
	}

	var env envelope
	parseErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := domain.GenericErrorMessage
		if parseErr == nil {
			msg = env.message()
		}
		return "", &domain.APIError{Status: resp.StatusCode, Message: msg}
	}
	if parseErr != nil {
		return "", &domain.APIError{Status: resp.StatusCode, Message: domain.GenericErrorMessage, Err: parseErr}
	}
	if env.Status != statusSuccess {
		return "", &domain.APIError{Status: resp.StatusCode, Message: env.message()}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return env.Message, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return "", &domain.APIError{Status: resp.StatusCode, Message: domain.GenericErrorMessage, Err: err}
	}
	return env.Message, nil
}

// IsTimeout reports whether err is a request that ran out of time
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

var (
	_ domain.IdentityAPI = (*Client)(nil)
	_ domain.CartAPI     = (*Client)(nil)
	_ domain.AddressAPI  = (*Client)(nil)
	_ domain.OrderAPI    = (*Client)(nil)
)
