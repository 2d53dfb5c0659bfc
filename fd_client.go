package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Upstream paths on financialdata.net.
const (
	pathStockPrices  = "/api/v1/stock-prices"
	pathETFPrices    = "/api/v1/etf-prices"
	pathStockSymbols = "/api/v1/stock-symbols"
	pathETFSymbols   = "/api/v1/etf-symbols"
	pathDividends    = "/api/v1/dividends"
)

// Row is one loosely typed record from the data API. Field names differ
// between endpoints, so callers read them through the helpers in rows.go.
type Row map[string]any

// RowFetcher is the read side of the data API used by the resolvers.
type RowFetcher interface {
	GetRows(ctx context.Context, path string, params map[string]string) ([]Row, error)
}

// RetryPolicy controls the backoff applied to rate-limited requests.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    3,
	InitialBackoff: 300 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
}

// backoff returns the wait before retry number attempt (1-based): the
// initial backoff doubled per attempt, capped at MaxBackoff.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < attempt && d < p.MaxBackoff; i++ {
		d *= 2
	}
	return min(d, p.MaxBackoff)
}

type FinancialDataClient struct {
	client    *resty.Client
	baseURL   string
	relayURL  string
	apiKey    string
	transport string
	retry     RetryPolicy
	onBackoff func(attempt int, wait time.Duration)
	logger    zerolog.Logger
}

type ClientOption func(*FinancialDataClient)

func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *FinancialDataClient) { c.retry = p }
}

func withBackoffHook(fn func(attempt int, wait time.Duration)) ClientOption {
	return func(c *FinancialDataClient) { c.onBackoff = fn }
}

func NewFinancialDataClient(cfg UpstreamConfig, opts ...ClientOption) *FinancialDataClient {
	client := resty.New()
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	c := &FinancialDataClient{
		client:    client,
		baseURL:   cfg.BaseURL,
		relayURL:  cfg.RelayURL,
		apiKey:    cfg.APIKey,
		transport: cfg.Transport,
		retry:     DefaultRetryPolicy,
		logger:    componentLogger("fd-client"),
	}
	for _, opt := range opts {
		opt(c)
	}

	// Only 429 is retried. The RetryAfter callback replaces resty's jittered
	// wait with the policy's fixed schedule.
	client.
		SetRetryCount(max(c.retry.MaxAttempts-1, 0)).
		SetRetryWaitTime(c.retry.InitialBackoff).
		SetRetryMaxWaitTime(c.retry.MaxBackoff).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err == nil && resp != nil && resp.StatusCode() == http.StatusTooManyRequests
		}).
		SetRetryAfter(c.retryAfter)

	return c
}

func (c *FinancialDataClient) retryAfter(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
	attempt := 1
	if resp != nil && resp.Request != nil && resp.Request.Attempt > 0 {
		attempt = resp.Request.Attempt
	}
	wait := c.retry.backoff(attempt)

	c.logger.Debug().Int("attempt", attempt).Dur("backoff", wait).Msg("Rate limited, backing off")

	if c.onBackoff != nil {
		c.onBackoff(attempt, wait)
	}
	return wait, nil
}

// GetRows fetches path and decodes the JSON array body. A 429 is retried with
// exponential backoff up to retry.MaxAttempts; every other failure is
// returned as is.
func (c *FinancialDataClient) GetRows(ctx context.Context, path string, params map[string]string) ([]Row, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}

	req := c.client.R().SetContext(ctx)
	target := c.baseURL + path
	if c.transport == TransportRelay {
		req.SetQueryParam("url", target+"?"+query.Encode())
		target = c.relayURL
	} else {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Get(target)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}

	if !resp.IsSuccess() {
		return nil, &StatusError{
			Path:       path,
			StatusCode: resp.StatusCode(),
			Body:       truncate(resp.String(), 200),
		}
	}

	var rows []Row
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return rows, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
