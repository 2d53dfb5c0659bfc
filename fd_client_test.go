package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backoffRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *backoffRecorder) record(attempt int, d time.Duration) {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
}

func newTestClient(t *testing.T, baseURL string, opts ...ClientOption) *FinancialDataClient {
	t.Helper()
	return NewFinancialDataClient(UpstreamConfig{
		APIKey:    "test-key",
		BaseURL:   baseURL,
		Transport: TransportDirect,
		Timeout:   5 * time.Second,
	}, opts...)
}

func TestGetRows_RetriesRateLimitWithBackoff(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"trading_symbol":"AAPL","close":101}]`))
	}))
	defer srv.Close()

	backoffs := &backoffRecorder{}
	client := newTestClient(t, srv.URL, withBackoffHook(backoffs.record))

	rows, err := client.GetRows(context.Background(), pathStockPrices, map[string]string{"identifier": "AAPL"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "AAPL", rows[0]["trading_symbol"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, []time.Duration{300 * time.Millisecond, 600 * time.Millisecond}, backoffs.waits)
}

func TestGetRows_GivesUpAfterMaxAttempts(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	backoffs := &backoffRecorder{}
	client := newTestClient(t, srv.URL, withBackoffHook(backoffs.record))

	_, err := client.GetRows(context.Background(), pathStockPrices, nil)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Len(t, backoffs.waits, 2)
}

func TestGetRows_BackoffIsCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	backoffs := &backoffRecorder{}
	client := newTestClient(t, srv.URL,
		withBackoffHook(backoffs.record),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 6, InitialBackoff: 10 * time.Millisecond, MaxBackoff: 40 * time.Millisecond}),
	)

	_, err := client.GetRows(context.Background(), pathStockPrices, nil)
	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		40 * time.Millisecond,
		40 * time.Millisecond,
	}, backoffs.waits)
}

func TestRetryPolicyBackoff(t *testing.T) {
	assert.Equal(t, 300*time.Millisecond, DefaultRetryPolicy.backoff(1))
	assert.Equal(t, 600*time.Millisecond, DefaultRetryPolicy.backoff(2))
	assert.Equal(t, 1200*time.Millisecond, DefaultRetryPolicy.backoff(3))
	assert.Equal(t, 2*time.Second, DefaultRetryPolicy.backoff(4))
	assert.Equal(t, 2*time.Second, DefaultRetryPolicy.backoff(60))
}

func TestGetRows_OtherErrorsAreNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "bad parameter", http.StatusBadRequest)
	}))
	defer srv.Close()

	backoffs := &backoffRecorder{}
	client := newTestClient(t, srv.URL, withBackoffHook(backoffs.record))

	_, err := client.GetRows(context.Background(), pathStockPrices, nil)
	require.Error(t, err)
	assert.False(t, IsRateLimited(err))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Empty(t, backoffs.waits)
}

func TestGetRows_RejectsNonArrayBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"unknown parameter"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.GetRows(context.Background(), pathStockPrices, nil)
	assert.Error(t, err)
}

func TestGetRows_DirectTransportSendsKey(t *testing.T) {
	var gotPath, gotKey, gotSymbol string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotSymbol = r.URL.Query().Get("identifier")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	rows, err := client.GetRows(context.Background(), pathDividends, map[string]string{"identifier": "MSFT"})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, pathDividends, gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "MSFT", gotSymbol)
}

func TestGetRows_RelayTransportWrapsURL(t *testing.T) {
	var relayed string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relayed = r.URL.Query().Get("url")
		w.Write([]byte(`[{"trading_symbol":"SPY"}]`))
	}))
	defer srv.Close()

	client := NewFinancialDataClient(UpstreamConfig{
		APIKey:    "k",
		BaseURL:   "https://financialdata.net",
		RelayURL:  srv.URL + "/raw",
		Transport: TransportRelay,
	})

	rows, err := client.GetRows(context.Background(), pathETFPrices, map[string]string{"identifier": "SPY", "limit": "2"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://financialdata.net/api/v1/etf-prices?identifier=SPY&key=k&limit=2", relayed)
}

func TestGetRows_StopsBackoffOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(t, srv.URL, withBackoffHook(func(attempt int, d time.Duration) {
		cancel()
	}))

	_, err := client.GetRows(ctx, pathStockPrices, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
