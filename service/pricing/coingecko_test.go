package pricing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPriceAt(t *testing.T) {
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path+"?"+r.URL.RawQuery)
		fmt.Fprint(w, `{"market_data":{"current_price":{"usd":1.2345,"eur":1.1}}}`)
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, "popcat", testLogger())

	// 2024-06-01T12:00:00Z
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	price, err := client.PriceAt(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, 1.2345, price)

	require.Len(t, requests, 1)
	assert.Equal(t, "/api/v3/coins/popcat/history?date=01-06-2024", requests[0])
}

func TestPriceAt_CachesPerDay(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"market_data":{"current_price":{"usd":0.5}}}`)
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, "popcat", testLogger())

	morning := time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC).UnixMilli()
	evening := time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC).UnixMilli()
	nextDay := time.Date(2024, 6, 2, 0, 1, 0, 0, time.UTC).UnixMilli()

	for _, ts := range []int64{morning, evening} {
		price, err := client.PriceAt(context.Background(), ts)
		require.NoError(t, err)
		assert.Equal(t, 0.5, price)
	}
	assert.Equal(t, 1, calls, "same-day lookups must hit the upstream once")

	_, err := client.PriceAt(context.Background(), nextDay)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPriceAt_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"status":{"error_code":429}}`},
		{"not found", http.StatusNotFound, `{}`},
		{"no market data", http.StatusOK, `{}`},
		{"no usd price", http.StatusOK, `{"market_data":{"current_price":{"eur":1.0}}}`},
		{"malformed body", http.StatusOK, `{"market_data":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := NewCoinGeckoClient(server.URL, "popcat", testLogger())
			_, err := client.PriceAt(context.Background(), time.Now().UnixMilli())
			assert.Error(t, err)
		})
	}
}

func TestPriceAt_DoesNotCacheFailures(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"market_data":{"current_price":{"usd":2.0}}}`)
	}))
	defer server.Close()

	client := NewCoinGeckoClient(server.URL, "popcat", testLogger())
	ts := time.Now().UnixMilli()

	_, err := client.PriceAt(context.Background(), ts)
	require.Error(t, err)

	price, err := client.PriceAt(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, 2.0, price)
	assert.Equal(t, 2, calls)
}
