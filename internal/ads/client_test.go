package ads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchwise/termlens/internal/model"
	"github.com/searchwise/termlens/internal/resilience"
)

func testConfig(baseURL string) Config {
	return Config{
		CustomerID:      "1234567890",
		DeveloperToken:  "dev-token",
		AccessToken:     "access-token",
		LoginCustomerID: "0987654321",
		BaseURL:         baseURL,
	}
}

func TestSearch_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/customers/1234567890/googleAds:search", r.URL.Path)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		assert.Equal(t, "dev-token", r.Header.Get("developer-token"))
		assert.Equal(t, "0987654321", r.Header.Get("login-customer-id"))

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "search_term_view")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [
				{
					"campaign": {"name": "Brand"},
					"adGroup": {"name": "Shoes"},
					"searchTermView": {"searchTerm": "best running shoes"},
					"metrics": {
						"impressions": "1000",
						"clicks": "100",
						"costMicros": "2500000",
						"conversions": 10.5,
						"conversionsValue": 250.75
					}
				}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	it := client.Search(context.Background(), SearchTermQuery(30))

	require.True(t, it.Next())
	row := it.Row()
	assert.Equal(t, model.ReportRow{
		Campaign:        "Brand",
		AdGroup:         "Shoes",
		SearchTerm:      "best running shoes",
		Impressions:     1000,
		Clicks:          100,
		CostMicros:      2_500_000,
		Conversions:     10.5,
		ConversionValue: 250.75,
	}, row)

	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestSearch_Pagination(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		if req.PageToken == "" {
			_, _ = w.Write([]byte(`{
				"results": [{"searchTermView": {"searchTerm": "first"}, "metrics": {"clicks": "1"}}],
				"nextPageToken": "page2"
			}`))
			return
		}
		assert.Equal(t, "page2", req.PageToken)
		_, _ = w.Write([]byte(`{
			"results": [{"searchTermView": {"searchTerm": "second"}, "metrics": {"clicks": "2"}}]
		}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	it := client.Search(context.Background(), SearchTermQuery(7))

	var terms []string
	for it.Next() {
		terms = append(terms, it.Row().SearchTerm)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"first", "second"}, terms)
	assert.Equal(t, 2, calls)
}

func TestSearch_EmptyReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	it := client.Search(context.Background(), SearchTermQuery(30))

	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestSearch_RetriesTransientStatus(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": "backend overloaded"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [{"searchTermView": {"searchTerm": "recovered"}, "metrics": {"clicks": "3"}}]
		}`))
	}))
	defer srv.Close()

	var sleeps []time.Duration
	retry := resilience.DefaultRetryConfig()
	retry.Sleep = func(_ context.Context, d time.Duration) {
		sleeps = append(sleeps, d)
	}

	cfg := testConfig(srv.URL)
	cfg.Retry = &retry
	it := NewClient(cfg).Search(context.Background(), SearchTermQuery(30))

	require.True(t, it.Next())
	assert.Equal(t, "recovered", it.Row().SearchTerm)
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())

	assert.Equal(t, 2, calls, "a 503 page fetch is retried")
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeps)
}

func TestSearch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "developer token not approved"}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	it := client.Search(context.Background(), SearchTermQuery(30))

	assert.False(t, it.Next())

	var apiErr *APIError
	require.ErrorAs(t, it.Err(), &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "developer token")
}

func TestToReportRow_MalformedMetricsCoerceToZero(t *testing.T) {
	t.Parallel()

	var result searchResult
	require.NoError(t, json.Unmarshal([]byte(`{
		"searchTermView": {"searchTerm": "odd metrics"},
		"metrics": {
			"impressions": "not-a-number",
			"clicks": "12.0",
			"conversions": 1.5
		}
	}`), &result))

	row := toReportRow(result)
	assert.Equal(t, int64(0), row.Impressions, "malformed int64 coerces to 0")
	assert.Equal(t, int64(12), row.Clicks, "decimal-pointed integral metric truncates")
	assert.Equal(t, int64(0), row.CostMicros, "absent metric is 0")
	assert.Equal(t, 1.5, row.Conversions)
}

func TestSearchTermQuery(t *testing.T) {
	t.Parallel()

	q := SearchTermQuery(14)
	assert.Contains(t, q, "LAST_14_DAYS")
	assert.Contains(t, q, `advertising_channel_type = "SEARCH"`)
	assert.Contains(t, q, "ORDER BY metrics.cost_micros DESC")

	// Non-positive lookback falls back to the 30-day default.
	assert.Contains(t, SearchTermQuery(0), "LAST_30_DAYS")
}

func TestSearch_MalformedResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{invalid json`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	it := client.Search(context.Background(), SearchTermQuery(30))

	assert.False(t, it.Next())
	err := it.Err()
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "decode failure is not an APIError")
}
