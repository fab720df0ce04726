package ads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/searchwise/termlens/internal/model"
	"github.com/searchwise/termlens/internal/resilience"
)

const defaultBaseURL = "https://googleads.googleapis.com/v17"

// Client runs GAQL reports against the Google Ads REST surface.
type Client interface {
	// Search returns an iterator over report rows for the given GAQL query.
	// Pages are fetched lazily as the iterator advances.
	Search(ctx context.Context, query string) RowIterator
}

// RowIterator walks report rows across result pages.
type RowIterator interface {
	Next() bool
	Row() model.ReportRow
	Err() error
}

// Config holds credentials and addressing for the reporting API.
type Config struct {
	CustomerID      string
	DeveloperToken  string
	AccessToken     string
	LoginCustomerID string
	BaseURL         string
	HTTPClient      *http.Client

	// Retry overrides the page-fetch retry schedule. Nil uses the default
	// backoff with the transient-error predicate.
	Retry *resilience.RetryConfig
}

// APIError is a non-2xx response from the reporting API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ads: unexpected status %d: %s", e.StatusCode, e.Body)
}

// searchRequest is the body for POST customers/{id}/googleAds:search.
type searchRequest struct {
	Query     string `json:"query"`
	PageToken string `json:"pageToken,omitempty"`
}

// searchResponse is one page of results. The API encodes int64 metrics as
// JSON strings.
type searchResponse struct {
	Results       []searchResult `json:"results"`
	NextPageToken string         `json:"nextPageToken"`
}

type searchResult struct {
	Campaign struct {
		Name string `json:"name"`
	} `json:"campaign"`
	AdGroup struct {
		Name string `json:"name"`
	} `json:"adGroup"`
	SearchTermView struct {
		SearchTerm string `json:"searchTerm"`
	} `json:"searchTermView"`
	Metrics struct {
		Impressions      json.RawMessage `json:"impressions"`
		Clicks           json.RawMessage `json:"clicks"`
		CostMicros       json.RawMessage `json:"costMicros"`
		Conversions      json.RawMessage `json:"conversions"`
		ConversionsValue json.RawMessage `json:"conversionsValue"`
	} `json:"metrics"`
}

type httpClient struct {
	cfg   Config
	http  *http.Client
	retry resilience.RetryConfig
}

// NewClient creates a Google Ads reporting client. Page fetches retry on
// transient failures (429, 5xx, network timeouts); other errors surface
// immediately through the iterator.
func NewClient(cfg Config) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	retry := resilience.DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("ads", "search")
	}
	return &httpClient{cfg: cfg, http: hc, retry: retry}
}

// SearchTermQuery builds the default search-term report query: search
// channel only, trailing lookback window, ordered by cost descending. The
// sink preserves this report order.
func SearchTermQuery(lookbackDays int) string {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	return fmt.Sprintf(`SELECT
  campaign.name,
  ad_group.name,
  search_term_view.search_term,
  metrics.impressions,
  metrics.clicks,
  metrics.cost_micros,
  metrics.conversions,
  metrics.conversions_value
FROM search_term_view
WHERE segments.date DURING LAST_%d_DAYS
  AND campaign.advertising_channel_type = "SEARCH"
ORDER BY metrics.cost_micros DESC`, lookbackDays)
}

func (c *httpClient) Search(ctx context.Context, query string) RowIterator {
	return &rowIterator{ctx: ctx, client: c, query: query}
}

func (c *httpClient) fetchPage(ctx context.Context, query, pageToken string) (*searchResponse, error) {
	body, err := json.Marshal(searchRequest{Query: query, PageToken: pageToken})
	if err != nil {
		return nil, eris.Wrap(err, "ads: marshal request")
	}

	endpoint := fmt.Sprintf("%s/customers/%s/googleAds:search", c.cfg.BaseURL, c.cfg.CustomerID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "ads: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	httpReq.Header.Set("developer-token", c.cfg.DeveloperToken)
	if c.cfg.LoginCustomerID != "" {
		httpReq.Header.Set("login-customer-id", c.cfg.LoginCustomerID)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "ads: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "ads: read response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "ads: unmarshal response")
	}

	return &result, nil
}

// rowIterator implements RowIterator with lazy page fetches.
type rowIterator struct {
	ctx     context.Context
	client  *httpClient
	query   string
	page    []searchResult
	idx     int
	token   string
	started bool
	done    bool
	err     error
	row     model.ReportRow
}

func (it *rowIterator) Next() bool {
	if it.err != nil || it.done {
		return false
	}

	for it.idx >= len(it.page) {
		if it.started && it.token == "" {
			it.done = true
			return false
		}
		resp, err := resilience.DoVal(it.ctx, it.client.retry, func(ctx context.Context) (*searchResponse, error) {
			return it.client.fetchPage(ctx, it.query, it.token)
		})
		if err != nil {
			it.err = err
			return false
		}
		it.started = true
		it.page = resp.Results
		it.idx = 0
		it.token = resp.NextPageToken
		if len(it.page) == 0 && it.token == "" {
			it.done = true
			return false
		}
	}

	it.row = toReportRow(it.page[it.idx])
	it.idx++
	return true
}

func (it *rowIterator) Row() model.ReportRow {
	return it.row
}

func (it *rowIterator) Err() error {
	return it.err
}

// toReportRow maps an API result onto a ReportRow. Malformed numeric
// fields coerce to 0 rather than failing the report.
func toReportRow(r searchResult) model.ReportRow {
	return model.ReportRow{
		Campaign:        r.Campaign.Name,
		AdGroup:         r.AdGroup.Name,
		SearchTerm:      r.SearchTermView.SearchTerm,
		Impressions:     toInt64(r.Metrics.Impressions),
		Clicks:          toInt64(r.Metrics.Clicks),
		CostMicros:      toInt64(r.Metrics.CostMicros),
		Conversions:     toFloat(r.Metrics.Conversions),
		ConversionValue: toFloat(r.Metrics.ConversionsValue),
	}
}

// The API encodes int64 metrics as quoted strings and real metrics as
// plain numbers; both shapes, and anything malformed, funnel through here.
func rawNumber(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	return strings.Trim(s, `"`)
}

func toInt64(raw json.RawMessage) int64 {
	s := rawNumber(raw)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some accounts report integral metrics with a decimal point.
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int64(f)
		}
		return 0
	}
	return v
}

func toFloat(raw json.RawMessage) float64 {
	s := rawNumber(raw)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
