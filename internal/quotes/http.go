package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dividend_tracker/internal/models"

	"github.com/gregjones/httpcache"
)

// HTTPFetcher calls a dividend service exposing GET /dividend?symbol=SYM.
// Responses go through an in-memory HTTP cache so repeated lookups honour
// the service's cache headers.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

var _ Fetcher = (*HTTPFetcher)(nil)

func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	client := httpcache.NewMemoryCacheTransport().Client()
	client.Timeout = 10 * time.Second
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// WithClient replaces the HTTP client (timeouts, transports, tests).
func (h *HTTPFetcher) WithClient(c *http.Client) *HTTPFetcher {
	h.client = c
	return h
}

func (h *HTTPFetcher) FetchDividendInfo(ctx context.Context, symbol string) (*models.DividendInfo, error) {
	u := fmt.Sprintf("%s/dividend?symbol=%s", h.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dividend service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("dividend service: read body: %w", err)
	}

	// Fields are decoded one by one: the service answers "N/A" for missing numbers
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("dividend service: status %d: invalid body: %w", resp.StatusCode, err)
	}

	if raw, ok := fields["error"]; ok {
		var msg string
		_ = json.Unmarshal(raw, &msg)
		return nil, fmt.Errorf("dividend service error %d: %s", resp.StatusCode, msg)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dividend service: unexpected status %d", resp.StatusCode)
	}

	info := &models.DividendInfo{
		DividendYield: models.ParseOptionalNumber(fields["dividendYield"]),
		DividendRate:  models.ParseOptionalNumber(fields["dividendRate"]),
		ForwardEps:    models.ParseOptionalNumber(fields["forwardEps"]),
	}
	if raw, ok := fields["symbol"]; ok {
		_ = json.Unmarshal(raw, &info.Symbol)
	}
	if info.Symbol == "" {
		return nil, fmt.Errorf("dividend service: %w", ErrNoData)
	}
	return info, nil
}
