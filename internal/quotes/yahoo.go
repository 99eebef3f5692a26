// Package quotes fetches market data from upstream providers.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"quantlab/internal/config"
	"quantlab/internal/util"
)

var (
	// ErrUpstreamNotJSON is returned when the provider answers with a body
	// that is not valid JSON.
	ErrUpstreamNotJSON = errors.New("upstream response is not JSON")

	// ErrNotConfigured is returned by clients that lack credentials.
	ErrNotConfigured = errors.New("provider not configured")
)

const chartPath = "/v8/finance/chart/{symbol}"

// YahooClient proxies the Yahoo Finance v8 chart endpoint.
type YahooClient struct {
	http    *resty.Client
	limiter *util.RateLimiter
}

// NewYahooClient builds a client from the upstream configuration. Requests
// are not retried.
func NewYahooClient(cfg config.Upstream) *YahooClient {
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.YahooBaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)
	if cfg.UserAgent != "" {
		c.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &YahooClient{
		http:    c,
		limiter: util.NewRateLimiter(cfg.RateLimitPerMin, 1),
	}
}

// Chart fetches the chart document for symbol and returns the raw body with
// the upstream status code. The body is returned for non-2xx statuses too,
// as long as it is JSON.
func (c *YahooClient) Chart(ctx context.Context, symbol, rng, interval string) (json.RawMessage, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("waiting for rate limit: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"range":    rng,
			"interval": interval,
		}).
		SetHeader("Accept", "application/json").
		Get(chartPath)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching chart for %s: %w", symbol, err)
	}

	body := resp.Body()
	if !json.Valid(body) {
		return nil, resp.StatusCode(), fmt.Errorf("chart for %s (status %d): %w", symbol, resp.StatusCode(), ErrUpstreamNotJSON)
	}
	return json.RawMessage(body), resp.StatusCode(), nil
}

type chartDoc struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// ChartPoint is one non-null close from a chart document.
type ChartPoint struct {
	Time  time.Time
	Close float64
}

// ParseChart extracts the closes of a chart document together with their
// timestamps, skipping null entries. Time is zero when the document carries
// no timestamp for a close.
func ParseChart(raw []byte) ([]ChartPoint, error) {
	var doc chartDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding chart: %w", err)
	}
	if e := doc.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart error %s: %s", e.Code, e.Description)
	}
	if len(doc.Chart.Result) == 0 || len(doc.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, errors.New("chart has no quote data")
	}

	res := doc.Chart.Result[0]
	closes := res.Indicators.Quote[0].Close
	points := make([]ChartPoint, 0, len(closes))
	for i, v := range closes {
		if v == nil {
			continue
		}
		p := ChartPoint{Close: *v}
		if i < len(res.Timestamp) {
			p.Time = time.Unix(res.Timestamp[i], 0).UTC()
		}
		points = append(points, p)
	}
	return points, nil
}

// ParseChartCloses returns just the close prices of a chart document.
func ParseChartCloses(raw []byte) ([]float64, error) {
	points, err := ParseChart(raw)
	if err != nil {
		return nil, err
	}
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	return closes, nil
}
