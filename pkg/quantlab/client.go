// Package quantlab is a Go client for the quantlab server API.
package quantlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client provides a Go SDK for interacting with the quantlab-server API.
type Client struct {
	http   *resty.Client
	upload *resty.Client
}

// NewClient creates a new quantlab API client. Requests that fail at the
// network level are retried twice; HTTP error responses are not. Uploads
// are never retried since their body is a one-shot reader.
func NewClient(baseURL string) *Client {
	return &Client{
		http: newRestyClient(baseURL).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(5 * time.Second),
		upload: newRestyClient(baseURL),
	}
}

func newRestyClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(60*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "quantlab-go")
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) *Client {
	c.http.SetTimeout(d)
	c.upload.SetTimeout(d)
	return c
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quantlab: HTTP %d: %s", e.StatusCode, e.Message)
}

// BacktestResult holds the metrics of one backtest.
type BacktestResult struct {
	PnL         float64 `json:"pnl"`
	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// CointResult holds the outcome of a cointegration test. Score is nil when
// the series are collinear.
type CointResult struct {
	Score      *float64 `json:"score"`
	PValue     float64  `json:"pvalue"`
	Lags       int      `json:"lags"`
	NObs       int      `json:"nobs"`
	HedgeRatio float64  `json:"hedge_ratio"`
	Collinear  bool     `json:"collinear"`
}

// Bar is an OHLCV bar as returned by the bars endpoint.
type Bar struct {
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     int64     `json:"volume"`
	TradeCount int64     `json:"trade_count"`
	VWAP       float64   `json:"vwap"`
}

// BarsRequest selects bars from the Alpaca proxy. Start and End are
// YYYY-MM-DD and optional.
type BarsRequest struct {
	Symbol    string
	Timeframe string
	Start     string
	End       string
}

type strategySpec struct {
	Name   string         `json:"name"`
	Params map[string]int `json:"params,omitempty"`
}

type backtestBody struct {
	Prices   []float64     `json:"prices"`
	Signals  []int         `json:"signals,omitempty"`
	Strategy *strategySpec `json:"strategy,omitempty"`
}

// Backtest scores explicit signals against prices.
func (c *Client) Backtest(ctx context.Context, prices []float64, signals []int) (*BacktestResult, error) {
	if signals == nil {
		signals = []int{}
	}
	var out BacktestResult
	if err := c.post(ctx, "/backtest", backtestBody{Prices: prices, Signals: signals}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BacktestStrategy runs a registered strategy on prices.
func (c *Client) BacktestStrategy(ctx context.Context, prices []float64, name string, params map[string]int) (*BacktestResult, error) {
	body := backtestBody{Prices: prices, Strategy: &strategySpec{Name: name, Params: params}}
	var out BacktestResult
	if err := c.post(ctx, "/backtest", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cointegration tests x against y.
func (c *Client) Cointegration(ctx context.Context, x, y []float64) (*CointResult, error) {
	body := map[string][]float64{"series_x": x, "series_y": y}
	var out CointResult
	if err := c.post(ctx, "/cointegration", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// YahooPrices returns the raw Yahoo chart document for symbol. Empty rng
// and interval use the server defaults.
func (c *Client) YahooPrices(ctx context.Context, symbol, rng, interval string) (json.RawMessage, error) {
	params := map[string]string{"symbol": symbol}
	if rng != "" {
		params["range"] = rng
	}
	if interval != "" {
		params["interval"] = interval
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/api/yahoo-prices")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body()), nil
}

// AlpacaBars fetches bars through the server's Alpaca proxy.
func (c *Client) AlpacaBars(ctx context.Context, req BarsRequest) ([]Bar, error) {
	params := map[string]string{"symbol": req.Symbol}
	for k, v := range map[string]string{"timeframe": req.Timeframe, "start": req.Start, "end": req.End} {
		if v != "" {
			params[k] = v
		}
	}

	var out struct {
		Bars []Bar `json:"bars"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get("/api/alpaca-bars")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return out.Bars, nil
}

// Strategies lists the strategy names the server can run.
func (c *Client) Strategies(ctx context.Context) ([]string, error) {
	var out struct {
		Strategies []string `json:"strategies"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get("/api/strategies")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return out.Strategies, nil
}

// TrainModel uploads training data and returns the server's status string.
func (c *Client) TrainModel(ctx context.Context, filename string, data io.Reader) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	resp, err := c.upload.R().
		SetContext(ctx).
		SetFileReader("file", filename, data).
		SetResult(&out).
		Post("/ml/train")
	if err := checkResponse(resp, err); err != nil {
		return "", err
	}
	return out.Status, nil
}

// Health returns nil when the server reports ok.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/healthz")
	return checkResponse(resp, err)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(out).
		Post(path)
	return checkResponse(resp, err)
}

// checkResponse turns transport failures and non-2xx responses into errors.
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("quantlab: %w", err)
	}
	if resp.IsSuccess() {
		return nil
	}

	msg := strings.TrimSpace(string(resp.Body()))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(resp.Body(), &e) == nil && e.Error != "" {
		msg = e.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}
