package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"quantlab/internal/config"
	"quantlab/internal/domain"
)

// barsAPI is the subset of the Alpaca market-data client used here.
type barsAPI interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaClient fetches historical bars from the Alpaca market-data API.
type AlpacaClient struct {
	api  barsAPI
	feed string
}

// NewAlpacaClient returns a client for cfg. Without credentials the client
// is still usable but every call returns ErrNotConfigured.
func NewAlpacaClient(cfg config.Alpaca) *AlpacaClient {
	if !cfg.Enabled() {
		return &AlpacaClient{}
	}
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		opts.BaseURL = cfg.DataURL
	}
	return &AlpacaClient{
		api:  marketdata.NewClient(opts),
		feed: cfg.Feed,
	}
}

// Configured reports whether the client has credentials.
func (c *AlpacaClient) Configured() bool {
	return c != nil && c.api != nil
}

// ParseTimeFrame maps 1Min, 5Min, 15Min, 1Hour and 1Day to Alpaca time
// frames. An empty string means 1Day.
func ParseTimeFrame(s string) (marketdata.TimeFrame, error) {
	switch s {
	case "", "1Day":
		return marketdata.OneDay, nil
	case "1Min":
		return marketdata.OneMin, nil
	case "5Min":
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case "15Min":
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case "1Hour":
		return marketdata.OneHour, nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("unsupported timeframe %q", s)
	}
}

// Bars fetches bars for symbol in [start, end]. A zero end leaves the upper
// bound to the API.
func (c *AlpacaClient) Bars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]domain.Bar, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	tf, err := ParseTimeFrame(timeframe)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	symbol = strings.ToUpper(symbol)
	req := marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     start,
		End:       end,
	}
	if c.feed != "" {
		req.Feed = marketdata.Feed(c.feed)
	}

	abars, err := c.api.GetBars(symbol, req)
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(abars))
	for _, ab := range abars {
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp,
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	return bars, nil
}
