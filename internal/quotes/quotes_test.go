package quotes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantlab/internal/config"
)

const sampleChart = `{"chart":{"result":[{"meta":{"symbol":"AAPL"},"timestamp":[1,2,3],
"indicators":{"quote":[{"close":[100.5,null,101.25]}]}}],"error":null}}`

func newYahoo(t *testing.T, h http.HandlerFunc) *YahooClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewYahooClient(config.Upstream{
		YahooBaseURL: srv.URL + "/",
		Timeout:      5 * time.Second,
		UserAgent:    "quantlab-test",
	})
}

func TestYahooChartPassThrough(t *testing.T) {
	c := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "3y", r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "quantlab-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleChart))
	})

	raw, status, err := c.Chart(context.Background(), "AAPL", "3y", "1d")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, sampleChart, string(raw))
}

func TestYahooChartForwardsUpstreamStatus(t *testing.T) {
	const notFound = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`
	c := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(notFound))
	})

	raw, status, err := c.Chart(context.Background(), "NOPE", "1y", "1d")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, notFound, string(raw))
}

func TestYahooChartNotJSON(t *testing.T) {
	c := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>blocked</html>"))
	})

	_, _, err := c.Chart(context.Background(), "AAPL", "3y", "1d")
	assert.ErrorIs(t, err, ErrUpstreamNotJSON)
}

func TestYahooChartCancelled(t *testing.T) {
	c := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleChart))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.Chart(ctx, "AAPL", "3y", "1d")
	assert.Error(t, err)
}

func TestParseChartCloses(t *testing.T) {
	closes, err := ParseChartCloses([]byte(sampleChart))
	require.NoError(t, err)
	assert.Equal(t, []float64{100.5, 101.25}, closes)

	_, err = ParseChartCloses([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"x"}}}`))
	assert.Error(t, err)

	_, err = ParseChartCloses([]byte(`{"chart":{"result":[],"error":null}}`))
	assert.Error(t, err)

	_, err = ParseChartCloses([]byte(`not json`))
	assert.Error(t, err)
}

type fakeBars struct {
	symbol string
	req    marketdata.GetBarsRequest
	bars   []marketdata.Bar
	err    error
}

func (f *fakeBars) GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.symbol, f.req = symbol, req
	return f.bars, f.err
}

func TestAlpacaNotConfigured(t *testing.T) {
	c := NewAlpacaClient(config.Alpaca{})
	assert.False(t, c.Configured())

	_, err := c.Bars(context.Background(), "AAPL", "1Day", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	var nilClient *AlpacaClient
	_, err = nilClient.Bars(context.Background(), "AAPL", "1Day", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAlpacaBarsConversion(t *testing.T) {
	ts := time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)
	fake := &fakeBars{bars: []marketdata.Bar{
		{Timestamp: ts, Open: 10, High: 12, Low: 9, Close: 11, Volume: 1500, TradeCount: 42, VWAP: 10.8},
	}}
	c := &AlpacaClient{api: fake, feed: "iex"}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars, err := c.Bars(context.Background(), "aapl", "5Min", start, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 1)

	assert.Equal(t, "AAPL", fake.symbol)
	assert.Equal(t, marketdata.NewTimeFrame(5, marketdata.Min), fake.req.TimeFrame)
	assert.Equal(t, start, fake.req.Start)
	assert.EqualValues(t, "iex", fake.req.Feed)

	b := bars[0]
	assert.Equal(t, "AAPL", b.Symbol)
	assert.Equal(t, ts, b.Timestamp)
	assert.Equal(t, 11.0, b.Close)
	assert.Equal(t, int64(1500), b.Volume)
	assert.Equal(t, int64(42), b.TradeCount)
}

func TestAlpacaBarsUpstreamError(t *testing.T) {
	boom := errors.New("forbidden")
	c := &AlpacaClient{api: &fakeBars{err: boom}}

	_, err := c.Bars(context.Background(), "AAPL", "", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, boom)
}

func TestParseTimeFrame(t *testing.T) {
	for _, s := range []string{"", "1Min", "5Min", "15Min", "1Hour", "1Day"} {
		_, err := ParseTimeFrame(s)
		assert.NoError(t, err, s)
	}
	tf, _ := ParseTimeFrame("")
	assert.Equal(t, marketdata.OneDay, tf)

	_, err := ParseTimeFrame("2Week")
	assert.Error(t, err)

	c := &AlpacaClient{api: &fakeBars{}}
	_, err = c.Bars(context.Background(), "AAPL", "3Sec", time.Time{}, time.Time{})
	assert.Error(t, err)
}

func TestParseChartTimestamps(t *testing.T) {
	points, err := ParseChart([]byte(sampleChart))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, time.Unix(1, 0).UTC(), points[0].Time)
	// The null close at index 1 is dropped along with its timestamp.
	assert.Equal(t, time.Unix(3, 0).UTC(), points[1].Time)
	assert.Equal(t, 101.25, points[1].Close)
}
