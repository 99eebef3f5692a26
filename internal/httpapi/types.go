// Package httpapi exposes the backtest engine, the cointegration test and
// the market-data proxies over a JSON REST API.
package httpapi

import (
	"math"

	"quantlab/internal/coint"
	"quantlab/internal/domain"
	"quantlab/internal/strategy"
)

// BacktestRequest carries either explicit signals or a strategy to generate
// them. Exactly one of the two must be set.
type BacktestRequest struct {
	Prices   []float64     `json:"prices"`
	Signals  []int         `json:"signals,omitempty"`
	Strategy *StrategySpec `json:"strategy,omitempty"`
}

// StrategySpec names a registered strategy and its integer parameters.
type StrategySpec struct {
	Name   string          `json:"name"`
	Params strategy.Params `json:"params,omitempty"`
}

// CointRequest holds the two series of a cointegration test. SeriesX is the
// dependent series.
type CointRequest struct {
	SeriesX []float64 `json:"series_x"`
	SeriesY []float64 `json:"series_y"`
}

// CointResponse is the JSON form of coint.Result. Score is null when the
// series are collinear since JSON has no infinity.
type CointResponse struct {
	Score      *float64 `json:"score"`
	PValue     float64  `json:"pvalue"`
	Lags       int      `json:"lags"`
	NObs       int      `json:"nobs"`
	HedgeRatio float64  `json:"hedge_ratio"`
	Collinear  bool     `json:"collinear"`
}

func newCointResponse(r *coint.Result) CointResponse {
	resp := CointResponse{
		PValue:     r.PValue,
		Lags:       r.Lags,
		NObs:       r.NObs,
		HedgeRatio: r.HedgeRatio,
		Collinear:  r.Collinear,
	}
	if !math.IsInf(r.Score, 0) && !math.IsNaN(r.Score) {
		score := r.Score
		resp.Score = &score
	}
	return resp
}

// BarsResponse is returned by the Alpaca bars endpoint.
type BarsResponse struct {
	Symbol string       `json:"symbol"`
	Bars   []domain.Bar `json:"bars"`
}

// StrategiesResponse lists the registered strategy names.
type StrategiesResponse struct {
	Strategies []string `json:"strategies"`
}

// StatusResponse is a generic acknowledgement.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx response produced here.
type ErrorResponse struct {
	Error string `json:"error"`
}
