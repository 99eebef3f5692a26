// Package backtest turns a price series and an aligned position-signal series
// into profit-and-loss, Sharpe ratio, and drawdown statistics.
package backtest

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SharpeEpsilon is added to the standard deviation of strategy returns so
// that constant or all-zero returns produce a finite Sharpe ratio.
const SharpeEpsilon = 1e-8

// Result holds the summary metrics of one backtest run. Values are fractions
// of capital, not price units.
type Result struct {
	PnL         float64 `json:"pnl"`
	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// Validate checks prices and signals against the engine's preconditions and
// returns the first violation as an *InvalidInputError.
//
// Signals must hold at least len(prices)-1 entries. Entries beyond that are
// ignored; the last price has no forward return to apply a signal to.
func Validate(prices []float64, signals []int) error {
	if len(prices) < 2 {
		return invalid("prices", -1, "need at least 2 prices, got %d", len(prices))
	}
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return invalid("prices", i, "price is not finite")
		}
		if p <= 0 {
			return invalid("prices", i, "price must be positive, got %g", p)
		}
	}
	if need := len(prices) - 1; len(signals) < need {
		return invalid("signals", -1, "need at least %d signals for %d prices, got %d", need, len(prices), len(signals))
	}
	return nil
}

// Returns computes the simple per-step returns of prices. The caller must
// have validated prices.
func Returns(prices []float64) []float64 {
	rets := make([]float64, len(prices)-1)
	for i := range rets {
		rets[i] = (prices[i+1] - prices[i]) / prices[i]
	}
	return rets
}

// StrategyReturns applies signal[i] to the return from step i to i+1.
func StrategyReturns(prices []float64, signals []int) []float64 {
	rets := Returns(prices)
	for i := range rets {
		rets[i] *= float64(signals[i])
	}
	return rets
}

// Run validates the inputs and computes the backtest metrics. It is a pure
// function and safe for concurrent use.
func Run(prices []float64, signals []int) (Result, error) {
	if err := Validate(prices, signals); err != nil {
		return Result{}, err
	}
	strat := StrategyReturns(prices, signals)

	return Result{
		PnL:         floats.Sum(strat),
		Sharpe:      Sharpe(strat),
		MaxDrawdown: MaxDrawdown(strat),
	}, nil
}

// Sharpe returns mean(r) / (populationStd(r) + SharpeEpsilon). The ratio is
// per step and not annualized. An empty series yields 0.
func Sharpe(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	mean, variance := stat.PopMeanVariance(r, nil)
	// Compensated summation can leave a tiny negative variance.
	std := math.Sqrt(math.Max(variance, 0))
	return mean / (std + SharpeEpsilon)
}

// MaxDrawdown returns the largest fall of cumulative return below its running
// peak. The running peak starts at the first cumulative value, so the result
// is never negative and is 0 for a non-decreasing curve.
func MaxDrawdown(r []float64) float64 {
	if len(r) == 0 {
		return 0
	}
	cum := floats.CumSum(make([]float64, len(r)), r)

	peak := cum[0]
	var maxDD float64
	for _, c := range cum {
		if c > peak {
			peak = c
		}
		if dd := peak - c; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
