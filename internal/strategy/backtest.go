package strategy

import (
	"fmt"

	"quantlab/internal/backtest"
)

// Backtester generates signals with a registered strategy and scores them
// with the backtest engine.
type Backtester struct {
	registry *Registry
}

// NewBacktester creates a Backtester that looks up strategies in the
// provided registry.
func NewBacktester(registry *Registry) *Backtester {
	return &Backtester{
		registry: registry,
	}
}

// Strategies returns the names the Backtester can run.
func (bt *Backtester) Strategies() []string {
	return bt.registry.List()
}

// Run builds the named strategy, derives signals from prices, and returns
// the engine's metrics. Price validation happens before signal generation so
// strategies never see a degenerate series.
func (bt *Backtester) Run(name string, params Params, prices []float64) (backtest.Result, error) {
	s, err := bt.registry.New(name, params)
	if err != nil {
		return backtest.Result{}, err
	}

	if err := backtest.Validate(prices, make([]int, len(prices))); err != nil {
		return backtest.Result{}, err
	}

	signals, err := s.Signals(prices)
	if err != nil {
		return backtest.Result{}, fmt.Errorf("generating %s signals: %w", s.Name(), err)
	}
	return backtest.Run(prices, signals)
}
