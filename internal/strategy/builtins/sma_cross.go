// Package builtins provides the signal generators that ship with quantlab.
package builtins

import (
	"quantlab/internal/backtest"
	"quantlab/internal/strategy"
)

// Compile-time interface checks.
var _ strategy.Strategy = (*SMACross)(nil)
var _ strategy.Strategy = BuyHold{}

// Default SMA windows.
const (
	DefaultShort = 5
	DefaultLong  = 20
)

// Register adds every built-in strategy to r.
func Register(r *strategy.Registry) {
	r.Register("sma-cross", func(p strategy.Params) (strategy.Strategy, error) {
		s, err := NewSMACross(p.Int("short", DefaultShort), p.Int("long", DefaultLong))
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	r.Register("buy-hold", func(strategy.Params) (strategy.Strategy, error) {
		return BuyHold{}, nil
	})
}

// SMACross implements a simple moving average crossover strategy. It is long
// while the short-period SMA is above the long-period SMA and short while it
// is below.
type SMACross struct {
	shortPeriod int
	longPeriod  int
}

// NewSMACross creates a new SMACross strategy with the specified short and
// long moving average periods.
func NewSMACross(short, long int) (*SMACross, error) {
	if short <= 0 {
		return nil, &backtest.InvalidInputError{Field: "short", Index: -1, Reason: "window must be positive"}
	}
	if long <= short {
		return nil, &backtest.InvalidInputError{Field: "long", Index: -1, Reason: "window must exceed the short window"}
	}
	return &SMACross{
		shortPeriod: short,
		longPeriod:  long,
	}, nil
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// Signals returns +1/-1 by the sign of SMA(short)-SMA(long), and 0 until
// long prices are available or when the averages are equal.
func (s *SMACross) Signals(prices []float64) ([]int, error) {
	signals := make([]int, len(prices))
	var shortSum, longSum float64
	for i, p := range prices {
		shortSum += p
		longSum += p
		if i >= s.shortPeriod {
			shortSum -= prices[i-s.shortPeriod]
		}
		if i >= s.longPeriod {
			longSum -= prices[i-s.longPeriod]
		}
		if i < s.longPeriod-1 {
			continue
		}

		short := shortSum / float64(s.shortPeriod)
		long := longSum / float64(s.longPeriod)
		switch {
		case short > long:
			signals[i] = 1
		case short < long:
			signals[i] = -1
		}
	}
	return signals, nil
}

// BuyHold is long on every step.
type BuyHold struct{}

// Name returns "buy-hold".
func (BuyHold) Name() string { return "buy-hold" }

// Signals returns +1 for every price.
func (BuyHold) Signals(prices []float64) ([]int, error) {
	signals := make([]int, len(prices))
	for i := range signals {
		signals[i] = 1
	}
	return signals, nil
}
