package coint

import (
	"fmt"
	"math"
)

// adfResult is an augmented Dickey-Fuller test without deterministic terms.
type adfResult struct {
	stat float64
	lags int
	nobs int
}

// defaultMaxLag is Schwert's rule, capped so the common sample keeps at least
// as many rows as the largest regression has columns.
func defaultMaxLag(n int) int {
	maxlag := int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	if limit := n/2 - 1; limit < maxlag {
		maxlag = limit
	}
	return maxlag
}

// adfNoConstant runs the ADF regression
//
//	dx[t] = g*x[t] + b1*dx[t-1] + ... + bL*dx[t-L] + e[t]
//
// picking L in [0, maxlag] by minimum AIC over a shared sample, then refitting
// the chosen lag on its own full sample. The statistic is the t-value of g.
func adfNoConstant(x []float64) (*adfResult, error) {
	n := len(x)
	maxlag := defaultMaxLag(n)
	if maxlag < 0 {
		return nil, fmt.Errorf("%w: series too short for ADF test (%d)", ErrInvalidInput, n)
	}

	dx := make([]float64, n-1)
	for i := range dx {
		dx[i] = x[i+1] - x[i]
	}

	bestLag, bestAIC := -1, math.Inf(1)
	for lag := 0; lag <= maxlag; lag++ {
		y, cols := adfDesign(x, dx, maxlag, lag)
		if len(y) <= len(cols) {
			// No residual degrees of freedom left for this lag.
			break
		}
		fit, err := fitOLS(y, cols)
		if err != nil {
			continue
		}
		if aic := fit.aic(); bestLag < 0 || aic < bestAIC {
			bestLag, bestAIC = lag, aic
		}
	}
	if bestLag < 0 {
		return nil, fmt.Errorf("%w: no admissible lag for ADF regression", ErrInvalidInput)
	}

	y, cols := adfDesign(x, dx, bestLag, bestLag)
	fit, err := fitOLS(y, cols)
	if err != nil {
		return nil, err
	}
	stat, err := fit.tValue(0)
	if err != nil {
		return nil, err
	}
	return &adfResult{stat: stat, lags: bestLag, nobs: len(y)}, nil
}

// adfDesign builds the dependent vector and regressor columns for the rows
// t = start..len(dx)-1, using lag lagged differences.
func adfDesign(x, dx []float64, start, lag int) ([]float64, [][]float64) {
	rows := len(dx) - start
	if rows < 0 {
		rows = 0
	}
	y := make([]float64, rows)
	cols := make([][]float64, lag+1)
	for j := range cols {
		cols[j] = make([]float64, rows)
	}
	for r := 0; r < rows; r++ {
		t := start + r
		y[r] = dx[t]
		cols[0][r] = x[t]
		for j := 1; j <= lag; j++ {
			cols[j][r] = dx[t-j]
		}
	}
	return y, cols
}
