// Package coint implements the augmented Engle-Granger test for
// cointegration between two series.
package coint

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// MinObservations is the shortest series Test accepts.
const MinObservations = 10

// ErrInvalidInput is wrapped by every error caused by the caller's series.
var ErrInvalidInput = errors.New("invalid input")

// collinearR2 mirrors the 1 - 100*sqrt(eps) threshold above which the two
// series are treated as an exact linear function of each other.
var collinearR2 = 1 - 100*math.Sqrt(2.220446049250313e-16)

// Result is the outcome of an Engle-Granger test of x on y.
type Result struct {
	// Score is the ADF t-statistic of the regression residuals. It is -Inf
	// when the series are collinear.
	Score  float64
	PValue float64
	// Lags is the number of lagged differences chosen by AIC.
	Lags int
	// NObs is the number of rows in the final ADF regression.
	NObs       int
	HedgeRatio float64
	Intercept  float64
	Collinear  bool
}

// Test regresses x on y with an intercept and runs an ADF test without
// deterministic terms on the residuals. A small p-value rejects the null of
// no cointegration.
func Test(x, y []float64) (*Result, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: series lengths differ (%d vs %d)", ErrInvalidInput, len(x), len(y))
	}
	if len(x) < MinObservations {
		return nil, fmt.Errorf("%w: need at least %d observations, got %d", ErrInvalidInput, MinObservations, len(x))
	}
	for i := range x {
		if !finite(x[i]) || !finite(y[i]) {
			return nil, fmt.Errorf("%w: non-finite value at index %d", ErrInvalidInput, i)
		}
	}

	if stat.Variance(y, nil) == 0 {
		return nil, fmt.Errorf("%w: regressor series is constant", ErrInvalidInput)
	}

	alpha, beta := stat.LinearRegression(y, x, nil, false)
	r2 := stat.RSquared(y, x, nil, alpha, beta)

	res := &Result{HedgeRatio: beta, Intercept: alpha}
	// A NaN R-squared (constant x) also lands here.
	if !(r2 < collinearR2) {
		res.Score = math.Inf(-1)
		res.PValue = 0
		res.Collinear = true
		return res, nil
	}

	resid := make([]float64, len(x))
	for i := range x {
		resid[i] = x[i] - (alpha + beta*y[i])
	}

	adf, err := adfNoConstant(resid)
	if err != nil {
		return nil, err
	}
	res.Score = adf.stat
	res.PValue = mackinnonP(adf.stat)
	res.Lags = adf.lags
	res.NObs = adf.nobs
	return res, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
