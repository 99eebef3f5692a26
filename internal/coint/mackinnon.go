package coint

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// MacKinnon (1994) response-surface coefficients for the tau statistic of a
// regression with a constant and two variables (the cointegrating pair).
const (
	tauMax  = 0.92
	tauMin  = -18.86
	tauStar = -2.62
)

var (
	tauSmallP = []float64{2.92, 1.5012, 0.039796}
	tauLargeP = []float64{2.1945, 0.64695, -0.29198, -0.042377}
)

// mackinnonP returns the approximate asymptotic p-value of an Engle-Granger
// tau statistic.
func mackinnonP(tau float64) float64 {
	switch {
	case tau > tauMax:
		return 1
	case tau < tauMin:
		return 0
	}
	coef := tauLargeP
	if tau <= tauStar {
		coef = tauSmallP
	}
	return distuv.UnitNormal.CDF(polyval(coef, tau))
}

// polyval evaluates c[0] + c[1]*x + c[2]*x^2 + ... by Horner's rule.
func polyval(c []float64, x float64) float64 {
	var v float64
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}
