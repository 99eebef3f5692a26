package coint

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// olsFit is the subset of an ordinary-least-squares fit the ADF test needs.
type olsFit struct {
	x    *mat.Dense
	beta []float64
	ssr  float64
	nobs int
	k    int
}

// fitOLS regresses y on the given regressor columns (no intercept is added).
// Every column must have len(y) rows.
func fitOLS(y []float64, cols [][]float64) (*olsFit, error) {
	n, k := len(y), len(cols)
	if k == 0 || n <= k {
		return nil, fmt.Errorf("%w: %d observations for %d regressors", ErrInvalidInput, n, k)
	}

	x := design(n, cols)
	yv := mat.NewVecDense(n, y)

	var qr mat.QR
	qr.Factorize(x)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, yv); err != nil {
		return nil, fmt.Errorf("%w: singular regression: %v", ErrInvalidInput, err)
	}

	var fitted, resid mat.VecDense
	fitted.MulVec(x, &beta)
	resid.SubVec(yv, &fitted)

	return &olsFit{
		x:    x,
		beta: mat.Col(nil, 0, &beta),
		ssr:  mat.Dot(&resid, &resid),
		nobs: n,
		k:    k,
	}, nil
}

// aic is the Akaike information criterion of a Gaussian linear model without
// a constant term.
func (f *olsFit) aic() float64 {
	n := float64(f.nobs)
	llf := -n / 2 * (math.Log(2*math.Pi) + math.Log(f.ssr/n) + 1)
	return -2*llf + 2*float64(f.k)
}

// tValue returns beta[j] divided by its standard error.
func (f *olsFit) tValue(j int) (float64, error) {
	var xtx mat.SymDense
	xtx.SymOuterK(1, f.x.T())
	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return 0, fmt.Errorf("%w: regressors are not linearly independent", ErrInvalidInput)
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return 0, fmt.Errorf("%w: inverting normal matrix: %v", ErrInvalidInput, err)
	}

	sigma2 := f.ssr / float64(f.nobs-f.k)
	se := math.Sqrt(sigma2 * inv.At(j, j))
	if se == 0 || math.IsNaN(se) {
		return 0, fmt.Errorf("%w: degenerate residuals", ErrInvalidInput)
	}
	return f.beta[j] / se, nil
}

func design(n int, cols [][]float64) *mat.Dense {
	x := mat.NewDense(n, len(cols), nil)
	for j, col := range cols {
		for i := 0; i < n; i++ {
			x.Set(i, j, col[i])
		}
	}
	return x
}
