package calibration

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tphakala/birdmetrics/internal/errors"
)

const (
	maxIterations = 100
	convergeTol   = 1e-10
	minWeight     = 1e-10
)

// coefficients of a fitted two-parameter logistic model, with the covariance
// of (intercept, slope) from the final weighted normal equations.
type logisticFit struct {
	intercept float64
	slope     float64
	cov       *mat.SymDense
}

// fitLogistic runs iteratively reweighted least squares for the model
// P(y=1) = sigmoid(b0 + b1*x), matching standard logistic-regression MLE.
func fitLogistic(x []float64, y []float64) (*logisticFit, error) {
	n := len(x)

	beta0, beta1 := 0.0, 0.0
	converged := false

	var xtwx *mat.SymDense
	for iter := 0; iter < maxIterations; iter++ {
		// Weighted normal equations: (X'WX) beta = X'Wz with
		// z = eta + (y - mu)/w the working response.
		var s00, s01, s11 float64 // X'WX entries
		var t0, t1 float64        // X'Wz entries
		for i := 0; i < n; i++ {
			eta := beta0 + beta1*x[i]
			mu := sigmoid(eta)
			w := mu * (1 - mu)
			if w < minWeight {
				w = minWeight
			}
			z := eta + (y[i]-mu)/w

			s00 += w
			s01 += w * x[i]
			s11 += w * x[i] * x[i]
			t0 += w * z
			t1 += w * x[i] * z
		}

		xtwx = mat.NewSymDense(2, []float64{s00, s01, s01, s11})
		rhs := mat.NewVecDense(2, []float64{t0, t1})

		var sol mat.VecDense
		if err := sol.SolveVec(xtwx, rhs); err != nil {
			return nil, errors.Newf("logistic fit failed: singular system at iteration %d", iter).
				Category(errors.CategoryModelFit).
				Build()
		}

		next0, next1 := sol.AtVec(0), sol.AtVec(1)
		if math.Abs(next0-beta0) < convergeTol && math.Abs(next1-beta1) < convergeTol {
			beta0, beta1 = next0, next1
			converged = true
			break
		}
		beta0, beta1 = next0, next1

		if math.IsNaN(beta0) || math.IsNaN(beta1) || math.IsInf(beta0, 0) || math.IsInf(beta1, 0) {
			return nil, errors.Newf("logistic fit diverged at iteration %d", iter).
				Category(errors.CategoryModelFit).
				Build()
		}
	}

	if !converged {
		return nil, errors.Newf("logistic fit did not converge in %d iterations", maxIterations).
			Category(errors.CategoryModelFit).
			Build()
	}

	// Covariance of the estimates is (X'WX)^-1 at the converged weights.
	cov, err := invertSym2(xtwx)
	if err != nil {
		return nil, err
	}

	return &logisticFit{intercept: beta0, slope: beta1, cov: cov}, nil
}

// seLinear returns the standard error of the linear predictor b0 + b1*x.
func (f *logisticFit) seLinear(x float64) float64 {
	v := f.cov.At(0, 0) + 2*x*f.cov.At(0, 1) + x*x*f.cov.At(1, 1)
	if v < 0 {
		return 0
	}
	return math.Sqrt(v)
}

// invertSym2 inverts a 2x2 symmetric matrix.
func invertSym2(a *mat.SymDense) (*mat.SymDense, error) {
	det := a.At(0, 0)*a.At(1, 1) - a.At(0, 1)*a.At(1, 0)
	if det == 0 || math.IsNaN(det) {
		return nil, errors.Newf("logistic fit information matrix is singular").
			Category(errors.CategoryModelFit).
			Build()
	}
	return mat.NewSymDense(2, []float64{
		a.At(1, 1) / det, -a.At(0, 1) / det,
		-a.At(0, 1) / det, a.At(0, 0) / det,
	}), nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
