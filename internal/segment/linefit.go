package segment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// degenerateTolerance is the relative size below which the normal-equation
// determinant is treated as zero.
const degenerateTolerance = 1e-12

// Line is a weighted least-squares fit of y = Intercept + Slope·x.
type Line struct {
	Slope     float64
	Intercept float64

	VarSlope     float64
	VarIntercept float64
	CovSlopeInt  float64

	Chi2 float64
	N    int
}

// FitLine fits y = b + m·x to the points (x[i], y[i]) with errors sigma[i],
// minimising Σ((y - b - m·x)/σ)². The covariance comes from the inverse of
// the normal equations and chi2 is evaluated with the final parameters.
func FitLine(x, y, sigma []float64) (Line, error) {
	n := len(x)
	if len(y) != n || len(sigma) != n {
		return Line{}, fmt.Errorf("%w: %d depths, %d offsets, %d errors", ErrDegenerateFit, n, len(y), len(sigma))
	}
	if n < MinMeasurements {
		return Line{}, fmt.Errorf("%w: %d points", ErrDegenerateFit, n)
	}

	var s, sx, sy, sxx, sxy float64
	for i := 0; i < n; i++ {
		sig := sigma[i]
		if !(sig > 0) || math.IsInf(sig, 0) {
			return Line{}, fmt.Errorf("%w: point %d has error %g", ErrDegenerateFit, i, sig)
		}
		w := 1 / (sig * sig)
		s += w
		sx += w * x[i]
		sy += w * y[i]
		sxx += w * x[i] * x[i]
		sxy += w * x[i] * y[i]
	}

	delta := s*sxx - sx*sx
	if !(delta > degenerateTolerance*s*sxx) {
		return Line{}, fmt.Errorf("%w: determinant %g", ErrDegenerateFit, delta)
	}

	l := Line{
		Slope:        (s*sxy - sx*sy) / delta,
		Intercept:    (sxx*sy - sx*sxy) / delta,
		VarSlope:     s / delta,
		VarIntercept: sxx / delta,
		CovSlopeInt:  -sx / delta,
		N:            n,
	}
	for i := 0; i < n; i++ {
		r := (y[i] - (l.Intercept + l.Slope*x[i])) / sigma[i]
		l.Chi2 += r * r
	}
	return l, nil
}

// Result maps the line onto the superlayer frame. The intercept is the
// local x where the segment crosses z = 0; y is not measured so the point
// sits on the superlayer's centre line. The direction is dx/dz = slope and
// points against local z, towards the interaction region.
func (l Line) Result() FitResult {
	return FitResult{
		Position:  r3.Vec{X: l.Intercept},
		Direction: r3.Unit(r3.Vec{X: -l.Slope, Z: -1}),
		Covariance: mat.NewSymDense(2, []float64{
			l.VarSlope, l.CovSlopeInt,
			l.CovSlopeInt, l.VarIntercept,
		}),
		Chi2:      l.Chi2,
		Slope:     l.Slope,
		Intercept: l.Intercept,
		NumPoints: l.N,
	}
}
