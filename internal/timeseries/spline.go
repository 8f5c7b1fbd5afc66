// Package timeseries provides the numeric plumbing shared by the estimation
// managers: monotonic cubic spline interpolation, per-minute day curves and
// time-grouped aggregation of minute data.
package timeseries

import (
	"errors"
	"math"
)

// MonotonicCubicSpline interpolates between control points without
// overshooting them (Fritsch-Carlson style slope limiting). It is used to
// expand hourly forecast samples and the temperature/load curve into smooth
// minute resolution data.
type MonotonicCubicSpline struct {
	xs []float64
	ys []float64
	ms []float64
}

// NewMonotonicCubicSpline returns a spline with prepared slopes.
// The x values must be strictly increasing and at least two points long.
func NewMonotonicCubicSpline(x, y []float64) (*MonotonicCubicSpline, error) {
	if len(x) != len(y) || len(x) < 2 {
		return nil, errors.New("spline needs at least 2 control points of equal length")
	}

	n := len(x)

	secants := make([]float64, n-1)
	slopes := make([]float64, n)

	for i := 0; i < n-1; i++ {
		h := x[i+1] - x[i]
		if h <= 0 {
			return nil, errors.New("control points not monotonically increasing")
		}
		secants[i] = (y[i+1] - y[i]) / h
	}

	slopes[0] = secants[0]
	for i := 1; i < n-1; i++ {
		slopes[i] = (secants[i-1] + secants[i]) * 0.5
	}
	slopes[n-1] = secants[n-2]

	for i := 0; i < n-1; i++ {
		if secants[i] == 0 {
			slopes[i] = 0
			slopes[i+1] = 0
			continue
		}

		alpha := slopes[i] / secants[i]
		beta := slopes[i+1] / secants[i]
		h := math.Hypot(alpha, beta)
		if h > 9 {
			t := 3.0 / h
			slopes[i] = t * alpha * secants[i]
			slopes[i+1] = t * beta * secants[i]
		}
	}

	return &MonotonicCubicSpline{
		xs: append([]float64(nil), x...),
		ys: append([]float64(nil), y...),
		ms: slopes,
	}, nil
}

// Interpolate returns an interpolated y for the given point. Points outside
// the control range are clamped to the edge values.
func (s *MonotonicCubicSpline) Interpolate(point float64) float64 {
	n := len(s.xs)

	if point <= s.xs[0] {
		return s.ys[0]
	}
	if point >= s.xs[n-1] {
		return s.ys[n-1]
	}

	i := 0
	for point >= s.xs[i+1] {
		i++
		if point == s.xs[i] {
			return s.ys[i]
		}
	}

	return hermite(point,
		s.xs[i], s.xs[i+1],
		s.ys[i], s.ys[i+1],
		s.ms[i], s.ms[i+1])
}

func hermite(point, x0, x1, y0, y1, m0, m1 float64) float64 {
	h := x1 - x0
	t := (point - x0) / h
	return (y0*(1+2*t)+h*m0*t)*(1-t)*(1-t) +
		(y1*(3-2*t)+h*m1*(t-1))*t*t
}
