// Package consumption estimates household load per minute from the
// temperature forecast and the configured weekday/hour base load diagram.
package consumption

import (
	"fmt"
	"time"

	"github.com/gostonefire/mygrid-scheduler/internal/config"
	"github.com/gostonefire/mygrid-scheduler/internal/forecast"
	"github.com/gostonefire/mygrid-scheduler/internal/timeseries"
)

// Estimator calculates household consumption.
//
// The temperature dependence is a monotonic spline over the configured
// control points. It approximates house consumption within an outdoor
// temperature range; temperatures outside that range are assumed not to
// change consumption much in the climate of southern Sweden.
type Estimator struct {
	minAvgLoad float64
	maxAvgLoad float64
	diagram    config.Diagram
	curveXMin  float64
	curveXMax  float64
	curve      *timeseries.MonotonicCubicSpline
}

// New returns a consumption estimator from the configured load model.
// The consumption diagram must have been loaded into the configuration.
func New(cfg config.ConsumptionConfig) (*Estimator, error) {
	if cfg.Diagram == nil {
		return nil, fmt.Errorf("consumption diagram not loaded")
	}

	xs := make([]float64, 0, len(cfg.Curve))
	ys := make([]float64, 0, len(cfg.Curve))
	for _, p := range cfg.Curve {
		xs = append(xs, p[0])
		ys = append(ys, p[1])
	}

	curve, err := timeseries.NewMonotonicCubicSpline(xs, ys)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumption curve: %w", err)
	}

	return &Estimator{
		minAvgLoad: cfg.MinAvgLoad,
		maxAvgLoad: cfg.MaxAvgLoad,
		diagram:    *cfg.Diagram,
		curveXMin:  xs[0],
		curveXMax:  xs[len(xs)-1],
		curve:      curve,
	}, nil
}

// Estimate returns estimated household load in watts per minute for the
// day of the given local time, based on the hourly forecast.
func (e *Estimator) Estimate(fc []forecast.Value, day time.Time) ([timeseries.MinutesPerDay]float64, error) {
	var power [timeseries.MinutesPerDay]float64

	temp, err := forecast.MinuteTemperatures(fc, day)
	if err != nil {
		return power, err
	}

	weekday := mondayIndexed(day.Weekday())

	for m := 0; m < timeseries.MinutesPerDay; m++ {
		power[m] = e.ConsumptionCurve(temp[m]) + e.diagram[weekday][m/60]
	}

	return power, nil
}

// ConsumptionCurve returns the temperature-dependent part of the load in
// watts, varying between minAvgLoad and maxAvgLoad.
func (e *Estimator) ConsumptionCurve(temp float64) float64 {
	capped := temp
	if capped < e.curveXMin {
		capped = e.curveXMin
	}
	if capped > e.curveXMax {
		capped = e.curveXMax
	}

	frac := e.curve.Interpolate(capped)
	if frac < 0.0 {
		frac = 0.0
	}
	if frac > 1.0 {
		frac = 1.0
	}

	return frac*(e.maxAvgLoad-e.minAvgLoad) + e.minAvgLoad
}

// mondayIndexed converts a time.Weekday (Sunday first) to the diagram's
// Monday-first index.
func mondayIndexed(d time.Weekday) int {
	return (int(d) + 6) % 7
}
