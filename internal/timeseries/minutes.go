package timeseries

import (
	"time"
)

// MinutesPerDay is the resolution all day curves are calculated at.
const MinutesPerDay = 24 * 60

// PowerValue is a power (W) or energy (kWh) sample stamped with the start
// of its validity period.
type PowerValue struct {
	ValidTime time.Time `json:"valid_time"`
	Power     float64   `json:"power"`
}

// MinuteValues holds one value per minute over a single day, anchored at
// the day start.
type MinuteValues struct {
	DayStart time.Time
	Values   [MinutesPerDay]float64
}

// NewMinuteValues returns a MinuteValues over the given day start.
func NewMinuteValues(values [MinutesPerDay]float64, dayStart time.Time) *MinuteValues {
	return &MinuteValues{DayStart: dayStart, Values: values}
}

// Group aggregates the minute values into groups of the given number of
// minutes, averaging within each group. With asEnergy set, the averaged
// power (W) is converted into the energy produced during the group
// (W / (60/group)); the caller holds the /1000 for kWh.
func (m *MinuteValues) Group(group int, asEnergy bool) []PowerValue {
	groups := MinutesPerDay / group
	result := make([]PowerValue, 0, groups)

	for g := 0; g < groups; g++ {
		sum := 0.0
		for i := g * group; i < (g+1)*group; i++ {
			sum += m.Values[i]
		}
		value := sum / float64(group)
		if asEnergy {
			value /= 60.0 / float64(group)
		}

		result = append(result, PowerValue{
			ValidTime: m.DayStart.Add(time.Duration(g*group) * time.Minute),
			Power:     value,
		})
	}

	return result
}

// MinuteCurve expands samples taken during one day into a per-minute curve
// using monotonic cubic spline interpolation. Only samples falling on the
// same date as day (evaluated in day's location) contribute; the x
// coordinate is the sample's minute of the day.
func MinuteCurve(times []time.Time, values []float64, day time.Time) ([MinutesPerDay]float64, error) {
	var curve [MinutesPerDay]float64

	yearRef, monthRef, dayRef := day.Date()
	loc := day.Location()

	var x, y []float64
	for i, ts := range times {
		local := ts.In(loc)
		yearS, monthS, dayS := local.Date()
		if yearS != yearRef || monthS != monthRef || dayS != dayRef {
			continue
		}
		x = append(x, float64(local.Hour()*60+local.Minute()))
		y = append(y, values[i])
	}

	spline, err := NewMonotonicCubicSpline(x, y)
	if err != nil {
		return curve, err
	}

	for i := 0; i < MinutesPerDay; i++ {
		curve[i] = spline.Interpolate(float64(i))
	}

	return curve, nil
}
