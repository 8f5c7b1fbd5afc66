package timeseries

import (
	"math"
	"testing"
	"time"
)

func dayStartUTC() time.Time {
	return time.Date(2025, 11, 26, 0, 0, 0, 0, time.UTC)
}

func TestGroup_Averages(t *testing.T) {
	var values [MinutesPerDay]float64
	for i := range values {
		values[i] = float64(i / 60) // constant within each hour
	}

	mv := NewMinuteValues(values, dayStartUTC())
	groups := mv.Group(15, false)

	if len(groups) != 96 {
		t.Fatalf("Group(15) length = %d, want 96", len(groups))
	}
	if groups[0].ValidTime != dayStartUTC() {
		t.Errorf("first group time = %v, want day start", groups[0].ValidTime)
	}
	if groups[1].ValidTime != dayStartUTC().Add(15*time.Minute) {
		t.Errorf("second group time = %v, want day start +15m", groups[1].ValidTime)
	}
	// 13:00-13:15 slot is minute 780.. so value 13
	if got := groups[52].Power; got != 13 {
		t.Errorf("group 52 value = %v, want 13", got)
	}
}

func TestGroup_EnergyConversion(t *testing.T) {
	var values [MinutesPerDay]float64
	for i := range values {
		values[i] = 4000 // constant 4 kW
	}

	mv := NewMinuteValues(values, dayStartUTC())
	groups := mv.Group(15, true)

	// 4000 W over 15 minutes is 1000 Wh per slot.
	for _, g := range groups {
		if math.Abs(g.Power-1000) > 1e-9 {
			t.Fatalf("energy group value = %v, want 1000", g.Power)
		}
	}
}

func TestMinuteCurve_FiltersOnDate(t *testing.T) {
	day := dayStartUTC()
	times := []time.Time{
		day.Add(-time.Hour), // previous day, ignored
		day,
		day.Add(6 * time.Hour),
		day.Add(12 * time.Hour),
		day.Add(23 * time.Hour),
		day.Add(25 * time.Hour), // next day, ignored
	}
	values := []float64{99, 0, 6, 12, 23, 99}

	curve, err := MinuteCurve(times, values, day)
	if err != nil {
		t.Fatalf("MinuteCurve() error = %v", err)
	}

	if curve[0] != 0 {
		t.Errorf("curve[0] = %v, want 0", curve[0])
	}
	if got := curve[6*60]; math.Abs(got-6) > 1e-9 {
		t.Errorf("curve[360] = %v, want 6", got)
	}
	// After the last sample the curve clamps to the last value.
	if got := curve[MinutesPerDay-1]; math.Abs(got-23) > 1e-9 {
		t.Errorf("curve[last] = %v, want 23", got)
	}
}

func TestMinuteCurve_TooFewSamples(t *testing.T) {
	day := dayStartUTC()
	if _, err := MinuteCurve([]time.Time{day}, []float64{1}, day); err == nil {
		t.Error("MinuteCurve() should fail with a single sample")
	}
}
