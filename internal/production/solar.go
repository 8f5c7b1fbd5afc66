package production

import (
	"fmt"
	"math"
	"time"

	"github.com/gostonefire/mygrid-scheduler/internal/timeseries"
)

// solarPositions holds per-minute sun angles in degrees over one day.
// Minutes outside the sunrise..sunset window keep their neutral defaults
// (incidence and zenith 90, elevation 0).
type solarPositions struct {
	incidenceEast [timeseries.MinutesPerDay]float64
	incidenceWest [timeseries.MinutesPerDay]float64
	azimuth       [timeseries.MinutesPerDay]float64
	elevation     [timeseries.MinutesPerDay]float64
	zenith        [timeseries.MinutesPerDay]float64
	sunrise       int
	sunset        int
}

// solarPositions computes sun angles per minute for the day of the given
// local time, including panel incidence for the east and west faces.
//
// The geometry follows the NOAA solar position equations: fractional year,
// equation of time and declination from the Fourier expansions, zenith and
// azimuth from the hour angle. Accuracy is a fraction of a degree, which is
// well inside the tolerance of the production estimate.
func (e *Estimator) solarPositions(day time.Time) (*solarPositions, error) {
	sp := &solarPositions{}
	for i := 0; i < timeseries.MinutesPerDay; i++ {
		sp.incidenceEast[i] = 90.0
		sp.incidenceWest[i] = 90.0
		sp.zenith[i] = 90.0
	}

	year, month, date := day.Date()
	dayStart := time.Date(year, month, date, 0, 0, 0, 0, day.Location())

	sunrise, sunset, err := sunriseSunset(dayStart, e.lat, e.long)
	if err != nil {
		return nil, err
	}
	sp.sunrise = sunrise
	sp.sunset = sunset

	for m := sunrise; m < sunset; m++ {
		zenith, azimuth := solarAngles(dayStart.Add(time.Duration(m)*time.Minute), e.lat, e.long)

		sp.zenith[m] = clamp(zenith, 0.0, 90.0)
		sp.azimuth[m] = azimuth
		sp.elevation[m] = math.Max(90.0-zenith, 0.0)
		sp.incidenceEast[m] = math.Min(incidence(zenith, azimuth, e.panelSlope, e.panelEastAzm), 90.0)
		sp.incidenceWest[m] = math.Min(incidence(zenith, azimuth, e.panelSlope, 180.0+e.panelEastAzm), 90.0)
	}

	return sp, nil
}

// fractionalYear returns the NOAA fractional year angle in radians for the
// given time.
func fractionalYear(t time.Time) float64 {
	hour := float64(t.Hour()) + float64(t.Minute())/60.0
	return 2.0 * math.Pi / 365.0 * (float64(t.YearDay()) - 1.0 + (hour-12.0)/24.0)
}

// equationOfTime returns the equation of time in minutes.
func equationOfTime(gamma float64) float64 {
	return 229.18 * (0.000075 +
		0.001868*math.Cos(gamma) - 0.032077*math.Sin(gamma) -
		0.014615*math.Cos(2*gamma) - 0.040849*math.Sin(2*gamma))
}

// declination returns the solar declination in radians.
func declination(gamma float64) float64 {
	return 0.006918 -
		0.399912*math.Cos(gamma) + 0.070257*math.Sin(gamma) -
		0.006758*math.Cos(2*gamma) + 0.000907*math.Sin(2*gamma) -
		0.002697*math.Cos(3*gamma) + 0.00148*math.Sin(3*gamma)
}

// tzOffsetHours returns the UTC offset of t in hours.
func tzOffsetHours(t time.Time) float64 {
	_, offset := t.Zone()
	return float64(offset) / 3600.0
}

// solarAngles returns the sun zenith and azimuth in degrees at the given
// local time. Azimuth is measured clockwise from north.
func solarAngles(t time.Time, lat, long float64) (zenith, azimuth float64) {
	gamma := fractionalYear(t)
	eqTime := equationOfTime(gamma)
	decl := declination(gamma)

	trueSolarTime := float64(t.Hour()*60+t.Minute()) + eqTime + 4.0*long - 60.0*tzOffsetHours(t)
	hourAngle := (trueSolarTime/4.0 - 180.0) * math.Pi / 180.0

	latRad := lat * math.Pi / 180.0

	cosZenith := math.Sin(latRad)*math.Sin(decl) + math.Cos(latRad)*math.Cos(decl)*math.Cos(hourAngle)
	zenithRad := math.Acos(clamp(cosZenith, -1.0, 1.0))
	zenith = zenithRad * 180.0 / math.Pi

	// Azimuth clockwise from north; the acos branch covers the morning,
	// the hour angle sign resolves the afternoon reflection.
	sinZenith := math.Sin(zenithRad)
	if sinZenith < 1e-9 {
		return zenith, 180.0
	}
	cosAzimuth := (math.Sin(decl) - math.Sin(latRad)*cosZenith) / (math.Cos(latRad) * sinZenith)
	azimuth = math.Acos(clamp(cosAzimuth, -1.0, 1.0)) * 180.0 / math.Pi
	if hourAngle > 0 {
		azimuth = 360.0 - azimuth
	}

	return zenith, azimuth
}

// incidence returns the angle in degrees between the sun beam and the
// normal of a surface tilted slope degrees and rotated rotation degrees
// from south (positive west).
func incidence(zenith, azimuth, slope, rotation float64) float64 {
	zenithRad := zenith * math.Pi / 180.0
	slopeRad := slope * math.Pi / 180.0
	// Sun azimuth measured from south, matching the rotation convention.
	azmSouth := (azimuth - 180.0) * math.Pi / 180.0
	rotRad := rotation * math.Pi / 180.0

	cosInc := math.Cos(zenithRad)*math.Cos(slopeRad) +
		math.Sin(zenithRad)*math.Sin(slopeRad)*math.Cos(azmSouth-rotRad)

	return math.Acos(clamp(cosInc, -1.0, 1.0)) * 180.0 / math.Pi
}

// sunriseSunset returns sunrise and sunset as minute of the local day,
// using the standard refraction-corrected zenith of 90.833 degrees.
func sunriseSunset(dayStart time.Time, lat, long float64) (sunrise, sunset int, err error) {
	noon := dayStart.Add(12 * time.Hour)
	gamma := fractionalYear(noon)
	eqTime := equationOfTime(gamma)
	decl := declination(gamma)

	latRad := lat * math.Pi / 180.0
	cosHA := math.Cos(90.833*math.Pi/180.0)/(math.Cos(latRad)*math.Cos(decl)) -
		math.Tan(latRad)*math.Tan(decl)
	if cosHA < -1.0 || cosHA > 1.0 {
		return 0, 0, fmt.Errorf("sun never rises or never sets at latitude %.2f on %s", lat, dayStart.Format("2006-01-02"))
	}
	haDeg := math.Acos(cosHA) * 180.0 / math.Pi

	tz := tzOffsetHours(noon)
	sunriseMin := 720.0 - 4.0*(long+haDeg) - eqTime + tz*60.0
	sunsetMin := 720.0 - 4.0*(long-haDeg) - eqTime + tz*60.0

	sunrise = int(math.Round(sunriseMin))
	sunset = int(math.Round(sunsetMin))
	if sunrise < 0 {
		sunrise = 0
	}
	if sunset > timeseries.MinutesPerDay {
		sunset = timeseries.MinutesPerDay
	}
	if sunset <= sunrise {
		return 0, 0, fmt.Errorf("degenerate sun window %d..%d at latitude %.2f", sunrise, sunset, lat)
	}

	return sunrise, sunset, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
