// Package production estimates PV power per minute over a day from solar
// geometry, panel characteristics, roof temperature and the weather
// forecast.
package production

import (
	"math"
	"time"

	"github.com/gostonefire/mygrid-scheduler/internal/config"
	"github.com/gostonefire/mygrid-scheduler/internal/forecast"
	"github.com/gostonefire/mygrid-scheduler/internal/timeseries"
)

// Estimator calculates PV production for one installation.
type Estimator struct {
	lat               float64
	long              float64
	panelPower        float64
	panelSlope        float64
	panelEastAzm      float64
	panelTempRed      float64
	tau               float64
	tauDown           float64
	kGain             float64
	iamFactor         float64
	startAzmElv       [][2]float64
	stopAzmElv        [][2]float64
	cloudImpactFactor float64
}

// New returns a production estimator for the configured installation.
func New(prod config.ProductionConfig, geo config.GeoRefConfig) *Estimator {
	return &Estimator{
		lat:               geo.Lat,
		long:              geo.Long,
		panelPower:        prod.PanelPower,
		panelSlope:        prod.PanelSlope,
		panelEastAzm:      prod.PanelEastAzm,
		panelTempRed:      prod.PanelTempRed,
		tau:               prod.Tau,
		tauDown:           prod.TauDown,
		kGain:             prod.KGain,
		iamFactor:         prod.IAMFactor,
		startAzmElv:       prod.StartAzmElv,
		stopAzmElv:        prod.StopAzmElv,
		cloudImpactFactor: prod.CloudImpactFactor,
	}
}

// Estimate returns estimated PV power in watts per minute for the day of
// the given local time, based on the hourly forecast.
func (e *Estimator) Estimate(fc []forecast.Value, day time.Time) ([timeseries.MinutesPerDay]float64, error) {
	var power [timeseries.MinutesPerDay]float64

	temp, err := forecast.MinuteTemperatures(fc, day)
	if err != nil {
		return power, err
	}
	cloudFactor, err := forecast.MinuteCloudFactors(fc, day)
	if err != nil {
		return power, err
	}

	return e.dayPower(day, temp, cloudFactor)
}

// dayPower calculates one day of estimated power per minute.
func (e *Estimator) dayPower(day time.Time, temp, cloudFactor [timeseries.MinutesPerDay]float64) ([timeseries.MinutesPerDay]float64, error) {
	var power [timeseries.MinutesPerDay]float64

	sp, err := e.solarPositions(day)
	if err != nil {
		return power, err
	}

	sif := sunIntensityFactor(&sp.zenith)
	up, down := e.fullSunMinutes(sp)

	roofTempEast := e.roofTemperature(up, &temp, &sp.incidenceEast, &sif)
	roofTempWest := e.roofTemperature(up, &temp, &sp.incidenceWest, &sif)

	for m := sp.sunrise; m < sp.sunset; m++ {
		// Production factor from sun incidence on each panel face.
		incRedE := schlickIAM(sp.incidenceEast[m], e.iamFactor)
		incRedW := schlickIAM(sp.incidenceWest[m], e.iamFactor)

		// Power reduction from panel temperature above 25 degrees.
		tempRedE := 1.0 - (math.Max(roofTempEast[m], 0.0)-25.0)*e.panelTempRed/100.0
		tempRedW := 1.0 - (math.Max(roofTempWest[m], 0.0)-25.0)*e.panelTempRed/100.0

		// Atmospheric reduction from the sun altitude relative to zenith.
		ameRed := sif[m]

		// Total panel power, 12 panels east and 15 west.
		pwr := e.panelPower*12.0*incRedE*tempRedE + e.panelPower*15.0*incRedW*tempRedW

		shadowUp := expIncrease(m, sp.sunrise, up, 10)
		shadowDown := expDecrease(m, down, sp.sunset, 4)

		cf := clamp(cloudFactor[m], 0.0, 1.0)*e.cloudImpactFactor + (1.0 - e.cloudImpactFactor)

		power[m] = pwr * ameRed * shadowUp * shadowDown * cf
	}

	return power, nil
}

// fullSunMinutes finds the minutes of the day where the sun clears the
// nearby obstacles in the morning (up) and drops behind them in the
// evening (down). The obstacle profile is a list of azimuth break points
// with the elevation the sun must exceed (morning) or fall below (evening).
func (e *Estimator) fullSunMinutes(sp *solarPositions) (up, down int) {
	type span struct {
		fromAzm, toAzm, elv float64
	}

	var upSpans []span
	for i := 0; i < len(e.startAzmElv); i++ {
		to := 180.0
		if i < len(e.startAzmElv)-1 {
			to = e.startAzmElv[i+1][0]
		}
		upSpans = append(upSpans, span{e.startAzmElv[i][0], to, e.startAzmElv[i][1]})
	}

	var downSpans []span
	for i := 0; i < len(e.stopAzmElv); i++ {
		to := 360.0
		if i < len(e.stopAzmElv)-1 {
			to = e.stopAzmElv[i+1][0]
		}
		downSpans = append(downSpans, span{e.stopAzmElv[i][0], to, e.stopAzmElv[i][1]})
	}

	for m := sp.sunrise; m < sp.sunset; m++ {
		if sp.azimuth[m] < 180.0 {
			for _, s := range upSpans {
				if up == 0 && sp.azimuth[m] >= s.fromAzm && sp.azimuth[m] < s.toAzm && sp.elevation[m] > s.elv {
					up = m
				}
			}
		} else {
			for _, s := range downSpans {
				if down == 0 && sp.azimuth[m] >= s.fromAzm && sp.azimuth[m] < s.toAzm && sp.elevation[m] < s.elv {
					down = m
				}
			}
		}
	}

	if up == 0 {
		up = sp.sunrise
	}
	if down == 0 {
		down = sp.sunset
	}

	return up, down
}

// roofTemperature estimates the roof surface temperature per minute using
// a first-order RC thermal model with explicit Euler updates.
//
//	T[k] = T[k-1] + (T_eq - T[k-1]) * dt/tau_eff
//	T_eq = T_air[k] + k_gain * max(0, cos(inc)) * sif[k]
//
// tau applies while heating and tauDown while cooling, both configured in
// hours. Before the sun clears the obstacles (minute up) the air
// temperature is depressed 4 degrees and the incidence held at 90, keeping
// the roof at its shaded morning temperature.
func (e *Estimator) roofTemperature(up int, tAir, incDeg, sif *[timeseries.MinutesPerDay]float64) [timeseries.MinutesPerDay]float64 {
	const dt = 60.0

	tauHeat := e.tau * 3600.0
	tauCool := e.tauDown * 3600.0

	var tRoof [timeseries.MinutesPerDay]float64
	tRoof[0] = tAir[0] - 4.0

	for k := 1; k < timeseries.MinutesPerDay; k++ {
		inc := incDeg[k]
		airTemp := tAir[k]
		if k <= up {
			inc = 90.0
			airTemp -= 4.0
		}

		projection := math.Max(math.Cos(inc*math.Pi/180.0), 0.0)
		tEq := airTemp + e.kGain*projection*sif[k]

		tauEff := tauHeat
		if tEq <= tRoof[k-1] {
			tauEff = tauCool
		}

		tRoof[k] = tRoof[k-1] + (tEq-tRoof[k-1])*dt/tauEff
	}

	return tRoof
}

// schlickIAM is the Schlick incidence angle modifier: 1 at normal
// incidence, 0 at grazing. factor 1 gives cosine response, higher values a
// flatter curve.
func schlickIAM(thetaDeg, factor float64) float64 {
	return 1.0 - math.Pow(1.0-math.Cos(clamp(thetaDeg, 0.0, 90.0)*math.Pi/180.0), factor)
}

// sunIntensityFactor approximates the fraction of extraterrestrial sun
// intensity reaching the ground, from the air mass at each zenith angle
// (https://en.wikipedia.org/wiki/Air_mass_(solar_energy)).
func sunIntensityFactor(zenith *[timeseries.MinutesPerDay]float64) [timeseries.MinutesPerDay]float64 {
	// Ratio between the earth's radius (6371 km) and the effective height
	// of the atmosphere (9 km).
	const r = 708.0

	// Intensity external to the earth's atmosphere.
	const i0 = 1353.0

	var result [timeseries.MinutesPerDay]float64

	for i := 0; i < timeseries.MinutesPerDay; i++ {
		zenithCos := math.Cos(zenith[i] * math.Pi / 180.0)
		am := (2*r + 1) / (math.Sqrt(math.Pow(r*zenithCos, 2)+2*r+1) + r*zenithCos)

		// Approximation of intensity where the shape 0.6 replaces the
		// originally proposed 0.678.
		intensity := 1.1 * i0 * math.Pow(0.7, math.Pow(am, 0.6))

		result[i] = intensity / i0
	}

	return result
}

// expIncrease ramps from 0 at v0 to 1 at vn with the given exponent,
// clamped outside the range.
func expIncrease(v, v0, vn, exp int) float64 {
	if vn <= v0 {
		return 1.0
	}
	frac := clamp(float64(v-v0), 0.0, float64(vn-v0)) / float64(vn-v0)
	return math.Pow(frac, float64(exp))
}

// expDecrease ramps from 1 at v0 to 0 at vn with the given exponent,
// clamped outside the range.
func expDecrease(v, v0, vn, exp int) float64 {
	if vn <= v0 {
		return 1.0
	}
	frac := clamp(float64(vn-v), 0.0, float64(vn-v0)) / float64(vn-v0)
	return math.Pow(frac, float64(exp))
}
