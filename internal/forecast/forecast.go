// Package forecast fetches hourly weather forecasts from the local forecast
// service and derives the combined cloud factor used by the production
// estimate.
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gostonefire/mygrid-scheduler/internal/config"
	"github.com/gostonefire/mygrid-scheduler/internal/timeseries"
)

// ErrEmptyForecast is returned when the service responds with no forecast
// entries for the requested window.
var ErrEmptyForecast = errors.New("empty forecast")

const requestTimeout = 30 * time.Second

// Value is one hour of processed forecast data. The cloud cover means are
// in octas (0-8) as delivered by the service; CloudFactor is the combined
// attenuation over all three cloud layers.
type Value struct {
	ValidTime   time.Time `json:"valid_time"`
	Temp        float64   `json:"temp"`
	LCCMean     float64   `json:"lcc_mean"`
	MCCMean     float64   `json:"mcc_mean"`
	HCCMean     float64   `json:"hcc_mean"`
	CloudFactor float64   `json:"cloud_factor"`
}

// record mirrors the forecast service response format.
type record struct {
	DateTime    time.Time `json:"date_time"`
	Temperature float64   `json:"temperature"`
	LCCMean     uint8     `json:"lcc_mean"`
	MCCMean     uint8     `json:"mcc_mean"`
	HCCMean     uint8     `json:"hcc_mean"`
}

// Client fetches and processes weather forecasts.
type Client struct {
	httpClient       *http.Client
	baseURL          string
	lowCloudsFactor  float64
	midCloudsFactor  float64
	highCloudsFactor float64
}

// New returns a forecast client against the configured service endpoint.
// The cloud layer weights come from the production configuration since
// they describe how clouds affect PV output at the installation.
func New(cfg config.ForecastConfig, prod config.ProductionConfig) *Client {
	return &Client{
		httpClient:       &http.Client{Timeout: requestTimeout},
		baseURL:          fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		lowCloudsFactor:  prod.LowCloudsFactor,
		midCloudsFactor:  prod.MidCloudsFactor,
		highCloudsFactor: prod.HighCloudsFactor,
	}
}

// SetBaseURL overrides the service endpoint, for tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// Fetch retrieves a weather forecast for the given window. Both ends are
// truncated to whole hours; to is non-inclusive.
func (c *Client) Fetch(ctx context.Context, from, to time.Time) ([]Value, error) {
	from = from.Truncate(time.Hour)
	to = to.Truncate(time.Hour)

	query := url.Values{}
	query.Set("id", "smhi")
	query.Set("from", from.Format(time.RFC3339))
	query.Set("to", to.Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast request failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read forecast response: %w", err)
	}

	var records []record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to parse forecast response: %w", err)
	}

	forecast := make([]Value, 0, len(records))
	for _, r := range records {
		forecast = append(forecast, Value{
			ValidTime:   r.DateTime,
			Temp:        r.Temperature,
			LCCMean:     float64(r.LCCMean),
			MCCMean:     float64(r.MCCMean),
			HCCMean:     float64(r.HCCMean),
			CloudFactor: c.cloudFactor(r.LCCMean, r.MCCMean, r.HCCMean),
		})
	}

	if len(forecast) == 0 {
		return nil, fmt.Errorf("%w for %s - %s", ErrEmptyForecast, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	return forecast, nil
}

// cloudFactor combines the three cloud layers into one attenuation factor.
// Each layer reduces the remaining light by its octa share weighted with
// the layer factor.
func (c *Client) cloudFactor(lcc, mcc, hcc uint8) float64 {
	return (1 - float64(hcc)/8*c.highCloudsFactor) *
		(1 - float64(mcc)/8*c.midCloudsFactor) *
		(1 - float64(lcc)/8*c.lowCloudsFactor)
}

// MinuteTemperatures expands the hourly temperatures into a minute curve
// over the given day.
func MinuteTemperatures(forecast []Value, day time.Time) ([timeseries.MinutesPerDay]float64, error) {
	return minuteCurve(forecast, day, func(v Value) float64 { return v.Temp })
}

// MinuteCloudFactors expands the hourly cloud factors into a minute curve
// over the given day.
func MinuteCloudFactors(forecast []Value, day time.Time) ([timeseries.MinutesPerDay]float64, error) {
	return minuteCurve(forecast, day, func(v Value) float64 { return v.CloudFactor })
}

func minuteCurve(forecast []Value, day time.Time, pick func(Value) float64) ([timeseries.MinutesPerDay]float64, error) {
	times := make([]time.Time, 0, len(forecast))
	values := make([]float64, 0, len(forecast))
	for _, v := range forecast {
		times = append(times, v.ValidTime)
		values = append(values, pick(v))
	}

	return timeseries.MinuteCurve(times, values, day)
}
