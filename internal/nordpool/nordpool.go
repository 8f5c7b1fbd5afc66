// Package nordpool fetches Nord Pool day-ahead spot prices and applies the
// configured grid and trade fees to produce the buy and sell price per
// delivery period.
package nordpool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/gostonefire/mygrid-scheduler/internal/config"
)

const defaultBaseURL = "https://dataportal-api.nordpoolgroup.com/api/DayAheadPrices"

const requestTimeout = 30 * time.Second

// Day-ahead prices for the next day are published in the afternoon; before
// that the API answers 204.
var ErrNoContent = errors.New("no day-ahead prices published yet")

// A full day carries at least 92 quarter-hour entries (92 on the DST spring
// day); fewer means a partial publication.
var ErrTooFewEntries = errors.New("too few day-ahead price entries")

// TariffValue is the processed price for one delivery period. Price is the
// raw spot price, Buy and Sell include fees and VAT, all in SEK/kWh.
type TariffValue struct {
	ValidTime time.Time `json:"valid_time"`
	Price     float64   `json:"price"`
	Buy       float64   `json:"buy"`
	Sell      float64   `json:"sell"`
}

// Client fetches day-ahead prices and applies fee markups.
type Client struct {
	httpClient       *http.Client
	baseURL          string
	variableFee      float64
	spotFeeFraction  float64
	energyTax        float64
	swedishPowerGrid float64
	balanceResp      float64
	electricCert     float64
	guaranteesOfOrig float64
	fixed            float64
	productionPrice  float64
}

// New returns a Nord Pool client configured with the given tariff fees.
func New(fees config.TariffFeesConfig) *Client {
	return &Client{
		httpClient:       &http.Client{Timeout: requestTimeout},
		baseURL:          defaultBaseURL,
		variableFee:      fees.VariableFee,
		spotFeeFraction:  fees.SpotFeePercentage / 100.0,
		energyTax:        fees.EnergyTax,
		swedishPowerGrid: fees.SwedishPowerGrid,
		balanceResp:      fees.BalanceResponsibility,
		electricCert:     fees.ElectricCertificate,
		guaranteesOfOrig: fees.GuaranteesOfOrigin,
		fixed:            fees.Fixed,
		productionPrice:  fees.ProductionPrice,
	}
}

// SetBaseURL overrides the API endpoint, for tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

type entryPerArea struct {
	SE4 float64 `json:"SE4"`
}

type multiAreaEntry struct {
	DeliveryStart time.Time    `json:"deliveryStart"`
	EntryPerArea  entryPerArea `json:"entryPerArea"`
}

type dayAheadPrices struct {
	MultiAreaEntries []multiAreaEntry `json:"multiAreaEntries"`
}

// Tariffs retrieves day-ahead prices for the given date and returns the
// entries with delivery start within [dayStart, dayEnd).
func (c *Client) Tariffs(ctx context.Context, dayStart, dayEnd time.Time, dayDate time.Time) ([]TariffValue, error) {
	query := url.Values{}
	query.Set("date", dayDate.Format("2006-01-02"))
	query.Set("market", "DayAhead")
	query.Set("deliveryArea", "SE4")
	query.Set("currency", "SEK")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build day-ahead request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("day-ahead request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, fmt.Errorf("%w for %s", ErrNoContent, dayDate.Format("2006-01-02"))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("day-ahead request failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read day-ahead response: %w", err)
	}

	var prices dayAheadPrices
	if err := json.Unmarshal(body, &prices); err != nil {
		return nil, fmt.Errorf("failed to parse day-ahead response: %w", err)
	}

	return c.tariffValues(prices, dayStart, dayEnd)
}

// tariffValues applies the fee markups and filters to the day window.
func (c *Client) tariffValues(prices dayAheadPrices, dayStart, dayEnd time.Time) ([]TariffValue, error) {
	entries := len(prices.MultiAreaEntries)
	if entries < 92 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewEntries, entries)
	}

	var sum float64
	for _, e := range prices.MultiAreaEntries {
		sum += e.EntryPerArea.SE4
	}
	dayAvg := sum / float64(entries) / 1000.0

	var result []TariffValue
	for _, e := range prices.MultiAreaEntries {
		if e.DeliveryStart.Before(dayStart) || !e.DeliveryStart.Before(dayEnd) {
			continue
		}
		result = append(result, c.addVATMarkup(dayAvg, e.EntryPerArea.SE4, e.DeliveryStart))
	}

	return result, nil
}

// addVATMarkup converts the raw spot price (SEK/MWh) to SEK/kWh and adds
// grid fees, trade fees and VAT on the buy side and the production premium
// on the sell side.
func (c *Client) addVATMarkup(dayAvg, tariff float64, deliveryStart time.Time) TariffValue {
	price := tariff / 1000.0
	gridFees := (c.variableFee+c.energyTax)/100.0 + c.spotFeeFraction*dayAvg
	tradeFees := (c.swedishPowerGrid+c.balanceResp+c.electricCert+
		c.guaranteesOfOrig+c.fixed)/100.0 + price

	buy := (gridFees + tradeFees) / 0.8
	sell := c.productionPrice/100.0 + price

	return TariffValue{
		ValidTime: deliveryStart,
		Price:     roundToTwoDecimals(price),
		Buy:       roundToTwoDecimals(buy),
		Sell:      roundToTwoDecimals(sell),
	}
}

func roundToTwoDecimals(price float64) float64 {
	return math.Round(price*100) / 100
}
