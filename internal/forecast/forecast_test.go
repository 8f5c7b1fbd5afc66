package forecast

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gostonefire/mygrid-scheduler/internal/config"
)

func testClient(baseURL string) *Client {
	c := New(config.ForecastConfig{Host: "localhost", Port: 8086}, config.ProductionConfig{
		LowCloudsFactor:  0.9,
		MidCloudsFactor:  0.7,
		HighCloudsFactor: 0.3,
	})
	if baseURL != "" {
		c.SetBaseURL(baseURL)
	}
	return c
}

func TestFetch(t *testing.T) {
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast" {
			t.Errorf("path = %q, want /forecast", r.URL.Path)
		}
		gotQuery = map[string]string{
			"id":   r.URL.Query().Get("id"),
			"from": r.URL.Query().Get("from"),
			"to":   r.URL.Query().Get("to"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"date_time": "2025-11-26T10:00:00Z", "temperature": 4.5, "lcc_mean": 8, "mcc_mean": 0, "hcc_mean": 0},
			{"date_time": "2025-11-26T11:00:00Z", "temperature": 5.0, "lcc_mean": 0, "mcc_mean": 0, "hcc_mean": 0}
		]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	from := time.Date(2025, 11, 26, 10, 30, 0, 0, time.UTC)
	to := time.Date(2025, 11, 27, 10, 30, 0, 0, time.UTC)

	forecast, err := c.Fetch(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotQuery["id"] != "smhi" {
		t.Errorf("query id = %q, want smhi", gotQuery["id"])
	}
	// From/to truncated to whole hours.
	if gotQuery["from"] != "2025-11-26T10:00:00Z" {
		t.Errorf("query from = %q, want truncated hour", gotQuery["from"])
	}

	if len(forecast) != 2 {
		t.Fatalf("forecast length = %d, want 2", len(forecast))
	}
	if forecast[0].Temp != 4.5 {
		t.Errorf("temp = %v, want 4.5", forecast[0].Temp)
	}

	// Full low cloud cover with factor 0.9 leaves 10% of the light.
	if math.Abs(forecast[0].CloudFactor-0.1) > 1e-9 {
		t.Errorf("cloud factor = %v, want 0.1", forecast[0].CloudFactor)
	}
	if forecast[1].CloudFactor != 1.0 {
		t.Errorf("clear sky cloud factor = %v, want 1.0", forecast[1].CloudFactor)
	}
}

func TestFetch_EmptyForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	_, err := c.Fetch(context.Background(), time.Now(), time.Now().Add(24*time.Hour))
	if !errors.Is(err, ErrEmptyForecast) {
		t.Errorf("Fetch() error = %v, want ErrEmptyForecast", err)
	}
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	if _, err := c.Fetch(context.Background(), time.Now(), time.Now()); err == nil {
		t.Error("Fetch() should fail on status 500")
	}
}

func TestCloudFactor(t *testing.T) {
	c := testClient("")

	tests := []struct {
		name          string
		lcc, mcc, hcc uint8
		want          float64
	}{
		{name: "clear sky", lcc: 0, mcc: 0, hcc: 0, want: 1.0},
		{name: "full low cover", lcc: 8, mcc: 0, hcc: 0, want: 0.1},
		{name: "full high cover", lcc: 0, mcc: 0, hcc: 8, want: 0.7},
		{name: "all layers half", lcc: 4, mcc: 4, hcc: 4, want: (1 - 0.45) * (1 - 0.35) * (1 - 0.15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.cloudFactor(tt.lcc, tt.mcc, tt.hcc)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cloudFactor(%d,%d,%d) = %v, want %v", tt.lcc, tt.mcc, tt.hcc, got, tt.want)
			}
		})
	}
}

func TestMinuteTemperatures(t *testing.T) {
	day := time.Date(2025, 11, 26, 0, 0, 0, 0, time.UTC)
	var forecast []Value
	for h := 0; h < 24; h++ {
		forecast = append(forecast, Value{
			ValidTime: day.Add(time.Duration(h) * time.Hour),
			Temp:      float64(h),
		})
	}

	curve, err := MinuteTemperatures(forecast, day)
	if err != nil {
		t.Fatalf("MinuteTemperatures() error = %v", err)
	}

	if curve[0] != 0 {
		t.Errorf("curve[0] = %v, want 0", curve[0])
	}
	if math.Abs(curve[12*60]-12) > 1e-9 {
		t.Errorf("curve at noon = %v, want 12", curve[12*60])
	}
}
