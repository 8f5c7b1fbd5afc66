// Package foxcloud talks to the FoxESS Open API to read live inverter data.
//
// See https://www.foxesscloud.com/public/i18n/en/OpenApiDocument.html
package foxcloud

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gostonefire/mygrid-scheduler/internal/config"
)

const defaultBaseURL = "https://www.foxesscloud.com"

const requestTimeout = 30 * time.Second

// Client is a FoxESS Open API client bound to one inverter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	inverterSN string

	// now is replaceable in tests to pin the signature timestamp.
	now func() time.Time
}

// New returns a Fox Cloud client for the configured inverter.
func New(cfg config.FoxESSConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    defaultBaseURL,
		apiKey:     cfg.APIKey,
		inverterSN: cfg.InverterSN,
		now:        time.Now,
	}
}

// SetBaseURL overrides the API endpoint, for tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

type realQueryRequest struct {
	Variables []string `json:"variables"`
	SNs       []string `json:"sns"`
}

type realTimeData struct {
	Variable string  `json:"variable"`
	Value    float64 `json:"value"`
}

type realTimeVariables struct {
	Datas []realTimeData `json:"datas"`
}

type realQueryResponse struct {
	Errno  int                 `json:"errno"`
	Msg    string              `json:"msg"`
	Result []realTimeVariables `json:"result"`
}

// CurrentSocSoh reads the current battery state of charge and state of
// health, both as rounded percentages.
func (c *Client) CurrentSocSoh(ctx context.Context) (soc, soh int, err error) {
	const path = "/op/v1/device/real/query"

	body, err := json.Marshal(realQueryRequest{
		Variables: []string{"SoC", "SOH"},
		SNs:       []string{c.inverterSN},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to serialize real query request: %w", err)
	}

	respBody, err := c.postRequest(ctx, path, body)
	if err != nil {
		return 0, 0, err
	}

	var result realQueryResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return 0, 0, fmt.Errorf("failed to parse real query response: %w", err)
	}
	if len(result.Result) == 0 {
		return 0, 0, fmt.Errorf("real query response carries no device data")
	}

	for _, data := range result.Result[0].Datas {
		switch data.Variable {
		case "SoC":
			soc = int(math.Round(data.Value))
		case "SOH":
			soh = int(math.Round(data.Value))
		}
	}

	return soc, soh, nil
}

// postRequest sends a signed POST to the Open API and returns the raw body
// after checking the errno envelope.
func (c *Client) postRequest(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build fox request: %w", err)
	}

	c.signRequest(req, path)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fox request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read fox response: %w", err)
	}

	var envelope struct {
		Errno int    `json:"errno"`
		Msg   string `json:"msg"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse fox response: %w", err)
	}
	if envelope.Errno != 0 {
		return nil, fmt.Errorf("fox request rejected: errno %d, msg %q", envelope.Errno, envelope.Msg)
	}

	return respBody, nil
}

// signRequest adds the Open API auth headers. The signature input joins
// path, key and millisecond timestamp with the literal four characters
// backslash-r-backslash-n, not an actual CRLF.
func (c *Client) signRequest(req *http.Request, path string) {
	timestamp := c.now().UnixMilli()
	ts := strconv.FormatInt(timestamp, 10)

	sum := md5.Sum([]byte(path + `\r\n` + c.apiKey + `\r\n` + ts))

	req.Header.Set("token", c.apiKey)
	req.Header.Set("timestamp", ts)
	req.Header.Set("signature", fmt.Sprintf("%x", sum))
	req.Header.Set("lang", "en")
}
