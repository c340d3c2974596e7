// Package weather fetches city temperatures from an OpenWeatherMap-style provider.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"weather_balance/internal/logger"
	"weather_balance/internal/metrics"
	"weather_balance/internal/models"
)

// FallbackTemperatures is sampled uniformly when live data is unavailable.
// 1 appears twice, so it is picked with probability 2/5.
var FallbackTemperatures = []float64{1, 23, 32, 1, 7}

// DefaultBaseURL is the provider endpoint queried with ?q=<city>&appid=<key>.
const DefaultBaseURL = "http://api.openweathermap.org/data/2.5/weather"

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 1 << 20

var (
	errStatus      = errors.New("unexpected provider status")
	errNoEntries   = errors.New("provider response has no entries")
	errTempMissing = errors.New("temperature not found in first entry")
)

// Fetcher resolves a temperature for a city. Implementations never fail; they fall back instead.
type Fetcher interface {
	FetchTemperature(ctx context.Context, city string) models.TemperatureReading
}

// Client queries the provider over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  func() string
	timeout time.Duration
	pick    func(n int) int
	log     *logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithPicker replaces the random index source used for fallbacks.
func WithPicker(pick func(n int) int) Option {
	return func(cl *Client) { cl.pick = pick }
}

// NewClient builds a provider client. apiKey is called on every fetch so a rotated key is picked up.
func NewClient(baseURL string, apiKey func() string, timeout time.Duration, log *logger.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if apiKey == nil {
		apiKey = func() string { return "" }
	}
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		http:    &http.Client{},
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
		pick:    rand.Intn,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Fetcher = (*Client)(nil)

// providerResponse is the subset of the provider payload we read: list[0].main.temp.
type providerResponse struct {
	List []struct {
		Main struct {
			Temp *float64 `json:"temp"`
		} `json:"main"`
	} `json:"list"`
}

// FetchTemperature returns the provider temperature for city, or a fallback value on any failure.
func (c *Client) FetchTemperature(ctx context.Context, city string) models.TemperatureReading {
	start := time.Now()

	temp, err := c.fetch(ctx, city)
	if err != nil {
		c.log.Errorw("weather_fetch_failed", "city", city, "err", err)
		reading := models.TemperatureReading{Value: c.fallback(), Source: models.SourceFallback}
		metrics.ObserveFetch(reading.Source, time.Since(start))
		return reading
	}

	metrics.ObserveFetch(models.SourceLive, time.Since(start))
	return models.TemperatureReading{Value: temp, Source: models.SourceLive}
}

func (c *Client) fetch(ctx context.Context, city string) (float64, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(city), nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %d", errStatus, resp.StatusCode)
	}

	return parseTemperature(io.LimitReader(resp.Body, maxBodyBytes))
}

func (c *Client) requestURL(city string) string {
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey())
	return c.baseURL + "?" + q.Encode()
}

func (c *Client) fallback() float64 {
	return FallbackTemperatures[c.pick(len(FallbackTemperatures))]
}

// parseTemperature extracts list[0].main.temp.
func parseTemperature(r io.Reader) (float64, error) {
	var body providerResponse
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode provider response: %w", err)
	}
	if len(body.List) == 0 {
		return 0, errNoEntries
	}
	if body.List[0].Main.Temp == nil {
		return 0, errTempMissing
	}
	return *body.List[0].Main.Temp, nil
}
