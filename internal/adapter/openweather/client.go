package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/cyclone-watch/internal/domain"
	"github.com/couchcryptid/cyclone-watch/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ErrMissingAPIKey is returned by Fetch when no API key is configured.
var ErrMissingAPIKey = errors.New("openweather API key not configured")

// Client fetches current conditions from the OpenWeatherMap API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client.
func NewClient(apiKey, baseURL string, timeout time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch returns the current pressure reading for a city.
func (c *Client) Fetch(ctx context.Context, city string) (domain.PressureReading, error) {
	if c.apiKey == "" {
		return domain.PressureReading{}, ErrMissingAPIKey
	}

	params := url.Values{
		"q":     {city},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	u := c.baseURL + "/data/2.5/weather?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.PressureReading{}, fmt.Errorf("create request: %w", err)
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.WeatherAPIDuration.Observe(c.clock.Since(start).Seconds())
	if err != nil {
		return domain.PressureReading{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.PressureReading{}, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	var wr response
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return domain.PressureReading{}, fmt.Errorf("decode response: %w", err)
	}
	if wr.Main.Pressure == nil {
		return domain.PressureReading{}, errors.New("response has no main.pressure")
	}
	if math.IsNaN(*wr.Main.Pressure) || math.IsInf(*wr.Main.Pressure, 0) {
		return domain.PressureReading{}, fmt.Errorf("pressure %v: %w", *wr.Main.Pressure, domain.ErrInvalidMeasurement)
	}

	reading := domain.PressureReading{
		Latitude:      wr.Coord.Lat,
		Longitude:     wr.Coord.Lon,
		PressureHPa:   *wr.Main.Pressure,
		LocationLabel: wr.Name,
		ObservedAt:    c.clock.Now().UTC(),
	}
	if wr.Dt > 0 {
		reading.ObservedAt = time.Unix(wr.Dt, 0).UTC()
	}
	if reading.LocationLabel == "" {
		reading.LocationLabel = city
	}
	if err := reading.Coordinate().Validate(); err != nil {
		return domain.PressureReading{}, err
	}

	c.logger.Debug("weather fetched", "city", city, "pressure_hpa", reading.PressureHPa)
	return reading, nil
}

// OpenWeatherMap current-weather response types.

type response struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main struct {
		Pressure *float64 `json:"pressure"`
	} `json:"main"`
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
}
