package openweather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/cyclone-watch/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey        = "owm-test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var testNow = time.Date(2025, time.October, 21, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string) *Client {
	return &Client{
		apiKey:     testAPIKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		clock:      clockwork.NewFakeClockAt(testNow),
		metrics:    observability.NewMetricsForTesting(),
		logger:     discardLogger(),
	}
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "Visakhapatnam", r.URL.Query().Get("q"))
		assert.Equal(t, testAPIKey, r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{
			"coord": {"lon": 83.2167, "lat": 17.6833},
			"main": {"temp": 29.4, "pressure": 1004, "humidity": 79},
			"dt": 1761039000,
			"name": "Visakhapatnam"
		}`))
	}))
	defer srv.Close()

	reading, err := testClient(srv.URL).Fetch(context.Background(), "Visakhapatnam")
	require.NoError(t, err)

	assert.InDelta(t, 17.6833, reading.Latitude, 1e-9)
	assert.InDelta(t, 83.2167, reading.Longitude, 1e-9)
	assert.InDelta(t, 1004.0, reading.PressureHPa, 1e-9)
	assert.Equal(t, "Visakhapatnam", reading.LocationLabel)
	assert.False(t, reading.Fallback)
	assert.Equal(t, time.Unix(1761039000, 0).UTC(), reading.ObservedAt)
}

func TestClient_Fetch_MissingNameUsesCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"coord": {"lon": 80.27, "lat": 13.08}, "main": {"pressure": 998}}`))
	}))
	defer srv.Close()

	reading, err := testClient(srv.URL).Fetch(context.Background(), "Chennai")
	require.NoError(t, err)
	assert.Equal(t, "Chennai", reading.LocationLabel)
	assert.Equal(t, testNow, reading.ObservedAt, "missing dt falls back to the client clock")
}

func TestClient_Fetch_Errors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"cod":401,"message":"Invalid API key"}`, "401"},
		{"city not found", http.StatusNotFound, `{"cod":"404","message":"city not found"}`, "404"},
		{"bad json", http.StatusOK, `{"coord":`, "decode response"},
		{"no pressure", http.StatusOK, `{"coord":{"lat":17.6,"lon":83.2},"main":{}}`, "main.pressure"},
		{"bad coordinate", http.StatusOK, `{"coord":{"lat":117.6,"lon":83.2},"main":{"pressure":1000}}`, "invalid coordinate"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).Fetch(context.Background(), "Visakhapatnam")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestClient_Fetch_MissingAPIKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.apiKey = ""

	_, err := c.Fetch(context.Background(), "Visakhapatnam")
	require.ErrorIs(t, err, ErrMissingAPIKey)
	assert.False(t, called, "no request without a key")
}

func TestClient_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.Fetch(context.Background(), "Visakhapatnam")
	require.Error(t, err)
}

func TestNewClient(t *testing.T) {
	c := NewClient(testAPIKey, "https://api.openweathermap.org", 3*time.Second, clockwork.NewRealClock(), observability.NewMetricsForTesting(), discardLogger())
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
	assert.Equal(t, "https://api.openweathermap.org", c.baseURL)
}
