package openweather

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/cyclone-watch/internal/domain"
	"github.com/couchcryptid/cyclone-watch/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Fetcher performs one upstream weather lookup.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (domain.PressureReading, error)
}

// CachedSource implements domain.WeatherSource on top of a Fetcher. Successful
// readings are cached per city for the TTL; failures yield the fallback
// reading, which is never cached so the next refresh retries upstream.
type CachedSource struct {
	inner    Fetcher
	fallback func() domain.PressureReading
	ttl      time.Duration
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]entry
}

var _ domain.WeatherSource = (*CachedSource)(nil)

type entry struct {
	reading domain.PressureReading
	expires time.Time
}

// NewCachedSource wraps a fetcher with a TTL cache and fallback handling.
func NewCachedSource(inner Fetcher, fallback domain.Coordinate, fallbackPressure float64, ttl time.Duration,
	clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger,
) *CachedSource {
	return &CachedSource{
		inner: inner,
		fallback: func() domain.PressureReading {
			return domain.FallbackReading(fallback, fallbackPressure)
		},
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
		entries: make(map[string]entry),
	}
}

// Current returns the cached reading for city, refreshing it when stale.
func (s *CachedSource) Current(ctx context.Context, city string) domain.PressureReading {
	if r, ok := s.get(city); ok {
		s.metrics.WeatherCache.WithLabelValues("hit").Inc()
		return r
	}
	s.metrics.WeatherCache.WithLabelValues("miss").Inc()

	r, err := s.inner.Fetch(ctx, city)
	if err != nil {
		s.metrics.WeatherFetches.WithLabelValues("fallback").Inc()
		s.logger.Warn("weather lookup failed, using fallback reading", "city", city, "error", err)
		return s.fallback()
	}
	s.metrics.WeatherFetches.WithLabelValues("success").Inc()
	s.put(city, r)
	return r
}

func (s *CachedSource) get(city string) (domain.PressureReading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[city]
	if !ok {
		return domain.PressureReading{}, false
	}
	if !s.clock.Now().Before(e.expires) {
		delete(s.entries, city)
		return domain.PressureReading{}, false
	}
	return e.reading, true
}

func (s *CachedSource) put(city string, r domain.PressureReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[city] = entry{reading: r, expires: s.clock.Now().Add(s.ttl)}
}
