// Package monitor runs the periodic fetch, classify, publish and notify cycle
// for the monitored city and keeps the latest assessment for the API.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/cyclone-watch/internal/dispatch"
	"github.com/couchcryptid/cyclone-watch/internal/domain"
	"github.com/couchcryptid/cyclone-watch/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

// Publisher delivers assessments downstream.
type Publisher interface {
	Publish(ctx context.Context, a domain.Assessment) error
}

// Notifier sends SMS alerts to a contact.
type Notifier interface {
	Alert(ctx context.Context, n dispatch.Notification) (dispatch.Result, error)
}

// Config wires the monitor's optional collaborators. Publisher and Notifier
// may be nil; automatic notification also needs Guard and Contacts.
type Config struct {
	City     string
	Interval time.Duration
	Contacts []string

	Publisher Publisher
	Notifier  Notifier
	Guard     *dispatch.Guard
	Clock     clockwork.Clock

	// PublishAttempts and PublishBackoff bound retries of a failed publish.
	PublishAttempts int
	PublishBackoff  time.Duration
}

const (
	defaultPublishAttempts = 3
	defaultPublishBackoff  = 200 * time.Millisecond
	maxPublishBackoff      = 5 * time.Second
)

// Monitor orchestrates the refresh loop.
type Monitor struct {
	source     domain.WeatherSource
	classifier domain.Classifier
	cfg        Config
	logger     *slog.Logger
	metrics    *observability.Metrics

	ready  atomic.Bool
	latest atomic.Pointer[domain.Assessment]
}

// New creates a Monitor.
func New(source domain.WeatherSource, classifier domain.Classifier, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Monitor {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.PublishAttempts <= 0 {
		cfg.PublishAttempts = defaultPublishAttempts
	}
	if cfg.PublishBackoff <= 0 {
		cfg.PublishBackoff = defaultPublishBackoff
	}
	return &Monitor{
		source:     source,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once the first assessment has been produced.
func (m *Monitor) CheckReadiness(_ context.Context) error {
	if !m.ready.Load() {
		return errors.New("no risk assessment produced yet")
	}
	return nil
}

// Latest returns the most recent assessment, if any.
func (m *Monitor) Latest() (domain.Assessment, bool) {
	a := m.latest.Load()
	if a == nil {
		return domain.Assessment{}, false
	}
	return *a, true
}

// Run refreshes immediately and then every Interval until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started", "city", m.cfg.City, "interval", m.cfg.Interval, "classifier", m.classifier.Name())
	m.metrics.MonitorRunning.Set(1)
	defer m.metrics.MonitorRunning.Set(0)

	ticker := m.cfg.Clock.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := m.Refresh(ctx); err != nil && ctx.Err() == nil {
			m.logger.Error("refresh failed", "error", err)
		}

		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// Refresh runs one cycle. A classification error leaves the previous
// assessment in place; publish and notification failures are logged only.
func (m *Monitor) Refresh(ctx context.Context) (domain.Assessment, error) {
	reading := m.source.Current(ctx, m.cfg.City)

	tier, err := m.classifier.Classify(ctx, reading)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("classify %s reading: %w", reading.LocationLabel, err)
	}

	a := domain.NewAssessment(reading, tier, m.classifier.Name())
	m.latest.Store(&a)
	m.ready.Store(true)

	m.metrics.Classifications.WithLabelValues(tier.String(), a.Classifier).Inc()
	m.metrics.CurrentTier.Set(float64(tier))
	m.metrics.CurrentPressure.Set(reading.PressureHPa)
	m.logger.Info("risk assessed",
		"location", reading.LocationLabel,
		"pressure_hpa", reading.PressureHPa,
		"tier", tier,
		"fallback", reading.Fallback,
	)

	if m.cfg.Publisher != nil {
		if err := m.publish(ctx, a); err != nil {
			m.logger.Error("publish assessment failed", "id", a.ID, "error", err)
		}
	}
	m.autoNotify(ctx, a)

	return a, nil
}

func (m *Monitor) publish(ctx context.Context, a domain.Assessment) error {
	backoff := m.cfg.PublishBackoff
	var err error
	for attempt := 1; attempt <= m.cfg.PublishAttempts; attempt++ {
		if err = m.cfg.Publisher.Publish(ctx, a); err == nil {
			m.metrics.AssessmentsPublished.Inc()
			return nil
		}
		if attempt == m.cfg.PublishAttempts {
			break
		}
		m.logger.Warn("publish failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxPublishBackoff)
	}
	return err
}

// autoNotify alerts every configured contact when the tier is Storm or worse.
// A contact already alerted about this tier in the current incident window is
// skipped; a failed alert is retried on the next refresh.
func (m *Monitor) autoNotify(ctx context.Context, a domain.Assessment) {
	if !a.Tier.Alerting() || m.cfg.Notifier == nil || m.cfg.Guard == nil || len(m.cfg.Contacts) == 0 {
		return
	}

	now := m.cfg.Clock.Now()
	for _, contact := range m.cfg.Contacts {
		if m.cfg.Guard.Delivered(a.Tier, contact, now) {
			m.metrics.SuppressedNotifications.Inc()
			m.logger.Debug("contact already alerted in this incident window", "contact", contact, "tier", a.Tier)
			continue
		}

		n := dispatch.Notification{
			Contact:       contact,
			Tier:          a.Tier,
			LocationLabel: a.Reading.LocationLabel,
			PressureHPa:   a.Reading.PressureHPa,
		}
		if _, err := m.cfg.Notifier.Alert(ctx, n); err != nil {
			m.logger.Error("automatic alert failed", "contact", contact, "tier", a.Tier, "error", err)
			continue
		}
		m.cfg.Guard.Record(a.Tier, contact, now)
	}
}
