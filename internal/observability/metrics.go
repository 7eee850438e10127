package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cyclone_watch"

// Metrics holds the Prometheus counters, histograms, and gauges for the monitor and its collaborators.
type Metrics struct {
	// Classification metrics.
	Classifications *prometheus.CounterVec // labels: tier, classifier
	ModelFallbacks  prometheus.Counter
	CurrentTier     prometheus.Gauge
	CurrentPressure prometheus.Gauge
	MonitorRunning  prometheus.Gauge

	// Weather lookup metrics.
	WeatherFetches     *prometheus.CounterVec // labels: outcome={success,fallback}
	WeatherCache       *prometheus.CounterVec // labels: result={hit,miss}
	WeatherAPIDuration prometheus.Histogram

	// Notification metrics.
	DispatchAttempts        *prometheus.CounterVec // labels: channel={call,sms}, account, outcome={success,error}
	SuppressedNotifications prometheus.Counter

	AssessmentsPublished prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Classifications,
		m.ModelFallbacks,
		m.CurrentTier,
		m.CurrentPressure,
		m.MonitorRunning,
		m.WeatherFetches,
		m.WeatherCache,
		m.WeatherAPIDuration,
		m.DispatchAttempts,
		m.SuppressedNotifications,
		m.AssessmentsPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Risk classifications by resulting tier and classifier.",
		}, []string{"tier", "classifier"}),
		ModelFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_fallbacks_total",
			Help:      "External model failures answered by the threshold table.",
		}),
		CurrentTier: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_risk_tier",
			Help:      "Most recent risk tier (0 safe, 1 depression, 2 storm, 3 cyclone).",
		}),
		CurrentPressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_pressure_hpa",
			Help:      "Most recent observed sea-level pressure in hPa.",
		}),
		MonitorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_running",
			Help:      "1 when the monitor loop is active, 0 when shut down.",
		}),
		WeatherFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fetches_total",
			Help:      "Weather lookups by outcome.",
		}, []string{"outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by result.",
		}, []string{"result"}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "OpenWeatherMap API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		DispatchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_attempts_total",
			Help:      "Notification attempts by channel, provider account and outcome.",
		}, []string{"channel", "account", "outcome"}),
		SuppressedNotifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suppressed_notifications_total",
			Help:      "Automatic notifications skipped because the incident window was already notified.",
		}),
		AssessmentsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_published_total",
			Help:      "Risk assessments written to the assessment topic.",
		}),
	}
}
