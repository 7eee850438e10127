package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/cyclone-watch/internal/adapter/api"
	"github.com/couchcryptid/cyclone-watch/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/cyclone-watch/internal/adapter/kafka"
	"github.com/couchcryptid/cyclone-watch/internal/adapter/openweather"
	"github.com/couchcryptid/cyclone-watch/internal/adapter/twilio"
	"github.com/couchcryptid/cyclone-watch/internal/config"
	"github.com/couchcryptid/cyclone-watch/internal/dispatch"
	"github.com/couchcryptid/cyclone-watch/internal/domain"
	"github.com/couchcryptid/cyclone-watch/internal/monitor"
	"github.com/couchcryptid/cyclone-watch/internal/observability"
	"github.com/couchcryptid/cyclone-watch/internal/registry"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()
	centre := domain.Coordinate{Latitude: cfg.DefaultLat, Longitude: cfg.DefaultLon}

	if cfg.OpenWeatherAPIKey == "" {
		logger.Warn("OPENWEATHER_API_KEY not set, every reading will be the simulated default")
	}
	weatherClient := openweather.NewClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.OpenWeatherTimeout, clock, metrics, logger)
	weather := openweather.NewCachedSource(weatherClient, centre, cfg.DefaultPressureHPa, cfg.WeatherCacheTTL, clock, metrics, logger)

	classifier := domain.NewClassifier(cfg.ModelPath, logger, func(error) {
		metrics.ModelFallbacks.Inc()
	})

	shelters := registry.NewCache(registry.BuildOptions{
		Hubs:       registry.VizagHubs,
		Satellites: cfg.ShelterSatellites,
		RadiusKm:   cfg.ShelterRadiusKm,
		Seed:       cfg.ShelterSeed,
	}, cfg.ShelterCacheTTL, clock, logger)

	monitorCfg := monitor.Config{
		City:     cfg.TargetCity,
		Interval: cfg.RefreshInterval,
		Clock:    clock,
	}

	// Left as an untyped nil, it disables the dispatch routes.
	var dispatcher api.Dispatcher
	if cfg.DispatchEnabled {
		d := dispatch.New(twilio.Accounts(cfg.ProviderAccounts), cfg.VoiceAudioURLs, clock, metrics, logger)
		dispatcher = d
		monitorCfg.Notifier = d
		monitorCfg.Guard = dispatch.NewGuard(cfg.IncidentWindow)
		monitorCfg.Contacts = cfg.AutoNotifyContacts
		logger.Info("notification dispatch enabled",
			"accounts", len(cfg.ProviderAccounts),
			"voices", d.Voices(),
			"auto_notify_contacts", len(cfg.AutoNotifyContacts),
		)
	} else {
		logger.Info("notification dispatch disabled")
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		monitorCfg.Publisher = writer
		logger.Info("assessment publishing enabled", "topic", cfg.KafkaAssessmentTopic, "brokers", cfg.KafkaBrokers)
	}

	m := monitor.New(weather, classifier, monitorCfg, logger, metrics)

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(m, classifier, shelters, dispatcher, centre, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, m, handler.Router(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := m.Run(ctx); err != nil {
			logger.Error("monitor error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
