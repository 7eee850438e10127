package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Monitored city and the reading substituted when the weather API fails.
	TargetCity         string
	DefaultLat         float64
	DefaultLon         float64
	DefaultPressureHPa float64
	RefreshInterval    time.Duration

	// OpenWeatherMap configuration.
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	OpenWeatherTimeout time.Duration
	WeatherCacheTTL    time.Duration

	// Optional external model artifact; empty means threshold table only.
	ModelPath string

	// Shelter registry generation.
	ShelterCacheTTL   time.Duration
	ShelterSatellites int
	ShelterRadiusKm   float64
	ShelterSeed       uint64

	// Notification dispatch.
	DispatchEnabled    bool
	ProviderAccounts   []ProviderAccount
	VoiceAudioURLs     map[string]string
	AutoNotifyContacts []string
	IncidentWindow     time.Duration

	// Assessment publishing.
	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaAssessmentTopic string
}

// ProviderAccount is one set of communications-provider credentials.
// Accounts are tried in the order they appear in Config.ProviderAccounts.
type ProviderAccount struct {
	Name       string
	AccountSID string
	AuthToken  string
	From       string
}

func (a ProviderAccount) complete() bool {
	return a.AccountSID != "" && a.AuthToken != "" && a.From != ""
}

func (a ProviderAccount) empty() bool {
	return a.AccountSID == "" && a.AuthToken == "" && a.From == ""
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:             sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:             sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:      shutdownTimeout,
		TargetCity:           sharedcfg.EnvOrDefault("TARGET_CITY", "Visakhapatnam"),
		OpenWeatherAPIKey:    os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL:   sharedcfg.EnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
		ModelPath:            os.Getenv("MODEL_PATH"),
		KafkaEnabled:         os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAssessmentTopic: sharedcfg.EnvOrDefault("KAFKA_ASSESSMENT_TOPIC", "cyclone-risk-assessments"),
	}
	for _, d := range []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"REFRESH_INTERVAL", "1m", &cfg.RefreshInterval},
		{"OPENWEATHER_TIMEOUT", "5s", &cfg.OpenWeatherTimeout},
		{"WEATHER_CACHE_TTL", "5m", &cfg.WeatherCacheTTL},
		{"SHELTER_CACHE_TTL", "1h", &cfg.ShelterCacheTTL},
		{"INCIDENT_WINDOW", "6h", &cfg.IncidentWindow},
	} {
		if *d.dst, err = parsePositiveDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	if cfg.DefaultLat, err = parseFloat("DEFAULT_LAT", 17.6868); err != nil {
		return nil, err
	}
	if cfg.DefaultLon, err = parseFloat("DEFAULT_LON", 83.2185); err != nil {
		return nil, err
	}
	if cfg.DefaultPressureHPa, err = parseFloat("DEFAULT_PRESSURE_HPA", 1012); err != nil {
		return nil, err
	}
	if cfg.ShelterRadiusKm, err = parseFloat("SHELTER_RADIUS_KM", 2); err != nil {
		return nil, err
	}
	if cfg.ShelterSatellites, err = parseNonNegativeInt("SHELTER_SATELLITES", 5); err != nil {
		return nil, err
	}
	if cfg.ShelterSeed, err = parseSeed(); err != nil {
		return nil, err
	}
	if cfg.VoiceAudioURLs, err = parseVoiceAudioURLs(os.Getenv("VOICE_AUDIO_URLS")); err != nil {
		return nil, err
	}
	cfg.AutoNotifyContacts = splitList(os.Getenv("AUTO_NOTIFY_CONTACTS"))

	primary := providerAccountFromEnv("primary", "TWILIO_PRIMARY")
	backup := providerAccountFromEnv("backup", "TWILIO_BACKUP")

	cfg.DispatchEnabled = primary.AccountSID != ""
	if v := os.Getenv("DISPATCH_ENABLED"); v != "" {
		cfg.DispatchEnabled = v == "true"
	}

	if cfg.DefaultLat < -90 || cfg.DefaultLat > 90 {
		return nil, errors.New("invalid DEFAULT_LAT: must be within [-90, 90]")
	}
	if cfg.DefaultLon < -180 || cfg.DefaultLon > 180 {
		return nil, errors.New("invalid DEFAULT_LON: must be within [-180, 180]")
	}
	if cfg.ShelterRadiusKm <= 0 {
		return nil, errors.New("invalid SHELTER_RADIUS_KM: must be positive")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}

	if cfg.DispatchEnabled {
		if !primary.complete() {
			return nil, errors.New("DISPATCH_ENABLED is true but TWILIO_PRIMARY_ACCOUNT_SID, TWILIO_PRIMARY_AUTH_TOKEN and TWILIO_PRIMARY_FROM are not all set")
		}
		cfg.ProviderAccounts = append(cfg.ProviderAccounts, primary)
		switch {
		case backup.complete():
			cfg.ProviderAccounts = append(cfg.ProviderAccounts, backup)
		case !backup.empty():
			return nil, errors.New("TWILIO_BACKUP_ACCOUNT_SID, TWILIO_BACKUP_AUTH_TOKEN and TWILIO_BACKUP_FROM must be set together")
		}
	}

	return cfg, nil
}

func providerAccountFromEnv(name, prefix string) ProviderAccount {
	return ProviderAccount{
		Name:       name,
		AccountSID: os.Getenv(prefix + "_ACCOUNT_SID"),
		AuthToken:  os.Getenv(prefix + "_AUTH_TOKEN"),
		From:       os.Getenv(prefix + "_FROM"),
	}
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s: must be a finite number", key)
	}
	return v, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", key)
	}
	return n, nil
}

func parseSeed() (uint64, error) {
	s := os.Getenv("SHELTER_SEED")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.New("invalid SHELTER_SEED: must be an unsigned integer")
	}
	return n, nil
}

// parseVoiceAudioURLs parses "name=url,name=url" into a map keyed by lowercase name.
func parseVoiceAudioURLs(value string) (map[string]string, error) {
	voices := make(map[string]string)
	for _, pair := range splitList(value) {
		name, url, ok := strings.Cut(pair, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		url = strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("invalid VOICE_AUDIO_URLS entry %q: want name=url", pair)
		}
		voices[name] = url
	}
	return voices, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
