package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Fallback provider choices.
const (
	FallbackNominatim = "nominatim"
	FallbackMapbox    = "mapbox"
	FallbackNone      = "none"
)

// Cache backend choices.
const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
	CacheBackendNone  = "none"
)

// maxProviderTimeout keeps a single slow provider from stalling a batch.
const maxProviderTimeout = 10 * time.Second

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// OpenRouteService primary provider. An empty key disables geocoding.
	ORSAPIKey     string
	ORSBaseURL    string
	ORSResultSize int
	ORSRPS        float64

	// Free-text fallback provider.
	FallbackProvider   string
	NominatimBaseURL   string
	NominatimUserAgent string
	NominatimRPS       float64
	MapboxToken        string

	// Resolution engine tuning.
	ProviderTimeout      time.Duration
	PlausibilityRadiusKm float64
	MaxWorkers           int

	// Geocode cache persistence.
	CacheBackend string
	CachePath    string
	RedisAddr    string
	RedisKey     string

	// Optional Kafka publication of new resolutions.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// GeocodingEnabled reports whether a primary provider is configured.
func (c *Config) GeocodingEnabled() bool {
	return c.ORSAPIKey != ""
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	providerTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("PROVIDER_TIMEOUT", "5s"))
	if err != nil || providerTimeout <= 0 || providerTimeout >= maxProviderTimeout {
		return nil, errors.New("invalid PROVIDER_TIMEOUT: must be a duration between 0 and 10s")
	}

	resultSize, err := parsePositiveInt("ORS_RESULT_SIZE", 5)
	if err != nil {
		return nil, err
	}
	maxWorkers, err := parsePositiveInt("GEOCODE_MAX_WORKERS", 8)
	if err != nil {
		return nil, err
	}
	radius, err := parsePositiveFloat("PLAUSIBILITY_RADIUS_KM", 200)
	if err != nil {
		return nil, err
	}
	orsRPS, err := parseNonNegativeFloat("ORS_RPS", 0)
	if err != nil {
		return nil, err
	}
	nominatimRPS, err := parseNonNegativeFloat("NOMINATIM_RPS", 1)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ORSAPIKey:     os.Getenv("ORS_API_KEY"),
		ORSBaseURL:    sharedcfg.EnvOrDefault("ORS_BASE_URL", "https://api.openrouteservice.org"),
		ORSResultSize: resultSize,
		ORSRPS:        orsRPS,

		FallbackProvider:   strings.ToLower(sharedcfg.EnvOrDefault("FALLBACK_PROVIDER", FallbackNominatim)),
		NominatimBaseURL:   sharedcfg.EnvOrDefault("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent: sharedcfg.EnvOrDefault("NOMINATIM_USER_AGENT", "trip-planner-service"),
		NominatimRPS:       nominatimRPS,
		MapboxToken:        os.Getenv("MAPBOX_TOKEN"),

		ProviderTimeout:      providerTimeout,
		PlausibilityRadiusKm: radius,
		MaxWorkers:           maxWorkers,

		CacheBackend: strings.ToLower(sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheBackendFile)),
		CachePath:    sharedcfg.EnvOrDefault("CACHE_PATH", "data/geocode_cache.json"),
		RedisAddr:    sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisKey:     sharedcfg.EnvOrDefault("REDIS_KEY", "trip-planner:geocode"),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "geocode-resolutions"),
	}

	switch cfg.FallbackProvider {
	case FallbackNominatim, FallbackNone:
	case FallbackMapbox:
		if cfg.MapboxToken == "" {
			return nil, errors.New("FALLBACK_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	default:
		return nil, fmt.Errorf("invalid FALLBACK_PROVIDER %q", cfg.FallbackProvider)
	}

	switch cfg.CacheBackend {
	case CacheBackendFile:
		if cfg.CachePath == "" {
			return nil, errors.New("CACHE_PATH is required for the file cache backend")
		}
	case CacheBackendRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("REDIS_ADDR is required for the redis cache backend")
		}
	case CacheBackendNone:
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q", cfg.CacheBackend)
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", key)
	}
	return f, nil
}

func parseNonNegativeFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid %s: must be zero or a positive number", key)
	}
	return f, nil
}
