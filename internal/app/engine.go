// Package app wires configuration into a ready-to-use resolution engine.
// It is shared by the HTTP service and the one-shot CLI.
package app

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/trip-planner-service/internal/adapter/kafka"
	"github.com/couchcryptid/trip-planner-service/internal/adapter/mapbox"
	"github.com/couchcryptid/trip-planner-service/internal/adapter/nominatim"
	"github.com/couchcryptid/trip-planner-service/internal/adapter/ors"
	redisstore "github.com/couchcryptid/trip-planner-service/internal/adapter/redis"
	"github.com/couchcryptid/trip-planner-service/internal/config"
	"github.com/couchcryptid/trip-planner-service/internal/domain"
	"github.com/couchcryptid/trip-planner-service/internal/geocache"
	"github.com/couchcryptid/trip-planner-service/internal/observability"
	"github.com/couchcryptid/trip-planner-service/internal/resolver"
)

// Engine bundles the coordinator with the resources it owns.
type Engine struct {
	Cache       *geocache.Cache
	Coordinator *resolver.Coordinator

	closers []func() error
	logger  *slog.Logger
}

// NewEngine builds providers, the cache and the optional publisher from cfg,
// then loads the cache. Backends that cannot be reached degrade to an
// in-memory cache or no publication; NewEngine itself does not fail.
func NewEngine(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Engine {
	e := &Engine{logger: logger}

	primary := newPrimary(cfg, metrics, logger)
	fallback := newFallback(cfg, metrics, logger)
	if primary != nil {
		metrics.GeocodeEnabled.Set(1)
	} else {
		metrics.GeocodeEnabled.Set(0)
	}

	e.Cache = e.newCache(ctx, cfg, logger)
	e.Cache.Load(ctx)

	chain := resolver.NewChain(primary, fallback, domain.NewPlausibilityFilter(cfg.PlausibilityRadiusKm), cfg.ProviderTimeout, metrics, logger)
	focus := resolver.NewFocusResolver(primary, cfg.ProviderTimeout, logger)

	opts := []resolver.Option{resolver.WithMaxWorkers(cfg.MaxWorkers)}
	if cfg.KafkaEnabled {
		pub := kafka.NewPublisher(cfg, logger)
		e.closers = append(e.closers, pub.Close)
		opts = append(opts, resolver.WithPublisher(pub), resolver.WithPublishTimeout(cfg.ProviderTimeout))
		logger.Info("resolution publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	e.Coordinator = resolver.NewCoordinator(e.Cache, focus, chain, metrics, logger, opts...)
	return e
}

// Close waits for background publishes, flushes the cache and releases
// connections.
func (e *Engine) Close(ctx context.Context) {
	e.Coordinator.Wait()
	if err := e.Cache.Flush(ctx); err != nil {
		e.logger.Error("final cache flush failed", "error", err)
	}
	for _, closeFn := range e.closers {
		if err := closeFn(); err != nil {
			e.logger.Error("close failed", "error", err)
		}
	}
}

// newPrimary returns nil when no ORS key is configured; every place then
// resolves to absent.
func newPrimary(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Provider {
	if !cfg.GeocodingEnabled() {
		logger.Warn("ORS_API_KEY not set, geocoding disabled")
		return nil
	}
	logger.Info("primary geocoder enabled", "provider", "ors", "result_size", cfg.ORSResultSize, "timeout", cfg.ProviderTimeout)
	return ors.NewClient(ors.Options{
		APIKey:  cfg.ORSAPIKey,
		BaseURL: cfg.ORSBaseURL,
		Size:    cfg.ORSResultSize,
		Timeout: cfg.ProviderTimeout,
		RPS:     cfg.ORSRPS,
	}, metrics, logger)
}

func newFallback(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Provider {
	switch cfg.FallbackProvider {
	case config.FallbackNominatim:
		logger.Info("fallback geocoder enabled", "provider", "nominatim", "rps", cfg.NominatimRPS)
		return nominatim.NewClient(cfg.NominatimBaseURL, cfg.NominatimUserAgent, cfg.NominatimRPS, cfg.ProviderTimeout, metrics, logger)
	case config.FallbackMapbox:
		logger.Info("fallback geocoder enabled", "provider", "mapbox")
		return mapbox.NewClient(cfg.MapboxToken, cfg.ProviderTimeout, metrics, logger)
	default:
		logger.Info("fallback geocoder disabled")
		return nil
	}
}

func (e *Engine) newCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) *geocache.Cache {
	switch cfg.CacheBackend {
	case config.CacheBackendFile:
		logger.Info("geocode cache backend", "backend", "file", "path", cfg.CachePath)
		return geocache.New(geocache.NewFileStore(cfg.CachePath), logger)
	case config.CacheBackendRedis:
		store, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisKey)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory geocode cache", "addr", cfg.RedisAddr, "error", err)
			return geocache.NewMemory(logger)
		}
		e.closers = append(e.closers, store.Close)
		logger.Info("geocode cache backend", "backend", "redis", "addr", cfg.RedisAddr, "key", cfg.RedisKey)
		return geocache.New(store, logger)
	default:
		logger.Info("geocode cache backend", "backend", "memory")
		return geocache.NewMemory(logger)
	}
}
