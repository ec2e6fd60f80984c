package main

import (
	"net/http"

	"github.com/mozilla/classify-client/internal/config"
	"github.com/mozilla/classify-client/internal/handler"
	"github.com/mozilla/classify-client/internal/keys"
	"github.com/mozilla/classify-client/internal/limiter"
	"github.com/mozilla/classify-client/internal/logger"
	"github.com/mozilla/classify-client/internal/metrics"
	"github.com/mozilla/classify-client/internal/router"
	"github.com/mozilla/classify-client/internal/service"
	"github.com/mozilla/classify-client/internal/store"
	"github.com/mozilla/classify-client/internal/trust"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().Fatal().Err(err).Msg("Invalid configuration")
	}

	appLogger := setupLogger(cfg)
	trustSet := setupTrustSet(cfg, appLogger)

	dataStore := setupDataStore(cfg, appLogger)
	defer dataStore.Close()

	registry := setupKeys(cfg, appLogger)

	rateLimiter := setupRateLimiter(cfg, appLogger)
	defer rateLimiter.Close()

	metricsCollector := metrics.New()

	classifier := service.NewClassifier(dataStore, trustSet, metricsCollector, appLogger)
	handlers := handler.New(classifier, registry, metricsCollector, appLogger, cfg.VersionFile)
	appRouter := router.SetupRouter(handlers, rateLimiter, trustSet, metricsCollector, appLogger)

	startServer(cfg, appRouter, appLogger)
}

// setupLogger initializes the structured logger
func setupLogger(cfg *config.Config) *logger.Logger {
	appLogger := logger.New(logger.Config{
		Level: cfg.LogLevel,
		Human: cfg.HumanLogs,
	})

	appLogger.Info().
		Str("addr", cfg.Addr()).
		Str("geodb_type", cfg.GeoDBType).
		Str("geodb_path", cfg.GeoDBPath).
		Int("trusted_proxies", len(cfg.TrustedProxies)).
		Str("rate_limiter_type", cfg.RateLimiterType).
		Int("rate_limit", cfg.RateLimit).
		Int("rate_limit_window", cfg.RateLimitWindow).
		Msg("Configuration loaded")

	return appLogger
}

// setupTrustSet parses the trusted proxy ranges. A malformed range is fatal:
// starting with a partial trust set would silently misattribute clients.
func setupTrustSet(cfg *config.Config, log *logger.Logger) *trust.TrustSet {
	trustSet, err := trust.NewTrustSet(cfg.TrustedProxies)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse trusted proxy ranges")
	}

	log.Info().Int("ranges", trustSet.Len()).Msg("Trusted proxy ranges loaded")
	return trustSet
}

// setupDataStore initializes the geolocation store based on configuration
func setupDataStore(cfg *config.Config, log *logger.Logger) store.Store {
	var dataStore store.Store
	var err error

	switch cfg.GeoDBType {
	case "mmdb":
		dataStore, err = store.NewMMDBStore(cfg.GeoDBPath)
	case "csv":
		dataStore, err = store.NewCSVStore(cfg.GeoDBPath)
	case "mysql":
		dataStore, err = store.NewMySQLStore(cfg.MySQLDSN)
	case "redis":
		dataStore, err = store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		log.Fatal().Str("type", cfg.GeoDBType).Msg("Unknown geolocation store type")
	}

	if err != nil {
		log.Fatal().Err(err).Str("type", cfg.GeoDBType).Msg("Failed to initialize geolocation store")
	}

	log.Info().Str("type", cfg.GeoDBType).Msg("Geolocation store initialized")
	return dataStore
}

// setupKeys loads the API key list gating the country endpoint
func setupKeys(cfg *config.Config, log *logger.Logger) *keys.Registry {
	registry, err := keys.Load(cfg.APIKeysFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.APIKeysFile).Msg("Failed to load API keys")
	}

	log.Info().Int("keys", registry.Len()).Msg("API keys loaded")
	return registry
}

// setupRateLimiter initializes the rate limiter
func setupRateLimiter(cfg *config.Config, log *logger.Logger) limiter.Limiter {
	effectiveRate := float64(cfg.RateLimit) / float64(cfg.RateLimitWindow)

	rateLimiter, err := limiter.NewLimiter(limiter.LimiterConfig{
		Type:              cfg.RateLimiterType,
		RequestsPerSecond: effectiveRate,
		RedisAddr:         cfg.RedisAddr,
		RedisPassword:     cfg.RedisPassword,
		RedisDB:           cfg.RedisDB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rate limiter")
	}

	log.Info().
		Str("type", cfg.RateLimiterType).
		Float64("requests_per_second", effectiveRate).
		Msg("Rate limiter initialized")

	return rateLimiter
}

// startServer starts the HTTP server and blocks
func startServer(cfg *config.Config, appRouter http.Handler, log *logger.Logger) {
	log.Info().Str("addr", cfg.Addr()).Msg("Server is running")
	log.Fatal().Err(http.ListenAndServe(cfg.Addr(), appRouter)).Msg("Server failed")
}
