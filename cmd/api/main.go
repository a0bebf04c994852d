package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-finance/internal/audit"
	"github.com/noah-isme/toko-finance/internal/cache"
	"github.com/noah-isme/toko-finance/internal/catalog"
	"github.com/noah-isme/toko-finance/internal/config"
	"github.com/noah-isme/toko-finance/internal/db"
	"github.com/noah-isme/toko-finance/internal/finance"
	"github.com/noah-isme/toko-finance/internal/health"
	"github.com/noah-isme/toko-finance/internal/lock"
	"github.com/noah-isme/toko-finance/internal/obs"
	"github.com/noah-isme/toko-finance/internal/pricing"
	"github.com/noah-isme/toko-finance/internal/ratelimit"
	"github.com/noah-isme/toko-finance/internal/resilience"
	"github.com/noah-isme/toko-finance/internal/security"
)

const serviceName = "toko-finance"

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "toko")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	resilience.MustRegisterMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   serviceName,
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
			Version:       version,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if cfg.MigrateOnStart && cfg.DatabaseURL != "" {
		v, err := db.Migrate(cfg.DatabaseURL, db.Up)
		if err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Uint("version", v).Msg("migrations applied")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool = mustConnectDB(ctx, cfg.DatabaseURL, logger)
		defer pool.Close()
	}

	var redisClient redis.UniversalClient
	if cfg.RedisURL != "" {
		client := mustConnectRedis(ctx, cfg.RedisURL, metricsEnabled, logger)
		defer func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		redisClient = client
	}

	// settings store
	source, breaker, repo := settingsSource(cfg, pool, logger)
	var shared *finance.SharedSource
	if redisClient != nil {
		shared = &finance.SharedSource{
			Cache:  cache.NewJSON(redisClient, "finance:", cfg.Finance.SharedCacheTTL),
			Next:   source,
			Logger: &logger,
		}
		source = shared
	}
	store := finance.NewStore(finance.StoreConfig{
		Source:         source,
		SourceName:     cfg.Finance.Source,
		TTL:            cfg.Finance.TTL,
		FailureBackoff: cfg.Finance.FailureBackoff,
		FetchTimeout:   cfg.Finance.FetchTimeout,
		Logger:         &logger,
	})

	var broadcaster *finance.Broadcaster
	if redisClient != nil {
		broadcaster = finance.NewBroadcaster(redisClient, cfg.Finance.InvalidationChannel, &logger)
	}

	serviceCfg := finance.ServiceConfig{
		Store:       store,
		Broadcaster: broadcaster,
		Locker:      lock.Locker{R: redisClient, Prefix: "lock:", Wait: 5 * time.Second},
		Logger:      &logger,
	}
	if repo != nil {
		serviceCfg.Repo = repo
	}
	if shared != nil {
		serviceCfg.Shared = shared
	}
	financeSvc, err := finance.NewService(serviceCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("build finance service")
	}

	engine := pricing.NewEngine(store)
	if errs := engine.ValidateConfiguration(engine.Settings(ctx)); len(errs) > 0 {
		logger.Warn().Err(errs).Msg("effective financial settings are invalid")
	}

	pricingCfg := pricing.HandlerConfig{Engine: engine}
	if pool != nil {
		tiers, err := catalog.NewTierRepository(catalog.TierRepositoryConfig{
			DB:     pool,
			Cache:  cache.NewJSON(redisClient, "catalog:", envDuration("CATALOG_TIER_CACHE_TTL", 10*time.Minute)),
			Logger: &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("build tier repository")
		}
		pricingCfg.Tiers = tiers
	}
	pricingHandler := pricing.NewHandler(pricingCfg)
	financeHandler := finance.NewHandler(financeSvc)

	auditSvc := &audit.Service{Enabled: pool != nil && envBool("AUDIT_ENABLED", true), SamplingRate: 1}
	var auditStore audit.Store
	if pool != nil {
		auditStore = audit.PGStore{DB: pool}
		auditSvc.Store = auditStore
	}
	auditRecorder := audit.HTTPRecorder{
		Service: auditSvc,
		OnError: func(err error) { logger.Warn().Err(err).Msg("record audit log") },
	}

	limiterStore, err := ratelimit.NewStore(redisClient, ratelimit.DefaultPrefix)
	if err != nil {
		logger.Fatal().Err(err).Msg("build rate limit store")
	}
	limiter, err := ratelimit.NewFixed(limiterStore, cfg.RateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("build rate limiter")
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:          envBool("SECURE_HEADERS_ENABLED", true),
		EnableHSTS:      envBool("SECURE_HSTS_ENABLED", false),
		NoStorePrefixes: []string{"/api/v1/admin"},
	}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", audit.ActorHeader},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.NewHandler(readinessProbes(pool, redisClient, breaker)...)
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(ratelimit.Handler{
			Limiter: limiter,
			Config:  ratelimit.Config{Key: ratelimit.ByClientIP},
			OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
		}.Middleware)
		v.Use(security.BodyLimit{Max: int64(envInt("HTTP_MAX_BODY_BYTES", security.DefaultBodyLimit))}.Middleware)

		v.Route("/pricing", pricingHandler.Routes)
		v.Route("/admin/finance", func(a chi.Router) {
			financeHandler.Routes(a, auditRecorder.Middleware(audit.HTTPConfig{
				Action:       "finance.settings.update",
				ResourceType: "finance.settings",
				CaptureBody:  true,
			}))
			a.Get("/settings/history", audit.Handler{Store: auditStore, ResourceType: "finance.settings"}.List)
		})
	})

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if broadcaster != nil {
		go func() {
			if err := broadcaster.Listen(runCtx, store); err != nil {
				logger.Error().Err(err).Msg("settings invalidation listener stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("settings_source", cfg.Finance.Source).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-runCtx.Done():
		healthHandler.SetReady(false)
		logger.Info().Msg("shutting down")
		time.Sleep(envDuration("SHUTDOWN_DRAIN_DELAY", 0))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), envDuration("SHUTDOWN_TIMEOUT", 15*time.Second))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
}

// settingsSource picks the system of record named by FINANCE_SETTINGS_SOURCE.
// The breaker is non-nil only for the remote source; the saver only for Postgres.
func settingsSource(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (finance.Source, *resilience.Breaker, finance.Saver) {
	switch cfg.Finance.Source {
	case config.SourcePostgres:
		repo := finance.PGRepository{DB: pool}
		return repo, nil, repo
	case config.SourceHTTP:
		breaker := resilience.NewBreaker(resilience.BreakerConfig{
			Target:       "finance_settings",
			MinRequests:  cfg.Circuit.MinRequests,
			FailureRatio: cfg.Circuit.FailureRatio,
			OpenFor:      cfg.Circuit.OpenFor,
			Logger:       &logger,
		})
		client := resilience.HTTPClient{
			Client:      resilience.NewInstrumentedClient(cfg.Finance.FetchTimeout),
			Breaker:     breaker,
			BaseBackoff: cfg.Retry.Base,
			MaxAttempts: cfg.Retry.MaxAttempts,
			Jitter:      float64(cfg.Retry.JitterPercent) / 100,
		}
		header := http.Header{}
		if token := envOrDefault("FINANCE_SETTINGS_TOKEN", ""); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
		return finance.HTTPSource{URL: cfg.Finance.SettingsURL, Client: client, Header: header}, breaker, nil
	default:
		return finance.StaticSource(finance.DefaultSettings()), nil, nil
	}
}

func mustConnectDB(ctx context.Context, url string, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = serviceName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustConnectRedis(ctx context.Context, url string, metricsEnabled bool, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}

// readinessProbes fails readiness only on the database; Redis and the remote
// source degrade to local caches and defaults.
func readinessProbes(pool *pgxpool.Pool, client redis.UniversalClient, breaker *resilience.Breaker) []health.Probe {
	var probes []health.Probe
	if pool != nil {
		probes = append(probes, health.Probe{
			Name:     "postgres",
			Critical: true,
			Timeout:  envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
			Check:    pool.Ping,
		})
	}
	if client != nil {
		probes = append(probes, health.Probe{
			Name:    "redis",
			Timeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
			Check:   func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
	}
	if breaker != nil {
		probes = append(probes, health.Probe{
			Name: "settings_source",
			Check: func(context.Context) error {
				if breaker.State() == resilience.Open {
					return resilience.ErrOpenCircuit
				}
				return nil
			},
		})
	}
	return probes
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
