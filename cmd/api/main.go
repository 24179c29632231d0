package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	validator "github.com/go-playground/validator/v10"

	"github.com/stagecrew/backend-offers/internal/auth"
	"github.com/stagecrew/backend-offers/internal/cache"
	"github.com/stagecrew/backend-offers/internal/catalog"
	"github.com/stagecrew/backend-offers/internal/common"
	"github.com/stagecrew/backend-offers/internal/config"
	"github.com/stagecrew/backend-offers/internal/db"
	"github.com/stagecrew/backend-offers/internal/events"
	"github.com/stagecrew/backend-offers/internal/health"
	"github.com/stagecrew/backend-offers/internal/jobs"
	"github.com/stagecrew/backend-offers/internal/lock"
	"github.com/stagecrew/backend-offers/internal/obs"
	"github.com/stagecrew/backend-offers/internal/offer"
	"github.com/stagecrew/backend-offers/internal/ratelimit"
	"github.com/stagecrew/backend-offers/internal/reservation"
)

func main() {
	cfg := config.MustLoad()

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "stagecrew")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envOrDefault("OBS_ENABLE_TRACING", "true") == "true"
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "stagecrew-offers-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: 1.0,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if cfg.DBMaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.DBMaxConns)
	}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "stagecrew-offers-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task queue")
	}
	asynqClient := asynq.NewClient(asynqOpt)
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	jobClient := jobs.Client{A: asynqClient}

	bus := &events.Bus{
		Store:     &events.PGStore{Pool: pool},
		Scheduler: jobs.EventScheduler{Client: jobClient},
		Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}},
	}

	validate := validator.New()

	authService, err := auth.NewService(auth.Config{
		Store:          &auth.Store{Pool: pool},
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
		Issuer:         cfg.JWTIssuer,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := auth.Handler{Service: authService, Validate: validate}
	authMiddleware := auth.Middleware{Service: authService}

	catalogService := &catalog.Service{
		Store:  &catalog.Store{Pool: pool},
		Cache:  cache.NewJSONCache(redisClient, cfg.CatalogCacheTTL),
		Logger: logger,
	}
	catalogHandler := catalog.Handler{Service: catalogService, Validate: validate}

	offerService := &offer.Service{
		Store:   &offer.Store{Pool: pool},
		Presets: catalogService,
		Events:  bus,
		Cache:   cache.NewJSONCache(redisClient, cfg.OfferListCacheTTL),
		Logger:  logger,
	}
	offerHandler := offer.Handler{
		Service:     offerService,
		Validate:    validate,
		DefaultPage: cfg.OffersDefaultPage,
		MaxPerPage:  cfg.OffersMaxLimit,
	}

	reservationService := &reservation.Service{
		Store:   &reservation.Store{Pool: pool},
		Items:   catalogService,
		Locker:  lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff},
		LockTTL: cfg.LockTTL,
		Events:  bus,
		Jobs:    jobClient,
		Logger:  logger,
	}
	reservationHandler := reservation.Handler{Service: reservationService, Validate: validate}

	loginRate, err := limiter.NewRateFromFormatted(cfg.LoginRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse login rate limit")
	}
	loginStore, err := limiterredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "limiter:login"})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise login limiter store")
	}
	loginLimiter := limiterhttp.NewMiddleware(limiter.New(loginStore, loginRate))

	apiLimiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient},
		Config: ratelimit.Config{
			Key:    ratelimit.ClientIPKey("api"),
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	httpMetrics := obs.NewHTTPMetrics(metricsNamespace, nil, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	if envOrDefault("OBS_ENABLE_PPROF", "false") == "true" {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Probes: map[string]health.Probe{
			"db":    health.PoolProbe(pool),
			"redis": health.RedisProbe(redisClient),
		},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(apiLimiter.Middleware)
		v.Use(authMiddleware.Authenticate)

		authHandler.Routes(v, authMiddleware.RequireAuth, loginLimiter.Handler)

		v.Group(func(protected chi.Router) {
			protected.Use(authMiddleware.RequireAuth)
			protected.Use(idem.Middleware)
			catalogHandler.Routes(protected, authMiddleware.RequireRole(auth.RoleAdmin))
			offerHandler.Routes(protected, authMiddleware.RequireRole(auth.RoleSupervisor))
			reservationHandler.Routes(protected)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")
	ctxTimeout, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxTimeout); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
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

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
