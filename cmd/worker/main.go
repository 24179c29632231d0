package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stagecrew/backend-offers/internal/cache"
	"github.com/stagecrew/backend-offers/internal/catalog"
	"github.com/stagecrew/backend-offers/internal/config"
	"github.com/stagecrew/backend-offers/internal/events"
	"github.com/stagecrew/backend-offers/internal/jobs"
	"github.com/stagecrew/backend-offers/internal/lock"
	"github.com/stagecrew/backend-offers/internal/obs"
	"github.com/stagecrew/backend-offers/internal/offer"
	"github.com/stagecrew/backend-offers/internal/reservation"
)

func main() {
	cfg := config.MustLoad()

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "stagecrew")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

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

	catalogService := &catalog.Service{
		Store:  &catalog.Store{Pool: pool},
		Cache:  cache.NewJSONCache(redisClient, cfg.CatalogCacheTTL),
		Logger: logger,
	}

	offerService := &offer.Service{
		Store:   &offer.Store{Pool: pool},
		Presets: catalogService,
		Events:  bus,
		Cache:   cache.NewJSONCache(redisClient, cfg.OfferListCacheTTL),
		Logger:  logger,
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

	srv := asynq.NewServer(asynqOpt, asynq.Config{
		Concurrency:     cfg.WorkerConcurrency,
		ShutdownTimeout: 15 * time.Second,
		Logger:          asynqLogger{logger},
	})

	mux := jobs.NewMux(jobs.Handlers{
		Offers:       offerService,
		Reservations: reservationService,
		Logger:       logger,
	})

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// asynqLogger adapts zerolog to the asynq logging interface.
type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...any) { a.l.Debug().Msgf("%v", args) }
func (a asynqLogger) Info(args ...any)  { a.l.Info().Msgf("%v", args) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn().Msgf("%v", args) }
func (a asynqLogger) Error(args ...any) { a.l.Error().Msgf("%v", args) }
func (a asynqLogger) Fatal(args ...any) { a.l.Fatal().Msgf("%v", args) }

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if cfg.DBMaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.DBMaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
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
