package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"swapshelf/internal/cache"
	"swapshelf/internal/classifier"
	"swapshelf/internal/config"
	"swapshelf/internal/database"
	"swapshelf/internal/handlers"
	"swapshelf/internal/ingest"
	"swapshelf/internal/jobs"
	"swapshelf/internal/log"
	"swapshelf/internal/media/normalize"
	"swapshelf/internal/moderation"
	"swapshelf/internal/queue"
	"swapshelf/internal/repository"
	"swapshelf/internal/server"
	"swapshelf/internal/service"
	"swapshelf/internal/storage"
)

// memoryDSN selects the in-process store, for local development only.
const memoryDSN = "memory"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "")

	ctx := context.Background()

	var (
		store  repository.Store
		dbPool *pgxpool.Pool
		checks []handlers.HealthCheck
	)
	if cfg.Postgres.DSN == memoryDSN {
		logger.Warn().Msg("using in-memory store; data is lost on exit")
		store = repository.NewMemory()
	} else {
		dbPool, err = database.Open(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect postgres")
		}
		store = repository.NewPostgres(dbPool)
		checks = append(checks, handlers.HealthCheck{Name: "database", Check: dbPool.Ping})
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	checks = append(checks, handlers.HealthCheck{Name: "cache", Check: func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}})

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}
	checks = append(checks, handlers.HealthCheck{Name: "storage", Check: objectStore.Ping})

	nsfw := classifier.NewONNXClassifier(classifier.ONNXOptions{
		ModelPath:         cfg.Moderation.ModelPath,
		SharedLibraryPath: cfg.Moderation.SharedLibraryPath,
		InputName:         cfg.Moderation.InputName,
		OutputName:        cfg.Moderation.OutputName,
		InputSize:         cfg.Moderation.InputSize,
		Labels:            cfg.Moderation.Labels,
		ApplySoftmax:      cfg.Moderation.ApplySoftmax,
	}, logger)

	pipeline := ingest.NewPipeline(
		nsfw,
		normalize.New(normalize.Options{
			MaxDimension: cfg.Ingest.MaxDimension,
			JPEGQuality:  cfg.Ingest.JPEGQuality,
			MaxPixels:    cfg.Ingest.MaxPixels,
		}),
		cache.NewScoreCache(redisClient, cfg.Moderation.CacheTTL),
		ingest.Options{
			TempDir:      cfg.Ingest.TempDir,
			Workers:      cfg.Moderation.Workers,
			NeutralLabel: cfg.Moderation.NeutralLabel,
		},
		logger,
	)

	events := queue.NewPublisher(redisClient, cfg.Events.Stream)
	retry := service.RetryOptions{
		MaxAttempts: cfg.Transfer.MaxAttempts,
		Backoff:     cfg.Transfer.Backoff,
	}

	handlerSet := handlers.NewHandlerSet(handlers.Deps{
		Log:            logger,
		Environment:    cfg.Environment,
		JWTSecret:      cfg.Security.JWTAccessSecret,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		Listings: service.NewListingService(
			store,
			pipeline,
			moderation.NewRouter(cfg.Moderation.Threshold),
			objectStore,
			events,
			service.ListingServiceOptions{UploadWorkers: cfg.Moderation.Workers, Retry: retry},
			logger,
		),
		Transfers:    service.NewTransferService(store, events, retry, logger),
		Catalog:      service.NewCatalogService(store, logger),
		Pending:      queue.NewPendingQueue(redisClient, cfg.Events.PendingQueue),
		HealthChecks: checks,
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(&jobs.TempSweeper{
		Dir:     cfg.Ingest.TempDir,
		Pattern: ingest.TempPattern,
		MaxAge:  cfg.Jobs.TempMaxAge,
	}, cfg.Jobs.TempSweep, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, nsfw, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, nsfw *classifier.ONNXClassifier, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduler did not stop in time")
	}

	if err := nsfw.Close(); err != nil {
		logger.Error().Err(err).Msg("classifier close error")
	}

	if db != nil {
		db.Close()
	}
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
