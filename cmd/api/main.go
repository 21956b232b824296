package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"oftaclinic/api/internal/cache"
	"oftaclinic/api/internal/cleanup"
	"oftaclinic/api/internal/config"
	"oftaclinic/api/internal/database"
	"oftaclinic/api/internal/handlers"
	"oftaclinic/api/internal/imaging"
	"oftaclinic/api/internal/jobs"
	"oftaclinic/api/internal/log"
	"oftaclinic/api/internal/notify"
	"oftaclinic/api/internal/repository"
	"oftaclinic/api/internal/server"
	"oftaclinic/api/internal/service"
	"oftaclinic/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	var redisClient *redis.Client
	cacheStore := cache.NewMemoryStore()
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		cacheStore = cache.NewRedisStore(redisClient, logger)
	}
	imageCache := cache.NewImageCache(cacheStore)

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBuckets(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure buckets failed")
	}

	originalURLs := imaging.NewURLBuilder(cfg.Storage.PublicBaseURL, cfg.Storage.BucketOriginals)
	variantURLs := imaging.NewURLBuilder(cfg.Storage.PublicBaseURL, cfg.Storage.BucketVariants)
	transformer := imaging.NewTransformer(objectStore, cfg.Storage.BucketOriginals, cfg.Storage.BucketVariants, variantURLs)

	imageRepo := repository.NewImageRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	appointmentRepo := repository.NewAppointmentRepository(dbPool)
	userRepo := repository.NewUserRepository(dbPool)

	imageService := service.NewImageService(
		imageRepo, objectStore, imageCache, originalURLs, transformer,
		cfg.Storage.BucketOriginals, logger,
	)

	cleaner := cleanup.NewService(objectStore, cfg.Storage.BucketOriginals, logger, productRepo, appointmentRepo)
	mailer := notify.NewMailer(cfg.SMTP, cfg.AdminEmails, logger)

	scheduler := jobs.NewScheduler(
		jobs.DefaultTaskSet(), cleaner, imageCache, mailer,
		jobs.Thresholds{
			UnusedCount:  cfg.Cleanup.UnusedAlertCount,
			StorageBytes: cfg.Cleanup.StorageAlertBytes,
		},
		logger,
	)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	handlerSet := handlers.NewHandlerSet(handlers.Deps{
		Log:          logger,
		Cfg:          cfg,
		ImageService: imageService,
		Cleaner:      cleaner,
		Scheduler:    scheduler,
		ImageCache:   imageCache,
		DB:           dbPool,
		Redis:        redisClient,
		Users:        userRepo,
		Products:     productRepo,
		Appointments: appointmentRepo,
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		cancel := scheduler.Stop()
		cancel()
	}

	db.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
