package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wmscore/internal/caching"
	"wmscore/internal/config"
	"wmscore/internal/handlers"
	"wmscore/internal/jobs/background"
	"wmscore/internal/locking"
	"wmscore/internal/middleware"
	"wmscore/internal/repositories"
	"wmscore/internal/services"
	"wmscore/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	// Redis backs the topology cache, the distributed locks and the
	// notification queue. Without it the process runs single-instance.
	var (
		redisClient redis.UniversalClient
		cache       caching.CacheService
		locker      locking.Locker
	)
	if client, err := caching.NewRedisClient(ctx, cfg.RedisURL); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-process locks and no cache")
		locker = locking.NewLocalLocker()
	} else {
		defer client.Close()
		redisClient = client
		cache = caching.NewRedisCacheService(client)
		locker = locking.NewRedisLocker(client, cfg.LockTTL)
	}

	var images services.ImageStore
	if cfg.MinioEndpoint != "" {
		store, err := services.NewMinioImageStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize minio")
		}
		if err := store.EnsureBucketExists(ctx); err != nil {
			log.Warn().Err(err).Str("bucket", cfg.MinioBucket).Msg("label image bucket not ready, images will not be stored")
		} else {
			images = store
		}
	}

	var jwks *keyfunc.JWKS
	if cfg.JWKSURL != "" {
		jwks, err = middleware.NewJWKS(cfg.JWKSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load JWKS")
		}
		defer jwks.EndBackground()
	}

	// Repositories
	inventoryRepo := repositories.NewInventoryRepo(pool)
	topologyRepo := repositories.NewTopologyRepo(pool)
	skuRepo := repositories.NewSkuRepo(pool)
	shipmentRepo := repositories.NewShipmentRepo(pool)
	taskRepo := repositories.NewTaskRepo(pool)
	approvalRepo := repositories.NewApprovalRepo(pool)
	verificationLogRepo := repositories.NewVerificationLogRepo(pool)
	userRepo := repositories.NewUserRepo(pool)
	notificationRepo := repositories.NewNotificationRepo(pool)

	// Services
	topology := services.NewTopologyService(topologyRepo, skuRepo, cache, cfg.TopologyCacheTTL)
	ledger := services.NewInventoryLedger(inventoryRepo, locker)
	allocator := services.NewLocationAllocator(ledger, topology)
	aggregator := services.NewShipmentAggregator(shipmentRepo)
	notifier := services.NewNotificationService(notificationRepo, redisClient)
	tasks := services.NewTaskOrchestrator(taskRepo, shipmentRepo, ledger, topology, aggregator, locker)
	committer := services.NewReceiveCommitter(shipmentRepo, allocator, ledger, topology, tasks, aggregator)
	approvals := services.NewApprovalWorkflow(approvalRepo, userRepo, committer, notifier, locker)
	router := services.NewVerificationRouter(allocator, ledger, topology, tasks, approvals, shipmentRepo)
	engine := services.NewHTTPVerificationEngine(cfg.VerifierURL, cfg.VerifierTimeout)
	verification := services.NewVerificationService(shipmentRepo, verificationLogRepo, topology, engine, images, router, cfg.VerifierTimeout)

	scheduler, err := background.NewJobScheduler(background.SchedulerConfig{
		ReconcileInterval:        cfg.ReconcileInterval,
		ApprovalReminderInterval: cfg.ApprovalReminderInterval,
		ApprovalReminderAge:      cfg.ApprovalReminderAge,
	}, shipmentRepo, aggregator, approvalRepo, userRepo, notifier)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job scheduler")
	}

	checks := map[string]handlers.HealthCheckFunc{
		"database": pool.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	h := &handlers.Handlers{
		Health:        handlers.NewHealthHandlers(checks),
		Verification:  handlers.NewVerificationHandlers(verification),
		Tasks:         handlers.NewTaskHandlers(tasks),
		Approvals:     handlers.NewApprovalHandlers(approvals),
		Allocation:    handlers.NewAllocationHandlers(allocator),
		Inventory:     handlers.NewInventoryHandlers(ledger),
		Notifications: handlers.NewNotificationHandlers(services.NewNotificationInbox(notificationRepo)),
		Jobs:          handlers.NewJobHandlers(scheduler),
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.CORS())
	e.Use(middleware.RequestLogger())

	handlers.RegisterRoutes(e, h, middleware.JWTMiddleware(cfg.JWTSecret, jwks))
	scheduler.Start()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("version", version).Int("port", cfg.Port).Str("env", cfg.Env).Msg("warehouse engine listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	if err := scheduler.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
