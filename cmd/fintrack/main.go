package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)
	res, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// A nil *amqp.Client must not end up inside the interface.
	var (
		publisher      services.EventPublisher
		asyncPublisher *services.AsyncPublisher
	)
	if res.Publisher != nil {
		asyncPublisher = services.NewAsyncPublisher(res.Publisher, 0)
		publisher = asyncPublisher
	}

	var (
		aggregationCache cache.Cache[any]
		cacheManager     *cache.Manager
	)
	if cfg.CacheTTL > 0 {
		lru := cache.NewLRUCache[any](cfg.CacheSize, cfg.CacheTTL)
		aggregationCache = lru
		cacheManager = cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
		cacheManager.Register(lru)
		cacheManager.StartCleanup(cfg.CacheTTL)
		logger.Info("Aggregation cache enabled", "ttl", cfg.CacheTTL, "size", cfg.CacheSize)
	}

	repo := res.Repository
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	hasher := auth.NewHasher(cfg.BcryptCost)
	aggregation := services.NewAggregationService(repo, aggregationCache)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:         services.NewAuthService(repo, tokens, hasher),
		Transactions: services.NewTransactionService(repo, publisher, aggregation),
		Categories:   services.NewCategoryService(repo, aggregation),
		Users:        services.NewUserService(repo, aggregation),
		Aggregation:  aggregation,
		Store:        repo,
	}, apphttp.Options{
		Logger:            logger,
		RequestsPerMinute: cfg.RateLimitRPM,
	})

	ctx, done := cli.GracefulShutdown(logger, cli.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		logger.Info("Final server metrics", "metrics", srv.Metrics())

		if asyncPublisher != nil {
			if err := asyncPublisher.Close(ctx); err != nil {
				logger.Warn("Pending transaction events not published", "error", err)
			}
			logger.Info("Event publisher stopped", "stats", asyncPublisher.Stats())
		}
		if cacheManager != nil {
			cacheManager.Stop()
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events_enabled", publisher != nil,
		"started_at", time.Now().UTC().Format(time.RFC3339))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
