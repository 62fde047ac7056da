package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"auth-core/config"
	"auth-core/db"
	"auth-core/internal/auth/domain"
	"auth-core/internal/auth/handler"
	"auth-core/internal/auth/lockout"
	"auth-core/internal/auth/password"
	memrepo "auth-core/internal/auth/repository/memory"
	pgrepo "auth-core/internal/auth/repository/postgres"
	"auth-core/internal/auth/service"
	"auth-core/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err.Error())
	}

	logger, err := observability.NewLogger(cfg.Env)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Env); err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer observability.FlushSentry()

	ctx := context.Background()
	policy := lockout.Policy{Threshold: cfg.LockoutThreshold, MaxLock: cfg.LockoutMax}

	var store domain.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database connection failed", zap.Error(err))
		}
		defer pool.Close()

		if err := db.RunMigrations(ctx, pool); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}

		store = pgrepo.NewPostgresRepository(pool, policy, logger)
	} else {
		logger.Warn("no DATABASE_URL configured, using the in-memory store")
		store = memrepo.NewStore(policy)
	}

	tokenService, err := service.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		logger.Fatal("token service init failed", zap.Error(err))
	}

	rotation := service.NewRotationEngine(store, tokenService, logger)
	hasher := password.NewHasher(cfg.BcryptCost)
	authService := service.NewAuthService(store, rotation, hasher, logger)
	authHandler := handler.NewAuthHandler(authService, tokenService, logger, cfg.Production())

	go cleanupLoop(ctx, store, cfg.CleanupInterval, logger)

	app := fiber.New()
	app.Use(recover.New())
	handler.RegisterRoutes(app, authHandler)

	logger.Info("starting auth service", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// cleanupLoop periodically drops expired refresh-token records. Maintenance
// only; validity never depends on it.
func cleanupLoop(ctx context.Context, store domain.Store, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		removed, err := store.CleanupExpiredRefreshTokens(ctx)
		if err != nil {
			logger.Error("refresh token cleanup failed", zap.Error(err))
			continue
		}
		if removed > 0 {
			logger.Info("expired refresh tokens removed", zap.Int64("count", removed))
		}
	}
}
