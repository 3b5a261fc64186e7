package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"card-vault/config"
	httpHandler "card-vault/internal/adapter/http/handler"
	pgStorage "card-vault/internal/adapter/storage/postgres"
	redisStorage "card-vault/internal/adapter/storage/redis"
	"card-vault/internal/core/ports"
	"card-vault/internal/scheduler"
	"card-vault/internal/service"
	"card-vault/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Card Vault")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Initialize repositories
	cardRepo := pgStorage.NewCardRepo(pool)
	userRepo := pgStorage.NewUserRepo(pool)

	// Initialize core services
	cryptoSvc, err := service.NewAESCryptoService(cfg.Crypto.AESKey, cfg.Crypto.Pepper)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize crypto service")
	}
	hasher := service.NewArgon2PasswordHasher()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	authSvc := service.NewAuthService(userRepo, hasher, tokenSvc)
	cardSvc := service.NewCardService(cardRepo, userRepo, cryptoSvc, log)
	transferSvc := service.NewTransferService(cardRepo, log)
	userSvc := service.NewUserService(userRepo)

	// Start the expiry sweep schedule
	sweeper := scheduler.NewExpirySweeper(cardRepo, log)
	if cfg.Expiry.Enabled {
		if err := sweeper.Start(cfg.Expiry.Schedule); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Expiry.Schedule).Msg("Failed to start expiry sweeper")
		}
		defer sweeper.Stop()
		log.Info().Str("schedule", cfg.Expiry.Schedule).Msg("Expiry sweeper started")
	}

	// Initialize rate limit store and health checkers
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		CardSvc:        cardSvc,
		TransferSvc:    transferSvc,
		UserSvc:        userSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
