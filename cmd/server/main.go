// Package main is the entry point for the Kigogo backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kigogo-backend/internal/config"
	"kigogo-backend/internal/events"
	"kigogo-backend/internal/idempotency"
	"kigogo-backend/internal/pkg/db"
	"kigogo-backend/internal/pkg/lock"
	"kigogo-backend/internal/repository"
	"kigogo-backend/internal/server"
	"kigogo-backend/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	userRepo := repository.NewUserRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)

	publisher := newPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close event publisher")
		}
	}()

	// A nil *idempotency.Store must not reach the service as a non-nil interface.
	var keys service.IdempotencyStore
	if rdb := connectRedis(ctx, cfg); rdb != nil {
		defer rdb.Close()
		keys = idempotency.NewStore(rdb, cfg.Redis.KeyTTL)
	}

	accountService := service.NewAccountService(userRepo, txRepo, publisher, cfg.Security.BcryptCost)
	withdrawalService := service.NewWithdrawalService(userRepo, txRepo, publisher, keys, lock.NewKeyLock())

	srv, err := server.New(&server.Dependencies{
		Config:            cfg,
		AccountService:    accountService,
		WithdrawalService: withdrawalService,
		DB:                userRepo,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("Server stopped unexpectedly")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// newPublisher returns a Kafka publisher when brokers are configured.
func newPublisher(cfg *config.Config) events.Publisher {
	if !cfg.Kafka.Enabled() {
		log.Info().Msg("Kafka not configured, domain events disabled")
		return events.NopPublisher{}
	}

	log.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.Topic).
		Msg("Publishing domain events to Kafka")
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

// connectRedis returns nil when Redis is not configured or unreachable;
// withdrawals then ignore Idempotency-Key headers.
func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled() {
		log.Info().Msg("Redis not configured, idempotency keys disabled")
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rdb, err := idempotency.Connect(pingCtx, &cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, idempotency keys disabled")
		return nil
	}
	return rdb
}
