package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/api"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/api/service"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/approval"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/config"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/data/mongo"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/data/postgres"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/logger"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/platform/persistence"
	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/referral"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_server")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Resolve the commission schedule. A custom rate list overrides the
	// named table wholesale.
	var rates referral.RateTable
	if cfg.Commission.Rates != "" {
		rates, err = referral.ParseRates(cfg.Commission.Rates)
	} else {
		rates, err = referral.TableForSchedule(cfg.Commission.Schedule)
	}
	if err != nil {
		log.Error("Failed to resolve commission schedule", "error", err)
		os.Exit(1)
	}

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	statsRepo := postgres.NewAffiliateRepository(log, postgresDB)
	requestRepo := postgres.NewRequestRepository(log, postgresDB)
	planRepo := postgres.NewPlanRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	ledgerRepo := mongo.NewLedgerRepository(log, mongoDB.Database())

	// Initialize referral commission core
	resolver := referral.NewChainResolver(accountRepo, log)
	distributor := referral.NewDistributor(
		postgresDB,
		resolver,
		accountRepo,
		statsRepo,
		outboxRepo,
		ledgerRepo,
		rates,
		cfg.Commission.MaxDepth,
		log,
	)

	// Initialize services
	approvalService := approval.NewService(
		postgresDB,
		requestRepo,
		accountRepo,
		statsRepo,
		planRepo,
		outboxRepo,
		ledgerRepo,
		distributor,
		log,
	)
	accountService := service.NewAccountService(
		postgresDB,
		accountRepo,
		statsRepo,
		planRepo,
		ledgerRepo,
		resolver,
		cfg.Commission.MaxDepth,
	)
	requestService := service.NewRequestService(
		requestRepo,
		accountRepo,
		planRepo,
		cfg.Request.PaymentWindow,
	)

	// Initialize REST server
	server := api.NewServer(log, cfg, accountService, requestService, approvalService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no request sees a closed pool
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
