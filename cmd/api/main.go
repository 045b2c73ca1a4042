package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/winefeed/winefeed-api/internal/auth"
	"github.com/winefeed/winefeed-api/internal/compliance"
	"github.com/winefeed/winefeed-api/internal/config"
	"github.com/winefeed/winefeed-api/internal/database"
	"github.com/winefeed/winefeed-api/internal/http/handler"
	"github.com/winefeed/winefeed-api/internal/http/middleware"
	"github.com/winefeed/winefeed-api/internal/http/router"
	"github.com/winefeed/winefeed-api/internal/jobs"
	"github.com/winefeed/winefeed-api/internal/logger"
	"github.com/winefeed/winefeed-api/internal/repository"
	"github.com/winefeed/winefeed-api/internal/service"
	"github.com/winefeed/winefeed-api/internal/wineref"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Environment),
		zap.Int("port", cfg.App.Port),
	)

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Optional integrations; nil clients mean the feature degrades, not the app
	wineRefClient := wineref.NewClient(&cfg.WineRef, log)
	complianceClient := compliance.NewClient(&cfg.Compliance, log)

	// Initialize repositories
	membershipRepo := repository.NewMembershipRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	importerRepo := repository.NewImporterRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	importCaseRepo := repository.NewImportCaseRepository(db)
	productRepo := repository.NewProductRepository(db)
	matchResultRepo := repository.NewMatchResultRepository(db)

	// Initialize services
	actorService := service.NewActorService(membershipRepo, supplierRepo, importerRepo, membershipRepo, log)
	offerService := service.NewOfferService(offerRepo, log, db)

	var caseCreator service.ComplianceCaseCreator
	if complianceClient != nil {
		caseCreator = complianceClient
	}
	orderService := service.NewOrderService(orderRepo, supplierRepo, importCaseRepo, offerService, caseCreator, log, db)

	var lookup service.WineLookup
	if wineRefClient != nil {
		lookup = wineRefClient
	}
	matchService := service.NewMatchService(productRepo, matchResultRepo, lookup, &cfg.Matching, log)

	// Initialize middleware
	tokenValidator := auth.NewTokenValidator(cfg.Auth.JWTSecret)
	authMiddleware := auth.NewMiddleware(tokenValidator, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	actorHandler := handler.NewActorHandler(actorService, log)
	offerHandler := handler.NewOfferHandler(offerService, actorService, log)
	orderHandler := handler.NewOrderHandler(orderService, actorService, log)
	matchHandler := handler.NewMatchHandler(matchService, actorService, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		authMiddleware,
		rateLimiter,
		actorHandler,
		offerHandler,
		orderHandler,
		matchHandler,
	)

	// Background jobs
	scheduler := jobs.NewScheduler(log)
	if err := jobs.Register(scheduler, &cfg.Jobs, offerService, log); err != nil {
		log.Error("Failed to register jobs", zap.Error(err))
	} else {
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		stopCtx := scheduler.Stop()
		<-stopCtx.Done()
		log.Info("Scheduler stopped")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
