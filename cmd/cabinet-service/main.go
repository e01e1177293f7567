package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/medicab/medicab-backend/internal/inventory/events"
	"github.com/medicab/medicab-backend/internal/inventory/handler"
	"github.com/medicab/medicab-backend/internal/inventory/repository"
	"github.com/medicab/medicab-backend/internal/inventory/service"
	"github.com/medicab/medicab-backend/internal/lookup"
	"github.com/medicab/medicab-backend/internal/scan"
	"github.com/medicab/medicab-backend/pkg/config"
	"github.com/medicab/medicab-backend/pkg/database"
	"github.com/medicab/medicab-backend/pkg/httputil"
	"github.com/medicab/medicab-backend/pkg/logger"
	"github.com/medicab/medicab-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("cabinet-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("cabinet-service", cfg.Server.Environment)
	log.Info().Msg("starting Cabinet Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewCabinetEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	medicineRepo := repository.NewMedicineRepository(db)
	stockRepo := repository.NewStockRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// Initialize scan decoder from market configuration
	decoder := &scan.Decoder{
		CenturyPivot: cfg.Scanner.CenturyPivot,
		MarketPrefix: cfg.Scanner.MarketPrefix,
	}

	// Initialize drug database lookup
	lookupClient := lookup.NewClient(&cfg.Lookup, log)
	lookupCache := lookup.NewCache(cfg.Lookup.CacheTTL)

	// Initialize service
	inventoryService := service.NewInventoryService(decoder, medicineRepo, stockRepo, alertRepo, lookupClient, lookupCache, publisher, log)

	// Initialize handlers
	scanHandler := handler.NewScanHandler(inventoryService, log)
	stockHandler := handler.NewStockHandler(inventoryService, log)
	medicineHandler := handler.NewMedicineHandler(inventoryService, log)
	alertHandler := handler.NewAlertHandler(inventoryService, log)

	// Start the expiry alert scheduler
	expiryScanner := service.NewExpiryScanner(stockRepo, alertRepo, publisher, cfg.Alerts.ExpiryWarningDays, log)
	scheduler := service.NewAlertScheduler(expiryScanner, cfg.Alerts.ScanInterval, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "cabinet-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/cabinet", func(r chi.Router) {
		// Scan intake
		r.Route("/scan", func(r chi.Router) {
			r.Post("/", scanHandler.Record)
			r.Post("/preview", scanHandler.Preview)
		})

		// Stock routes
		r.Route("/stock", func(r chi.Router) {
			r.Get("/", stockHandler.List)
			r.Post("/", stockHandler.CreateManual)
			r.Get("/{id}", stockHandler.Get)
			r.Post("/{id}/adjust", stockHandler.Adjust)
			r.Delete("/{id}", stockHandler.Delete)
		})

		// Medicine metadata
		r.Route("/medicines", func(r chi.Router) {
			r.Get("/search", medicineHandler.Search)
			r.Get("/{cip13}", medicineHandler.Get)
		})

		// Alert routes
		r.Get("/alerts", alertHandler.List)
		r.Put("/alerts/{id}/acknowledge", alertHandler.Acknowledge)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop the scheduler
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
