package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/intentionbank/backend/docs"
	"github.com/intentionbank/backend/internal/audit"
	"github.com/intentionbank/backend/internal/config"
	"github.com/intentionbank/backend/internal/database"
	"github.com/intentionbank/backend/internal/events"
	"github.com/intentionbank/backend/internal/handlers"
	"github.com/intentionbank/backend/internal/logger"
	mW "github.com/intentionbank/backend/internal/middleware"
	"github.com/intentionbank/backend/internal/services"
	"github.com/intentionbank/backend/internal/store"
	"github.com/intentionbank/backend/internal/worker"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Intention Bank API
// @version 1.0
// @description Ledger, transfers, scheduled entries and statements for intention banking accounts
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(ctx, cfg.Database, zl)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			zl.Fatal("Failed to migrate schema", zap.Error(err))
		}
		zl.Info("Schema migrated")
	}

	redisClient := database.InitRedis(ctx, cfg.Redis, zl)
	if redisClient != nil {
		defer redisClient.Close()
	}

	st := store.NewPostgresStore(db)
	auditLog := audit.NewLogger(zl)
	publisher := events.NewPublisher(redisClient, zl)

	accountService := services.NewAccountService(st, auditLog, publisher, zl)
	ledgerService := services.NewLedgerService(st, cfg.Ledger, auditLog, publisher, zl)
	tierService := services.NewTierService(st, cfg.Tier)
	scheduledService := services.NewScheduledEntryService(st, cfg.Ledger, tierService, auditLog, publisher, zl)
	statementService := services.NewStatementService(st, cfg.Statement, cfg.Ledger)
	transactionService := services.NewTransactionService(st, cfg.Ledger)

	// Scheduled entry promotion
	var scheduler *worker.Scheduler
	if cfg.Scheduler.Enabled {
		var lease worker.Lease
		if redisClient != nil {
			lease = worker.NewRedisLease(redisClient, "scheduled-entries", cfg.Scheduler.LockTTL)
		}
		scheduler = worker.NewScheduler(scheduledService, lease, cfg.Scheduler.Interval, zl)
		go scheduler.Start(ctx)
	}

	api := &handlers.API{
		Accounts:     handlers.NewAccountHandler(accountService, zl),
		Ledger:       handlers.NewLedgerHandler(accountService, ledgerService, zl),
		Scheduled:    handlers.NewScheduledEntryHandler(accountService, scheduledService, zl),
		Statements:   handlers.NewStatementHandler(accountService, statementService, tierService, zl),
		Transactions: handlers.NewTransactionHandler(accountService, transactionService, zl),
	}
	authenticator := mW.NewAuthenticator(cfg.JWT.SecretKey, redisClient, zl)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mW.RequestLogger(zl))
	r.Use(middleware.Recoverer)
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticator.Middleware)
		api.Mount(r)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zl.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	zl.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop()
	}

	zl.Info("Server stopped")
}
