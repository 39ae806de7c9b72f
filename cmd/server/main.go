package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tresorerie/backend/internal/config"
	"github.com/tresorerie/backend/internal/database"
	"github.com/tresorerie/backend/internal/handlers"
	mW "github.com/tresorerie/backend/internal/middleware"
	"github.com/tresorerie/backend/internal/services"
)

// @title Trésorerie API
// @version 1.0
// @description Cash and bank ledger: accounts, transactions, transfers and documents
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	st, err := database.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ledgerOpts := []services.LedgerOption{}

	redisClient := database.InitRedis(ctx, cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
		ledgerOpts = append(ledgerOpts,
			services.WithStatsCache(services.NewRedisStatsCache(redisClient, cfg.Ledger.StatsCacheTTL, logger)))
	} else {
		ledgerOpts = append(ledgerOpts, services.WithStatsCache(services.NewMemoryStatsCache(cfg.Ledger.StatsCacheTTL)))
	}

	documentService, err := services.NewDocumentService(st, cfg.Documents, logger)
	if err != nil {
		return err
	}
	ledgerOpts = append(ledgerOpts, services.WithDocumentCascader(documentService))

	ledgerService := services.NewLedgerService(st, logger, cfg.Ledger, ledgerOpts...)
	accountService := services.NewAccountService(st, logger)
	tiersService := services.NewTiersService(st, logger)
	categoryService := services.NewCategoryService(st, logger)

	transactionHandler := handlers.NewTransactionHandler(ledgerService, logger)
	accountHandler := handlers.NewAccountHandler(accountService, tiersService, categoryService, logger)
	documentHandler := handlers.NewDocumentHandler(documentService, cfg.Documents.MaxUploadBytes, logger)

	// Setup router
	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mW.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		if cfg.Auth.Enabled {
			r.Use(mW.Auth(cfg.Auth.SecretKey))
		}
		handlers.Register(r, transactionHandler, accountHandler, documentHandler)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "store", cfg.Store.Driver, "auth", cfg.Auth.Enabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
