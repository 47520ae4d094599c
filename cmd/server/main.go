package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/rinsr/internal"
	"github.com/DukeRupert/rinsr/internal/handler"
	"github.com/DukeRupert/rinsr/internal/metrics"
	"github.com/DukeRupert/rinsr/internal/middleware"
	"github.com/DukeRupert/rinsr/internal/storage"
	"github.com/DukeRupert/rinsr/internal/tracing"
	"github.com/DukeRupert/rinsr/internal/upstream"
)

func run() error {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	if cfg.APIBaseURL == "" {
		// Not fatal: every proxied request reports the configuration error.
		logger.Warn("API_BASE_URL is not set, API routes will fail until it is configured")
	}

	// Tracing
	if cfg.TracingEnabled {
		tp, err := tracing.NewProvider("rinsr-admin", cfg.Env, os.Stderr)
		if err != nil {
			return fmt.Errorf("tracing initialization failed: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		}()
		logger.Info("Tracing enabled")
	}

	// Upload storage
	store, err := storage.New(cfg.StorageProvider,
		storage.LocalConfig{
			BasePath: cfg.UploadDir,
			BaseURL:  cfg.UploadURL,
		},
		storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
			Region:          "auto",
		},
		logger,
	)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// Upstream client
	client := upstream.NewClient(upstream.ClientConfig{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.UpstreamTimeout,
		Logger:  logger,
	})

	// Initialize middleware
	isSecure := !cfg.IsDevelopment()
	loginLimiter := middleware.NewLoginRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow, cfg.TrustProxyHeaders, logger)
	uploadLimiter := middleware.NewRateLimitMiddleware(
		middleware.NewRateLimiter(cfg.UploadRateLimit, cfg.UploadRateWindow, logger),
		cfg.TrustProxyHeaders,
		logger,
	)
	requestLogger := middleware.NewRequestLoggingMiddleware(logger, cfg.TrustProxyHeaders)
	securityHeaders := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword, logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(client, loginLimiter, logger, isSecure)
	proxyHandler := handler.NewProxyHandler(client, handler.Endpoints(), logger)
	uploadHandler := handler.NewUploadHandler(store, cfg.UploadMaxBytes, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics (basic auth when configured)
	if cfg.MetricsUsername == "" && cfg.MetricsPassword == "" {
		logger.Warn("METRICS_USERNAME/METRICS_PASSWORD not set, /metrics is unprotected")
	}
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// API
	authHandler.RegisterRoutes(mux, loginLimiter.Limit)
	proxyHandler.RegisterRoutes(mux)
	uploadHandler.RegisterRoutes(mux, uploadLimiter.Limit)
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		handler.NotFoundResponse(w, r, logger)
	})

	// Dashboard bundle
	mux.Handle("/", http.FileServer(http.Dir(cfg.WebDir)))

	// Global middleware: outermost first
	stack := middleware.Stack(
		metrics.Middleware,
		requestLogger.Handler,
		securityHeaders.Handler,
		middleware.SessionGate(logger),
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           stack(mux),
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads and slow upstream calls both need headroom.
		WriteTimeout: cfg.UpstreamTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started",
			"address", server.Addr,
			"env", cfg.Env,
			"storage", cfg.StorageProvider,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-sigChan:
	}

	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
