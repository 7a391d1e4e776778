// Storefront - WooCommerce product pages with variation-aware add to cart.
// Designed for Cloud Run deployment with stateless operation; the cart lives in WooCommerce.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sony/gobreaker/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/delivery"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/transport"
	"storefront/internal/woocommerce"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Load configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Initialize structured logger
	logger, closeLog := initLogger(cfg)
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("store_id", cfg.StoreID),
		slog.String("environment", cfg.Environment),
		slog.String("store_url", cfg.Store.StoreURL),
		slog.String("store_api_version", cfg.Store.APIVersion),
		slog.Bool("delivery_enabled", cfg.Delivery.URL != ""),
	)

	fingerprint, err := transport.ParseFingerprint(cfg.Store.TLSFingerprint)
	if err != nil {
		return fmt.Errorf("parsing TLS fingerprint: %w", err)
	}

	// Metrics on a dedicated registry, with the usual process and runtime collectors
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(reg)

	breaker := woocommerce.DefaultBreakerConfig()
	breaker.OnStateChange = func(from, to gobreaker.State) {
		logger.Warn("store circuit breaker state change",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
		metrics.UpstreamBreaker.Set(float64(to))
	}

	store, err := woocommerce.New(woocommerce.Config{
		StoreURL:    cfg.Store.StoreURL,
		APIKey:      cfg.Store.APIKey,
		APISecret:   cfg.Store.APISecret,
		APIVersion:  cfg.Store.APIVersion,
		Fingerprint: fingerprint,
		Breaker:     breaker,
	})
	if err != nil {
		return fmt.Errorf("creating store client: %w", err)
	}

	opts := handler.Options{
		Store:         store,
		Metrics:       metrics,
		Gatherer:      reg,
		AttributeMode: attributeMode(cfg.Store.AttributeMode),
		Logger:        logger,
	}

	// Delivery availability: warm the cache, then keep it fresh in the background
	if cfg.Delivery.URL != "" {
		avail := delivery.New(delivery.Config{URL: cfg.Delivery.URL})
		if err := avail.Refresh(ctx); err != nil {
			logger.Warn("initial delivery availability fetch failed", slog.String("error", err.Error()))
		}

		scheduler, err := delivery.NewScheduler(avail, cfg.Delivery.Refresh, logger, func(outcome string) {
			metrics.DeliveryRefreshes.WithLabelValues(outcome).Inc()
		})
		if err != nil {
			return fmt.Errorf("scheduling delivery refresh: %w", err)
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()

		opts.Availability = avail
	}

	h := handler.New(opts)

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → request id → logging → metrics → rate limit → handler
	// Recovery must be outermost to catch panics from the other middleware
	chain := []func(http.Handler) http.Handler{
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
		metrics.Handler(),
	}
	if cfg.RateLimit.RPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		go limiter.Run(ctx)
		chain = append(chain, limiter.Handler())
	}
	httpHandler := middleware.Chain(chain...)(mux)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

func attributeMode(mode string) catalog.AttributeMode {
	if mode == "global" {
		return catalog.GlobalAttributes
	}
	return catalog.LocalAttributes
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
// When LogFile is set, output goes to a size-rotated file instead of stdout.
func initLogger(cfg *config.Config) (*slog.Logger, func()) {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	var out io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			LocalTime:  true,
		}
		out = rotator
		closeFn = func() { rotator.Close() }
	}

	// JSON for production (Cloud Logging compatible), text for development
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(out, opts)), closeFn
	}
	return slog.New(slog.NewTextHandler(out, opts)), closeFn
}
