package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yapmint/yapmint/internal/adapters/http/api"
	"github.com/yapmint/yapmint/internal/adapters/http/swagger"
	"github.com/yapmint/yapmint/internal/adapters/ledger"
	"github.com/yapmint/yapmint/internal/adapters/provider"
	"github.com/yapmint/yapmint/internal/adapters/wallet"
	app "github.com/yapmint/yapmint/internal/app"
	"github.com/yapmint/yapmint/internal/config"
	"github.com/yapmint/yapmint/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Score transport chain: configured proxies first, direct endpoint last.
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout()}
	pipeline := provider.NewPipeline(
		provider.BuildTransports(cfg.ProviderEndpoint, cfg.ProviderProxies, httpClient),
		provider.WithTimeout(cfg.ProviderTimeout()),
		provider.WithLogger(loggerInstance.Named("provider")),
	)

	ledgerClient := ledger.NewHTTPClient(cfg.LedgerEndpoint,
		ledger.WithTimeout(cfg.LedgerTimeout()),
	)

	walletProvider := wallet.NewStaticProvider(
		wallet.WithAvailableAccounts(cfg.WalletAccounts),
	)

	// Create and start the service with configuration options
	svc := app.New(pipeline, ledgerClient, walletProvider,
		app.WithLogger(loggerInstance),
		app.WithCooldown(time.Duration(cfg.CooldownSeconds)*time.Second),
		app.WithBaseRate(cfg.BaseRate),
		app.WithAuditQueueSize(cfg.AuditQueueSize),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}
