package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yapmint/yapmint/internal/config"
	"github.com/yapmint/yapmint/internal/domain/reward"
	"github.com/yapmint/yapmint/internal/ledgerd"
	"github.com/yapmint/yapmint/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	loggerInstance := logger.Named("ledgerd")

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	var store ledgerd.Store
	switch cfg.LedgerStore {
	case "postgres":
		store, err = ledgerd.NewPostgresStore(ctx, cfg.LedgerPostgresDSN)
		if err != nil {
			os.Stderr.WriteString("failed to open postgres store: " + err.Error() + "\n")
			return
		}
		loggerInstance.Info(ctx, "using postgres store")
	default:
		store = ledgerd.NewMemoryStore()
		loggerInstance.Info(ctx, "using memory store")
	}
	defer func() { _ = store.Close() }()

	rpcServer := ledgerd.NewServer(store,
		ledgerd.WithCooldown(time.Duration(cfg.CooldownSeconds)*time.Second),
		ledgerd.WithCalculator(reward.NewCalculator(reward.WithBaseRate(cfg.BaseRate))),
		ledgerd.WithLogger(loggerInstance),
	)

	mux := http.NewServeMux()
	mux.Handle("/rpc", rpcServer)

	srv := &http.Server{
		Addr:              cfg.LedgerdAddr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting ledger RPC server", logger.String("addr", cfg.LedgerdAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down ledger server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "ledger server stopped")
}
