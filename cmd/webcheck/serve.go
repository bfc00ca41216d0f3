package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hazz-dev/webcheck/internal/checker"
	"github.com/hazz-dev/webcheck/internal/config"
	"github.com/hazz-dev/webcheck/internal/dashboard"
	"github.com/hazz-dev/webcheck/internal/logging"
	"github.com/hazz-dev/webcheck/internal/monitor"
	"github.com/hazz-dev/webcheck/internal/scheduler"
	"github.com/hazz-dev/webcheck/internal/server"
	"github.com/hazz-dev/webcheck/internal/storage"
	"github.com/hazz-dev/webcheck/internal/telemetry"
)

func runServe(_ *cobra.Command, _ []string) error {
	// 1. Load config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	return executeServe(cfg, logger, storage.Open)
}

// executeServe runs the service until a signal or a server error. The store
// returned by open is closed on every return path, after the final snapshot.
func executeServe(cfg *config.Config, logger *zap.Logger, open func(config.StorageConfig) (storage.Store, error)) error {
	// 2. Open storage and restore state
	store, err := open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("storage_close", zap.Error(err))
		}
	}()

	reg, loaded := storage.LoadOrDefault(context.Background(), store, defaultsFrom(cfg), logger)
	logger.Info("registry_ready",
		zap.Bool("from_snapshot", loaded),
		zap.Int("resources", reg.Len()),
		zap.String("storage", cfg.Storage.Driver),
	)

	// 3. Telemetry
	var (
		instruments *telemetry.Instruments
		metrics     server.MetricsSource
		closers     []func() error
	)
	if cfg.Telemetry.Enabled {
		provider := telemetry.NewProvider()
		provider.Install()
		instruments, err = telemetry.NewGlobal()
		if err != nil {
			return fmt.Errorf("creating instruments: %w", err)
		}
		metrics = provider
		closers = append(closers, func() error { return provider.Shutdown(context.Background()) })
	}

	// 4. Wire persistence, probing and the operation surface
	gate := storage.NewGate(store, reg, cfg.Persist.SaveInterval.Duration, logger)
	gate.SetInstruments(instruments)

	prober := checker.NewHTTPProber(cfg.Probe.Timeout.Duration)
	sched := scheduler.New(reg, prober, gate, logger)
	sched.SetInstruments(instruments)

	svc := monitor.New(reg, gate, sched, logger)

	pages, err := dashboard.NewRenderer()
	if err != nil {
		return err
	}
	srv := server.New(svc, pages, metrics, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Signal context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 6. Initial probe pass, then the check loop
	sched.Start(ctx)
	logger.Info("scheduler_started", zap.Int("resources", reg.Len()))

	// 7. Start HTTP server in background
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 8. Wait for signal or server error
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal_received")
	case err := <-serverErr:
		runErr = fmt.Errorf("HTTP server: %w", err)
		stop()
	}

	// 9. Graceful shutdown: stop accepting requests, let probes finish,
	// then write the final snapshot.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown", zap.Error(err))
	}

	sched.Wait()

	if err := svc.Shutdown(shutdownCtx, closers...); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}

	logger.Info("shutdown_complete")
	return runErr
}
