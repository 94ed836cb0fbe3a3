package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/efreitasn/replaytrader/internal/clock"
	"github.com/efreitasn/replaytrader/internal/config"
	"github.com/efreitasn/replaytrader/internal/engine"
	"github.com/efreitasn/replaytrader/internal/handler"
	"github.com/efreitasn/replaytrader/internal/metrics"
	"github.com/efreitasn/replaytrader/internal/series"
	"github.com/efreitasn/replaytrader/internal/service"
	"github.com/efreitasn/replaytrader/internal/store"
	"github.com/efreitasn/replaytrader/internal/stream"
)

func runServe(cmd *cobra.Command, _ []string) error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Series provider.
	provider, closeProvider, err := openProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeProvider()

	// Presentation: websocket hub and metrics, both fed by the session.
	hub := stream.NewHub(logger)
	recorder := metrics.NewRecorder()
	go hub.Run(ctx)

	// Session.
	session := engine.NewSession(
		clock.Real{},
		cfg.BaseInterval,
		store.NewOrderStore(),
		store.NewTransactionLog(),
		engine.NewLedger(cfg.InitialCash),
		engine.Notifiers{hub, recorder},
		logger,
	)

	// Router.
	router := handler.NewRouter(handler.Services{
		Replay:    service.NewReplayService(session, provider),
		Orders:    service.NewOrderService(session),
		Portfolio: service.NewPortfolioService(session),
	}, hub, recorder.Handler(), logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("series_source", cfg.SeriesSource),
			slog.String("initial_cash", cfg.InitialCash.String()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for SIGINT/SIGTERM or a server failure.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown: halt playback, stop HTTP server, cancel context
	// (stops the hub).
	session.Pause()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
	return nil
}

// openProvider returns the configured series provider and its release
// function.
func openProvider(ctx context.Context, cfg *config.Config) (series.Provider, func(), error) {
	switch cfg.SeriesSource {
	case config.SourceSQLite:
		db, err := series.OpenSQLite(ctx, cfg.SeriesDB)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	default:
		return series.NewFileProvider(cfg.SeriesDir), func() {}, nil
	}
}
