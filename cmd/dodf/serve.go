package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/dodf/api"
	"github.com/use-agent/dodf/api/handler"
	"github.com/use-agent/dodf/cache"
	"github.com/use-agent/dodf/extractor"
	"github.com/use-agent/dodf/models"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the extraction and run API over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	slog.Info("dodf starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"fetch_mode", cfg.Scraper.FetchMode,
	)
	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
		slog.Warn("auth is enabled but no API keys are configured; every protected request will be rejected")
	}

	// ── 1. Services ─────────────────────────────────────────────────
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ttl := cfg.Cache.TTL.Std()
	runs := handler.NewRunStore(a.runner, cfg.Cache.MaxEntries, ttl)
	previews := cache.New[*models.DocumentResponse](cfg.Cache.MaxEntries, ttl)

	stopSweep := make(chan struct{})
	defer close(stopSweep)
	if ttl > 0 {
		go previews.Run(ttl, stopSweep)
	}

	ex := extractor.New()

	// ── 2. Router ───────────────────────────────────────────────────
	router := api.NewRouter(cfg, api.Deps{
		Runs:      runs,
		Browsers:  a.scraper,
		Extractor: ex,
		Document: handler.DocumentDeps{
			Dispatcher: a.dispatcher,
			Cleaner:    a.cleaner,
			Extractor:  ex,
			Qualify:    a.runner.Qualify,
			Cache:      previews,
		},
		StartTime: time.Now(),
	})

	// ── 3. HTTP server ──────────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ── 4. Graceful shutdown ────────────────────────────────────────
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give in-flight requests 5 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// A run in progress owns a browser; let it finish and clean up.
	runs.Wait()
	slog.Info("dodf stopped")
	return nil
}
