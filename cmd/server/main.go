package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodprices/internal/api"
	"foodprices/internal/app"
	"foodprices/internal/config"
	"foodprices/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the global food prices dataset over HTTP",
		Long: `Loads the global food prices dataset and serves filtered views,
group counts, average prices and descriptive statistics under /api.

The API answers 503 until the dataset has finished loading.`,
		SilenceUsage: true,
	}
	configFile := app.BindFlags(cmd, v)
	cmd.Flags().String("addr", "", "Listen address")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := app.Setup(v, *configFile)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	}
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	// 1. Initialize Handler with NIL data
	// The API is live but returns 503 while loading
	h := api.NewHandler(nil, cfg.Query.PreviewRows)
	e := api.NewServer(h, log)

	// 2. Load the dataset in the background
	log.Info("Loading dataset in background", zap.String("path", cfg.Data.Path), zap.String("engine", cfg.Query.Engine))
	t0 := time.Now()
	loader := app.LoadAsync(ctx, func(ctx context.Context) (*app.Backend, error) {
		backend, err := app.Open(ctx, cfg, log, nil)
		if err != nil {
			log.Error("Dataset load failed", zap.Error(err))
		}
		return backend, err
	}, func(backend *app.Backend) {
		h.SetBackend(backend, backend.Report)
		log.Info("Dataset ready", zap.Duration("elapsed", time.Since(t0)))
	})

	// 3. Start Server
	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", cfg.Server.Addr))
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("Shutdown failed", zap.Error(err))
	}

	if err := loader.Close(10 * time.Second); err != nil {
		log.Warn("Dataset release failed", zap.Error(err))
	}
	return runErr
}
