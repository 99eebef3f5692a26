package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"quantlab/internal/config"
	"quantlab/internal/httpapi"
	"quantlab/internal/metrics"
	"quantlab/internal/quotes"
	"quantlab/internal/strategy"
	"quantlab/internal/strategy/builtins"
	"quantlab/internal/util"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfgPath := "config/quantlab.yaml"
	if p := os.Getenv("QUANTLAB_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, closeLog := util.NewLoggerFromConfig(cfg.Logging)
	defer closeLog()
	slog.SetDefault(logger)

	registry := strategy.NewRegistry()
	builtins.Register(registry)

	alpaca := quotes.NewAlpacaClient(cfg.Alpaca)
	if !alpaca.Configured() {
		logger.Warn("alpaca credentials missing, /api/alpaca-bars will return 503")
	}

	srv := httpapi.NewServer(httpapi.Deps{
		Config:     cfg.Server,
		Log:        logger,
		Metrics:    metrics.New(),
		Backtester: strategy.NewBacktester(registry),
		Yahoo:      quotes.NewYahooClient(cfg.Upstream),
		Alpaca:     alpaca,
	})
	httpServer := srv.HTTPServer()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("quantlab server listening", "addr", httpServer.Addr, "strategies", registry.List())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down quantlab server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "error", err)
		closeLog()
		os.Exit(1)
	}
}
