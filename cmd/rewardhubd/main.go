// Command rewardhubd runs the campaign ledger, the oracle settlement module
// and the HTTP gateway in one process.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rewardhub/config"
	"rewardhub/observability/logging"
	telemetry "rewardhub/observability/otel"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "rewardhub.toml", "path to node configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logging.Setup("rewardhubd", "").Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.SetupWithFile("rewardhubd", cfg.Environment, logging.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}, logging.ParseLevel(cfg.Log.Level))

	if err := run(cfg, logger); err != nil {
		logger.Error("rewardhubd exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "rewardhubd",
		Version:     version,
		Environment: cfg.Environment,
		Endpoint:    strings.TrimSpace(cfg.Telemetry.Endpoint),
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	n, err := newNode(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer n.Close()

	if n.localHost != nil {
		go n.localHost.Run(ctx, config.Seconds(cfg.Oracle.Local.SettleIntervalSec))
	} else {
		go n.settlement.RunReconciler(ctx, config.Seconds(cfg.Oracle.EVM.ReconcileIntervalSec))
	}

	srv := &http.Server{
		Addr:              cfg.Gateway.ListenAddress,
		Handler:           n.server.Handler(),
		ReadHeaderTimeout: config.Seconds(cfg.Gateway.ReadHeaderTimeoutSec),
		ReadTimeout:       config.Seconds(cfg.Gateway.ReadTimeoutSec),
		WriteTimeout:      config.Seconds(cfg.Gateway.WriteTimeoutSec),
		IdleTimeout:       config.Seconds(cfg.Gateway.IdleTimeoutSec),
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening",
			slog.String("listen", cfg.Gateway.ListenAddress),
			slog.String("backend", cfg.Storage.Backend),
			slog.String("oracle_host", cfg.Oracle.Host))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
