package oraclerelayd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"rewardhub/native/oracle"
	"rewardhub/observability/logging"
	telemetry "rewardhub/observability/otel"
)

// Main runs the oracle relay daemon using the provided command line flags.
func Main() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/oracle-relayd/config.yaml", "path to oracle relay config")
	flag.Parse()

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env := cfg.Environment
	if env == "" {
		env = strings.TrimSpace(os.Getenv("REWARDHUB_ENV"))
	}
	logger := logging.Setup("oracle-relayd", env)

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "oracle-relayd",
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Endpoint != "",
		Traces:      cfg.Telemetry.Endpoint != "",
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	secret := cfg.Hub.ResolveSecret()
	if secret == "" {
		return fmt.Errorf("hub secret missing: set hub.secret or %s", cfg.Hub.SecretEnv)
	}

	store, err := OpenStore(cfg.StatePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := ethclient.DialContext(dialCtx, cfg.EVM.RPCURL)
	cancel()
	if err != nil {
		return fmt.Errorf("dial evm rpc: %w", err)
	}
	defer client.Close()

	parsed, err := oracle.ParseOracleABI()
	if err != nil {
		return err
	}
	watcher, err := NewWatcher(client, NewDeliverer(cfg.Hub, secret), store, WatcherConfig{
		Oracle:        ethcommon.HexToAddress(cfg.EVM.OracleAddress),
		ABI:           parsed,
		StartBlock:    cfg.EVM.StartBlock,
		Confirmations: cfg.EVM.Confirmations,
		BatchBlocks:   cfg.EVM.BatchBlocks,
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("oracle relay started",
		slog.String("oracle", cfg.EVM.OracleAddress),
		slog.String("hub", cfg.Hub.URL),
		slog.Duration("poll", cfg.EVM.PollInterval.Duration))
	if err := watcher.Run(ctx, cfg.EVM.PollInterval.Duration); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("oracle relay stopped")
	return nil
}
