package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"stakeledger/config"
	"stakeledger/core"
	"stakeledger/core/events"
	"stakeledger/eventlog"
	nativecommon "stakeledger/native/common"
	"stakeledger/observability"
	"stakeledger/observability/logging"
	telemetry "stakeledger/observability/otel"
	"stakeledger/rpc"
	"stakeledger/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configFile := flag.String("config", "./stakingd.toml", "Path to the configuration file")
	paused := flag.Bool("paused", false, "Start with the staking module paused")
	flag.Parse()

	if err := run(*configFile, *paused); err != nil {
		fmt.Fprintf(os.Stderr, "stakingd: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, startPaused bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(logging.Options{
		Service:    cfg.Telemetry.ServiceName,
		Env:        cfg.Environment,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy, err := cfg.StakingPolicy()
	if err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Service:       cfg.Telemetry.ServiceName,
		Environment:   cfg.Environment,
		Collector:     cfg.Telemetry.Endpoint,
		Plaintext:     cfg.Telemetry.Insecure,
		Headers:       parseHeaders(cfg.Telemetry.Headers),
		ExportTraces:  cfg.Telemetry.Traces,
		ExportMetrics: cfg.Telemetry.Metrics,
		Policy:        policy,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	stream := events.NewBroadcaster()
	sinks := events.Fanout{stream, observability.Events()}
	var archive *eventlog.Store
	if !cfg.EventLog.Disabled {
		gdb, err := eventlog.Open(cfg.EventLog.DSN)
		if err != nil {
			return fmt.Errorf("open event archive: %w", err)
		}
		archive, err = eventlog.NewStore(gdb, logger.With("component", "eventlog"))
		if err != nil {
			return err
		}
		sinks = append(sinks, archive)
	}

	modules := cfg.PausedModules()
	if startPaused {
		modules = append(modules, "staking")
	}
	node, err := core.NewNode(db, policy,
		core.WithEmitter(sinks),
		core.WithLogger(logger),
		core.WithPauses(nativecommon.NewPauses(modules...)),
	)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}

	server, err := rpc.NewServer(node, archive, stream, serverConfig(cfg), logger)
	if err != nil {
		return fmt.Errorf("initialise RPC server: %w", err)
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Warn("auth JWTSecret not configured; mutating RPC methods will reject every caller")
	}

	ln, err := net.Listen("tcp", cfg.RPCAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ln)
	}()
	logger.Info("stakingd running",
		slog.String("rpc", ln.Addr().String()),
		slog.String("accounting", string(policy.Accounting)),
		slog.String("early_reward", string(policy.EarlyReward)),
		slog.Bool("event_archive", archive != nil))

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("rpc server terminated: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("stakingd stopped")
	return nil
}

func serverConfig(cfg *config.Config) rpc.ServerConfig {
	return rpc.ServerConfig{
		Auth: rpc.AuthConfig{
			HMACSecret: cfg.Auth.JWTSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			MaxTTL:     time.Duration(cfg.Auth.MaxTokenTTLSeconds) * time.Second,
		},
		RateLimit: rpc.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		FaucetEnabled:     cfg.Faucet.Enabled,
		ReadHeaderTimeout: time.Duration(cfg.RPCReadHeaderTimeout) * time.Second,
		ReadTimeout:       time.Duration(cfg.RPCReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.RPCWriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.RPCIdleTimeout) * time.Second,
	}
}

// parseHeaders reads "k1=v1,k2=v2" exporter headers.
func parseHeaders(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}
