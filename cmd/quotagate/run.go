package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mercator-hq/quota-gate/pkg/cli"
	"github.com/mercator-hq/quota-gate/pkg/config"
	"github.com/mercator-hq/quota-gate/pkg/limits/enforcement"
	"github.com/mercator-hq/quota-gate/pkg/limits/evaluator"
	"github.com/mercator-hq/quota-gate/pkg/limits/storage"
	"github.com/mercator-hq/quota-gate/pkg/limits/subscription"
	"github.com/mercator-hq/quota-gate/pkg/server"
	"github.com/mercator-hq/quota-gate/pkg/telemetry/logging"
	"github.com/mercator-hq/quota-gate/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the rate limiting gateway",
	Long: `Start the gateway with the specified configuration.

The server listens on the configured address and applies the admission
filter to every request under /api/notify/ before forwarding to the
notification handlers.

Examples:
  # Start with default config
  quotagate run

  # Start with custom config
  quotagate run --config /etc/quotagate/config.yaml

  # Override listen address
  quotagate run --listen 0.0.0.0:8080

  # Validate config without starting server
  quotagate run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	// Initialize structured logging and make it the process default so
	// middleware and handler logs flow through the buffer and redactor.
	appLogger, err := logging.New(logging.Config{
		Level:          cfg.Telemetry.Logging.Level,
		Format:         cfg.Telemetry.Logging.Format,
		AddSource:      cfg.Telemetry.Logging.AddSource,
		RedactPII:      cfg.Telemetry.Logging.RedactPII,
		BufferSize:     cfg.Telemetry.Logging.BufferSize,
		RedactPatterns: cfg.Telemetry.Logging.RedactPatterns,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	defer appLogger.Shutdown()
	slog.SetDefault(appLogger.Slog())

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Quota Gate v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Counter store: Redis in production, in-memory for single-instance
	// development runs.
	var counters storage.CounterStore
	switch cfg.Counters.Backend {
	case "redis":
		redisStore, err := storage.NewRedisCounterStore(storage.RedisCounterStoreConfig{
			Address:      cfg.Counters.Redis.Address,
			Password:     cfg.Counters.Redis.Password,
			DB:           cfg.Counters.Redis.DB,
			DialTimeout:  cfg.Counters.Redis.DialTimeout,
			ReadTimeout:  cfg.Counters.Redis.ReadTimeout,
			WriteTimeout: cfg.Counters.Redis.WriteTimeout,
			PoolSize:     cfg.Counters.Redis.PoolSize,
		})
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer redisStore.Close()
		counters = redisStore
		fmt.Printf("✓ Counter store connected (redis %s)\n", cfg.Counters.Redis.Address)
	case "memory":
		counters = storage.NewMemoryCounterStore()
		slog.Warn("using in-memory counter store; limits are per-instance, not shared")
		fmt.Println("✓ Counter store initialized (memory)")
	default:
		return cli.NewConfigError("counters.backend", fmt.Sprintf("unsupported backend: %s", cfg.Counters.Backend))
	}

	// Durable store for plans, clients, and global rules.
	var (
		durable     server.DurableStore
		housekeeper *storage.Housekeeper
	)
	switch cfg.Durable.Backend {
	case "sqlite":
		sqliteStore, err := storage.NewDurableStore(storage.DurableStoreConfig{
			Path:         cfg.Durable.SQLite.Path,
			MaxOpenConns: cfg.Durable.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Durable.SQLite.MaxIdleConns,
			WALMode:      cfg.Durable.SQLite.WALMode,
			BusyTimeout:  cfg.Durable.SQLite.BusyTimeout,
		})
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer sqliteStore.Close()
		durable = sqliteStore

		if cfg.Durable.SQLite.WALMode {
			housekeeper, err = storage.NewHousekeeper(sqliteStore, cfg.Durable.Housekeeping.CheckpointSchedule, appLogger.Slog())
			if err != nil {
				return cli.NewConfigError("durable.housekeeping.checkpoint_schedule", err.Error())
			}
		}
		fmt.Printf("✓ Durable store opened (%s)\n", cfg.Durable.SQLite.Path)
	case "memory":
		durable = storage.NewMemoryDurableStore()
		slog.Warn("using in-memory durable store; plans and clients do not survive restarts")
		fmt.Println("✓ Durable store initialized (memory)")
	default:
		return cli.NewConfigError("durable.backend", fmt.Sprintf("unsupported backend: %s", cfg.Durable.Backend))
	}

	// Metrics collector.
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	if housekeeper != nil {
		if collector != nil {
			housekeeper.OnCheckpoint(collector.Store().RecordWALCheckpoint)
		}
		housekeeper.Start()
		defer housekeeper.Stop()
	}

	// Throttle thresholds, with optional hot-reload from disk.
	thresholds := enforcement.DefaultThresholds()
	if cfg.Throttle.ThresholdsPath != "" {
		loaded, err := enforcement.LoadThresholds(cfg.Throttle.ThresholdsPath)
		if err != nil {
			return cli.NewConfigError("throttle.thresholds_path", err.Error())
		}
		thresholds = loaded
	}
	provider := enforcement.NewProvider(thresholds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Throttle.ThresholdsPath != "" && cfg.Throttle.WatchThresholds {
		watcher, err := enforcement.NewWatcher(cfg.Throttle.ThresholdsPath, provider, appLogger.Slog())
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				slog.Error("threshold watcher stopped", "error", err)
			}
		}()
	}

	// Subscription resolver and atomic evaluator over the two stores.
	keyPrefix := cfg.Counters.Redis.KeyPrefix
	resolver := subscription.New(counters, durable, keyPrefix, subscription.Config{
		MinCacheTTL:      cfg.Subscriptions.MinCacheTTL,
		MaxCacheTTL:      cfg.Subscriptions.MaxCacheTTL,
		DefaultCacheTTL:  cfg.Subscriptions.DefaultCacheTTL,
		NegativeCacheTTL: cfg.Subscriptions.NegativeCacheTTL,
	})
	if collector != nil {
		resolver.OnLookup(collector.Cache().RecordLookup)
	}
	eval := evaluator.New(counters, keyPrefix)

	srv := server.NewServer(cfg, server.Dependencies{
		Durable:    durable,
		Counters:   counters,
		Resolver:   resolver,
		Evaluator:  eval,
		Thresholds: provider,
		Collector:  collector,
	})

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Health.LivenessPath)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}
