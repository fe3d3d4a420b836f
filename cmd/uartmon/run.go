package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/discovery"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/logger"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/monitor"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/msglog"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/ports"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/session"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/sim"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/stats"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/transport"
)

var (
	runBridgeURL     string
	runDiscover      bool
	runStatsInterval time.Duration
	runDemo          bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitor against a bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := defaultRunConfig()
		if err := loadConfigFile(cfgFile, &cfg); err != nil {
			return err
		}
		// Explicit flags win over the config file.
		if cmd.Flags().Changed("bridge-url") {
			cfg.BridgeURL = runBridgeURL
		}
		if cmd.Flags().Changed("discover") {
			cfg.Discover = runDiscover
		}
		if cmd.Flags().Changed("stats-interval") {
			cfg.StatsInterval = runStatsInterval
		}
		cfg.StateDir = cfgStateDir
		cfg.Verbose = cfgVerbose
		cfg.Demo = runDemo

		if err := validateConfig(cfg); err != nil {
			return err
		}
		logger.Setup(cfg.StateDir, cfg.Verbose)
		return runMonitor(cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	defaults := defaultRunConfig()
	runCmd.Flags().StringVar(&runBridgeURL, "bridge-url", defaults.BridgeURL, "Bridge base URL")
	runCmd.Flags().BoolVar(&runDiscover, "discover", false, "Locate a bridge on the LAN via mDNS")
	runCmd.Flags().DurationVar(&runStatsInterval, "stats-interval", defaults.StatsInterval, "How often to log a stats snapshot")
	runCmd.Flags().BoolVar(&runDemo, "demo", false, "Run against an embedded simulated bridge")
}

func runMonitor(cfg Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Embedded sim bridge for demo mode: bind first so the URL is known
	// before anything dials it.
	if cfg.Demo {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("demo listener: %w", err)
		}
		simSrv := sim.NewServer(3 * time.Second)
		go func() {
			if err := simSrv.Serve(l); err != nil {
				slog.Debug("sim bridge stopped", "error", err)
			}
		}()
		defer simSrv.Shutdown()
		cfg.BridgeURL = "http://" + l.Addr().String()
		slog.Info("demo mode: embedded sim bridge", "url", cfg.BridgeURL)
	}

	if cfg.Discover {
		if b, err := discovery.Lookup(ctx, 0); err != nil {
			slog.Warn("bridge discovery failed, using configured url", "error", err)
		} else {
			cfg.BridgeURL = b.BaseURL()
		}
	}

	client := transport.NewClient(cfg.BridgeURL)
	reg := session.NewRegistry()
	store := msglog.NewStore(reg)
	agg := stats.NewAggregator(reg, store)
	ctrl := monitor.New(reg, client, store)
	dir := ports.NewDirectory(client)

	available, err := dir.Refresh(ctx)
	if err != nil {
		slog.Warn("initial port scan failed, seeding fallback list", "error", err)
		dir.Seed(cfg.FallbackPorts)
		available = dir.Current()
	}

	// One session ready to go, pre-pointed at the first known port.
	first := ctrl.AddSession()
	if len(available) > 0 {
		first.SetPort(available[0])
	}

	stream := transport.NewStream(transport.StreamConfig{URL: streamURL(cfg.BridgeURL)}, ctrl)
	streamErr := make(chan error, 1)
	go func() { streamErr <- stream.Run(ctx) }()

	printBanner(cfg)

	ticker := time.NewTicker(cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			ctrl.DisconnectAll(shutdownCtx)
			shutdownCancel()
			return nil

		case err := <-streamErr:
			if errors.Is(err, transport.ErrStreamTimeout) {
				// REST keeps working without the stream; report once and stay up.
				slog.Error("push stream unavailable", "url", streamURL(cfg.BridgeURL), "timeout", transport.DefaultOpenTimeout)
				continue
			}
			if err != nil {
				return fmt.Errorf("push stream: %w", err)
			}

		case <-ticker.C:
			snap := agg.Snapshot()
			slog.Info("stats",
				"active_sessions", snap.ActiveSessions,
				"total_sessions", snap.TotalSessions,
				"total_messages", snap.TotalMessages,
				"uptime", snap.Uptime.Round(time.Second),
			)
		}
	}
}

func printBanner(cfg Config) {
	fmt.Printf("\n")
	fmt.Printf("  uartmon v%s\n", version)
	fmt.Printf("  bridge: %s  stream: %s\n", cfg.BridgeURL, streamURL(cfg.BridgeURL))
	fmt.Printf("  state: %s\n", cfg.StateDir)
	fmt.Printf("\n")
}
