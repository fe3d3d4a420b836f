package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/logger"
	"github.com/cosminiq/Serial-comm-python-javascript/internal/sim"
)

var (
	simAddr     string
	simInterval time.Duration
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run a standalone simulated bridge",
	Long: `Sim serves the full bridge surface with fake serial sessions: connected
sessions emit canned device chatter on the push stream. Useful for developing
against uartmon without hardware.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Setup(cfgStateDir, cfgVerbose)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		srv := sim.NewServer(simInterval)
		errc := make(chan error, 1)
		go func() { errc <- srv.Start(simAddr) }()

		select {
		case <-ctx.Done():
			slog.Info("shutting down sim bridge...")
			return srv.Shutdown()
		case err := <-errc:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(simCmd)
	simCmd.Flags().StringVar(&simAddr, "addr", envStr("UARTMON_SIM_ADDR", "127.0.0.1:5000"), "Listen address")
	simCmd.Flags().DurationVar(&simInterval, "interval", 3*time.Second, "Canned device chatter cadence")
}
