package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags
	cfgStateDir string
	cfgFile     string
	cfgVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "uartmon",
	Short: "Multi-UART serial monitor",
	Long: `uartmon manages logical serial sessions against a UART bridge service:
it connects and disconnects ports, sends commands, collects device traffic
over the bridge's push stream, and exports session logs for offline
inspection.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgStateDir, "state-dir", defaultStateDir(), "Directory for logs and state")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", envStr("UARTMON_CONFIG", ""), "Optional YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&cfgVerbose, "verbose", "v", false, "Debug logging on the console")
}

// defaultStateDir returns XDG_STATE_HOME/uartmon or ~/.local/state/uartmon.
func defaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "uartmon")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".uartmon", "state")
	}
	return filepath.Join(home, ".local", "state", "uartmon")
}
