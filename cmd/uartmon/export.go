package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/transport"
)

var (
	exportBridgeURL string
	exportCount     int
	exportOutput    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export session data from the bridge as JSON",
	Long: `Export fetches a snapshot of every session on the bridge: configuration,
traffic counters and the most recent messages, plus global stats and the
current port list. Writes to --output, or a timestamped file by default.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client := transport.NewClient(exportBridgeURL)
		snap, err := client.Export(ctx, exportCount)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}

		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("encode export: %w", err)
		}

		out := exportOutput
		if out == "-" {
			fmt.Println(string(data))
			return nil
		}
		if out == "" {
			out = fmt.Sprintf("uart_export_%s.json", time.Now().Format("20060102_150405"))
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Printf("Exported %d sessions to %s\n", len(snap.Sessions), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportBridgeURL, "bridge-url", envStr("UARTMON_BRIDGE_URL", "http://127.0.0.1:5000"), "Bridge base URL")
	exportCmd.Flags().IntVar(&exportCount, "message-count", envInt("UARTMON_EXPORT_COUNT", 50), "Most recent messages per session (0 = all retained)")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "Output file (\"-\" for stdout)")
}
