package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cosminiq/Serial-comm-python-javascript/internal/transport"
)

var portsBridgeURL string

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports available on the bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client := transport.NewClient(portsBridgeURL)
		ports, err := client.ScanPorts(ctx)
		if err != nil {
			return fmt.Errorf("scan ports: %w", err)
		}
		if len(ports) == 0 {
			fmt.Println("No ports found.")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
	portsCmd.Flags().StringVar(&portsBridgeURL, "bridge-url", envStr("UARTMON_BRIDGE_URL", "http://127.0.0.1:5000"), "Bridge base URL")
}
