package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service the bridge advertises on the LAN.
const ServiceType = "_uartbridge._tcp"

// DefaultLookupTimeout bounds a single browse pass.
const DefaultLookupTimeout = 3 * time.Second

// Bridge is one discovered bridge endpoint.
type Bridge struct {
	Host string
	Addr net.IP
	Port int
}

// BaseURL is the http:// form of the endpoint, suitable for transport.NewClient.
func (b Bridge) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", b.Addr, b.Port)
}

// StreamURL is the ws:// form of the endpoint's push stream.
func (b Bridge) StreamURL() string {
	return fmt.Sprintf("ws://%s:%d/ws", b.Addr, b.Port)
}

// Lookup browses the LAN for an advertised bridge and returns the first usable
// entry. Discovery is best-effort: callers fall back to their configured
// address when it fails.
func Lookup(ctx context.Context, timeout time.Duration) (Bridge, error) {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}

	entries := make(chan *mdns.ServiceEntry, 8)
	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	queryErr := make(chan error, 1)
	go func() {
		queryErr <- mdns.Query(params)
		close(entries)
	}()

	for {
		select {
		case <-ctx.Done():
			return Bridge{}, ctx.Err()
		case entry, ok := <-entries:
			if !ok {
				if err := <-queryErr; err != nil {
					return Bridge{}, fmt.Errorf("mdns query: %w", err)
				}
				return Bridge{}, fmt.Errorf("no %s service found within %s", ServiceType, timeout)
			}
			if entry == nil || entry.AddrV4 == nil || entry.Port <= 0 {
				continue
			}
			b := Bridge{Host: entry.Host, Addr: entry.AddrV4, Port: entry.Port}
			slog.Info("discovered bridge", "host", b.Host, "addr", b.Addr, "port", b.Port)
			// Drain the channel so the in-flight query never blocks on send.
			go func() {
				for range entries {
				}
			}()
			return b, nil
		}
	}
}
