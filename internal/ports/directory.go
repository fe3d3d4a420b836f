package ports

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultScanInterval throttles how often the bridge is asked to re-enumerate
// hardware. Refreshes inside the window serve the cached list.
const DefaultScanInterval = 5 * time.Second

// Scanner enumerates device endpoints. Implemented by transport.Client.
type Scanner interface {
	ScanPorts(ctx context.Context) ([]string, error)
}

// Directory holds the known device endpoints on the bridge host. The list is
// replaced wholesale on every successful scan; a failed scan keeps the last
// good list so stale-but-plausible ports remain selectable.
type Directory struct {
	scanner  Scanner
	interval time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	ports    []string
	lastScan time.Time
}

// Option customizes a Directory.
type Option func(*Directory)

// WithScanInterval overrides the refresh throttle window.
func WithScanInterval(d time.Duration) Option {
	return func(dir *Directory) { dir.interval = d }
}

// WithClock substitutes the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(dir *Directory) { dir.now = now }
}

// NewDirectory creates an empty directory over the scanner.
func NewDirectory(scanner Scanner, opts ...Option) *Directory {
	d := &Directory{
		scanner:  scanner,
		interval: DefaultScanInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Refresh re-enumerates ports, subject to the throttle window. Within the
// window the cached list is returned without touching the scanner. On scan
// failure the cached list is returned alongside the error.
func (d *Directory) Refresh(ctx context.Context) ([]string, error) {
	d.mu.RLock()
	fresh := !d.lastScan.IsZero() && d.now().Sub(d.lastScan) < d.interval
	cached := d.snapshotLocked()
	d.mu.RUnlock()
	if fresh {
		return cached, nil
	}

	scanned, err := d.scanner.ScanPorts(ctx)
	if err != nil {
		slog.Warn("port scan failed, keeping cached list", "cached", len(cached), "error", err)
		return cached, err
	}

	d.mu.Lock()
	d.ports = append([]string(nil), scanned...)
	d.lastScan = d.now()
	out := d.snapshotLocked()
	d.mu.Unlock()

	slog.Debug("port list refreshed", "count", len(out))
	return out, nil
}

// Current returns the cached port list without scanning.
func (d *Directory) Current() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked()
}

// Seed installs an initial list without marking a scan, so the next Refresh
// still consults the scanner. Used for fallback port lists.
func (d *Directory) Seed(ports []string) {
	d.mu.Lock()
	d.ports = append([]string(nil), ports...)
	d.mu.Unlock()
}

func (d *Directory) snapshotLocked() []string {
	out := make([]string, len(d.ports))
	copy(out, d.ports)
	return out
}
