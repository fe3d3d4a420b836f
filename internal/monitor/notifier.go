package monitor

import "log/slog"

// Notification levels, matching the toast styling at the UI boundary.
const (
	NotifySuccess = "success"
	NotifyInfo    = "info"
	NotifyWarning = "warning"
	NotifyError   = "error"
)

// Notifier surfaces transient operator notifications. The presentation layer
// is out of core scope; the default implementation logs them.
type Notifier interface {
	Notify(level, text string)
}

type slogNotifier struct{}

func (slogNotifier) Notify(level, text string) {
	switch level {
	case NotifyError:
		slog.Error(text)
	case NotifyWarning:
		slog.Warn(text)
	default:
		slog.Info(text)
	}
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(level, text string) {}
