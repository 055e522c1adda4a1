// Package reporting sends errors to Sentry when a DSN is configured.
package reporting

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

var enabled atomic.Bool

// Init configures Sentry. Without a DSN reporting stays disabled and every other function in this
// package is a no-op.
func Init(dsn, version string) {
	if dsn == "" {
		slog.Debug("No sentry DSN configured, error reporting disabled")
		return
	}
	initWith(sentry.ClientOptions{
		Dsn:              dsn,
		AttachStacktrace: true,
		Release:          version,
	})
}

func initWith(opts sentry.ClientOptions) {
	if err := sentry.Init(opts); err != nil {
		slog.Error("sentry.Init:", "error", err)
		return
	}
	enabled.Store(true)
}

// Enabled reports whether errors are being sent to Sentry.
func Enabled() bool {
	return enabled.Load()
}

// CaptureError reports err with the given tags.
func CaptureError(err error, tags map[string]string) {
	if err == nil || !enabled.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}

func PanicListener(msg string) {
	if !enabled.Load() {
		return
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelFatal)
	})

	sentry.CaptureMessage(msg)
	Flush(6 * time.Second)
}

// Flush waits up to timeout for buffered events to be sent.
func Flush(timeout time.Duration) {
	if !enabled.Load() {
		return
	}
	if ok := sentry.Flush(timeout); !ok {
		slog.Error("sentry.Flush: timeout")
	}
}
