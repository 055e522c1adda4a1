package internal

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

const (
	// slog does not define trace and fatal levels, so we define them here.
	LevelTrace = slog.LevelDebug - 4
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelFatal = slog.LevelError + 4
	LevelPanic = slog.LevelError + 8

	Disable = slog.LevelInfo + 1000 // A level that disables logging, used for testing or no-op logger.

	modulePath = "github.com/getlantern/oauthdance/"
)

// NewLogger returns a text logger writing to w. Timestamps are printed in UTC and the source is
// reduced to the package relative file and the function name.
func NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, HandlerOptions(level)))
}

// HandlerOptions returns the handler options shared by every logger in the module.
func HandlerOptions(level slog.Leveler) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		AddSource:   true,
		Level:       level,
		ReplaceAttr: replaceAttr,
	}
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.UTC().Format("2006-01-02 15:04:05.000 UTC"))
		}
	case slog.SourceKey:
		source, ok := a.Value.Any().(*slog.Source)
		if !ok {
			return a
		}
		pkg, fn := splitFunction(source.Function)
		file := filepath.Base(source.File)
		if pkg != "" {
			file = pkg + "/" + file
		}
		a.Value = slog.GroupValue(
			slog.String("func", fn),
			slog.String("file", fmt.Sprintf("%s:%d", file, source.Line)),
		)
	case slog.LevelKey:
		// print the custom levels by name, otherwise slog prints e.g. "DEBUG-4" for trace
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(FormatLogLevel(level))
		}
	}
	return a
}

// splitFunction splits a fully qualified function name such as
// github.com/getlantern/oauthdance/dance.(*Controller).begin into its package path relative to
// the module ("dance") and the function ("(*Controller).begin").
func splitFunction(function string) (pkg, fn string) {
	function = strings.TrimPrefix(function, modulePath)
	slash := strings.LastIndex(function, "/")
	pkg, fn, found := strings.Cut(function[slash+1:], ".")
	if !found {
		return "", function
	}
	if slash >= 0 {
		pkg = function[:slash+1] + pkg
	}
	return pkg, fn
}

// ParseLogLevel parses a string representation of a log level and returns the corresponding slog.Level.
// If the level is not recognized, it returns LevelInfo.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	case "panic":
		return LevelPanic, nil
	case "disable", "none", "off":
		return Disable, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

func FormatLogLevel(level slog.Level) string {
	switch {
	case level < LevelDebug:
		return "TRACE"
	case level < LevelInfo:
		return "DEBUG"
	case level < LevelWarn:
		return "INFO"
	case level < LevelError:
		return "WARN"
	case level < LevelFatal:
		return "ERROR"
	case level < LevelPanic:
		return "FATAL"
	default:
		return "PANIC"
	}
}

// NoOpLogger returns a logger that discards everything.
func NoOpLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
