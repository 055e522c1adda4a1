package common

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/getlantern/oauthdance/common/env"
	"github.com/getlantern/oauthdance/internal"
)

const defaultLogLevel = "info"

var (
	initMutex   sync.Mutex
	initialized bool
	logFile     *lumberjack.Logger
)

// Init initializes the common components of the application: the data and log directories and the
// default logger. It is a no-op after the first successful call.
func Init(dataDir, logDir, logLevel string) error {
	initMutex.Lock()
	defer initMutex.Unlock()
	if initialized {
		return nil
	}

	dataDir, logDir, err := SetupDirectories(dataDir, logDir)
	if err != nil {
		return fmt.Errorf("failed to setup directories: %w", err)
	}

	initLogger(filepath.Join(logDir, LogFileName), logLevel, os.Stdout)
	slog.Debug("Initialized", "app", Name, "version", Version, "data_dir", dataDir, "log_dir", logDir)
	initialized = true
	return nil
}

// Close flushes and closes the log file.
func Close(context.Context) error {
	initMutex.Lock()
	defer initMutex.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	initialized = false
	return err
}

// initLogger reconfigures the default slog.Logger to write to a rotating file and stdout. The
// environment variable takes precedence over the given level; both fall back to info.
func initLogger(logPath, level string, stdout io.Writer) {
	lvl := resolveLogLevel(level)
	logFile = &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}
	slog.SetDefault(internal.NewLogger(io.MultiWriter(stdout, logFile), lvl))
}

func resolveLogLevel(level string) slog.Level {
	if envLvl, ok := env.Get[string](env.LogLevel); ok && envLvl != "" {
		lvl, err := internal.ParseLogLevel(envLvl)
		if err == nil {
			return lvl
		}
		slog.Warn("Failed to parse "+env.LogLevel, "error", err)
	}
	if level == "" {
		level = defaultLogLevel
	}
	lvl, err := internal.ParseLogLevel(level)
	if err != nil {
		slog.Warn("Failed to parse given log level", "error", err)
		return slog.LevelInfo
	}
	return lvl
}
