// Package env reads OAUTHDANCE_* settings from a .env file in the working directory and from the
// process environment. Process variables win.
package env

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Key = string

const (
	LogLevel       Key = "OAUTHDANCE_LOG_LEVEL"
	LogPath        Key = "OAUTHDANCE_LOG_PATH"
	DataPath       Key = "OAUTHDANCE_DATA_PATH"
	ConsumerKey    Key = "OAUTHDANCE_CONSUMER_KEY"
	ConsumerSecret Key = "OAUTHDANCE_CONSUMER_SECRET"
	SentryDSN      Key = "OAUTHDANCE_SENTRY_DSN"
	OTELEndpoint   Key = "OAUTHDANCE_OTEL_ENDPOINT"
)

var keys = []Key{LogLevel, LogPath, DataPath, ConsumerKey, ConsumerSecret, SentryDSN, OTELEndpoint}

var (
	mu      sync.RWMutex
	envVars = map[string]any{}
)

func init() {
	load(".env")
}

func load(dotEnv string) {
	vars := map[string]any{}
	buf, err := os.ReadFile(dotEnv)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error(".env file found, but failed to read", slog.Any("error", err))
	} else if err == nil {
		for line := range strings.SplitSeq(string(buf), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			key, value, ok := strings.Cut(line, "=")
			if ok {
				vars[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
			}
		}
	}
	for _, key := range keys {
		if value, exists := os.LookupEnv(key); exists {
			vars[key] = value
		}
	}
	mu.Lock()
	envVars = vars
	mu.Unlock()
}

// Get returns the value of key if it is set and of type T.
func Get[T any](key Key) (T, bool) {
	mu.RLock()
	value, exists := envVars[key]
	mu.RUnlock()
	if exists {
		if v, ok := value.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// String returns the value of key, or fallback when it is unset or empty.
func String(key Key, fallback string) string {
	if v, ok := Get[string](key); ok && v != "" {
		return v
	}
	return fallback
}
