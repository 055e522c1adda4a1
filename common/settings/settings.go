// Package settings persists the application settings as JSON in the data directory.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/getlantern/oauthdance/common/atomicfile"
)

// Keys for various settings.
const (
	ConsumerKeyKey     = "consumer_key"
	ConsumerSecretKey  = "consumer_secret"
	RequestTokenURLKey = "request_token_url"
	AuthorizeURLKey    = "authorize_url"
	AccessTokenURLKey  = "access_token_url"
	CallbackURLKey     = "callback_url"
	DataPathKey        = "data_path"
	LogPathKey         = "log_path"
	LogLevelKey        = "log_level"
	SentryDSNKey       = "sentry_dsn"
	OTELEndpointKey    = "otel_endpoint"
	OTELHeadersKey     = "otel_headers"
	OTELInsecureKey    = "otel_insecure"
	OTELSampleRateKey  = "otel_sample_rate"
	DanceTimeoutKey    = "dance_timeout"
	DeviceIDKey        = "device_id"
	filePathKey        = "file_path"

	settingsFileName = "oauthdance.json"
)

var defaults = map[string]any{
	RequestTokenURLKey: "https://api.bluevia.com/services/REST/Oauth/getRequestToken/",
	AuthorizeURLKey:    "https://connect.bluevia.com/authorise",
	AccessTokenURLKey:  "https://api.bluevia.com/services/REST/Oauth/getAccessToken/",
	CallbackURLKey:     "oob",
	LogLevelKey:        "info",
	OTELSampleRateKey:  1.0,
	DanceTimeoutKey:    "10m",
}

type settings struct {
	mu          sync.RWMutex
	k           *koanf.Koanf
	parser      koanf.Parser
	readOnly    atomic.Bool
	initialized atomic.Bool
}

var k = &settings{
	k:      koanf.New("."),
	parser: json.Parser(),
}

var ErrReadOnly = errors.New("read-only")

// InitSettings loads the settings file from dataDir, creating it with default values if it does
// not exist yet.
func InitSettings(dataDir string) error {
	if k.initialized.Swap(true) {
		return nil
	}
	if err := initialize(dataDir); err != nil {
		k.initialized.Store(false)
		return fmt.Errorf("initializing settings: %w", err)
	}
	return nil
}

func initialize(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	filePath := filepath.Join(dataDir, settingsFileName)
	kk := koanf.New(".")
	raw, err := atomicfile.ReadFile(filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		for key, value := range defaults {
			kk.Set(key, value)
		}
	case err != nil:
		return fmt.Errorf("error loading settings file: %w", err)
	default:
		if err := kk.Load(rawbytes.Provider(raw), k.parser); err != nil {
			return fmt.Errorf("error parsing settings file: %w", err)
		}
	}
	kk.Set(filePathKey, filePath)
	kk.Set(DataPathKey, dataDir)

	k.mu.Lock()
	k.k = kk
	k.mu.Unlock()
	return save()
}

// InitReadOnly loads the settings from fileDir without ever writing them. It returns an error if
// the file does not exist. In read-only mode Set returns ErrReadOnly.
func InitReadOnly(fileDir string) (err error) {
	if k.initialized.Swap(true) {
		return nil
	}
	defer func() {
		if err != nil {
			k.initialized.Store(false)
			k.readOnly.Store(false)
		}
	}()
	k.readOnly.Store(true)
	path := filepath.Join(fileDir, settingsFileName)
	contents, err := atomicfile.ReadFile(path)
	if err != nil { // including os.ErrNotExist as we only want read-only here
		return fmt.Errorf("loading settings (read-only): %w", err)
	}
	kk := koanf.New(".")
	if err := kk.Load(rawbytes.Provider(contents), k.parser); err != nil {
		return fmt.Errorf("parsing settings: %w", err)
	}
	k.mu.Lock()
	k.k = kk
	k.mu.Unlock()
	return nil
}

// Reset discards all loaded settings. It is intended for tests.
func Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.k = koanf.New(".")
	k.readOnly.Store(false)
	k.initialized.Store(false)
}

func Get(key string) any {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.k.Get(key)
}

func GetString(key string) string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.k.String(key)
}

func GetBool(key string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.k.Bool(key)
}

func GetFloat64(key string) float64 {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.k.Float64(key)
}

func GetDuration(key string) time.Duration {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.k.Duration(key)
}

func GetStringMap(key string) map[string]string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.k.StringMap(key)
}

// Set stores value under key and writes the settings file.
func Set(key string, value any) error {
	if k.readOnly.Load() {
		return ErrReadOnly
	}
	k.mu.Lock()
	err := k.k.Set(key, value)
	k.mu.Unlock()
	if err != nil {
		return fmt.Errorf("could not set key %s: %w", key, err)
	}
	return save()
}

func save() error {
	if k.readOnly.Load() {
		return ErrReadOnly
	}
	k.mu.RLock()
	path := k.k.String(filePathKey)
	out, err := k.k.Marshal(k.parser)
	k.mu.RUnlock()
	if path == "" {
		return errors.New("settings file path is not set")
	}
	if err != nil {
		return fmt.Errorf("could not marshal settings: %w", err)
	}
	if err := atomicfile.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("could not write settings file: %w", err)
	}
	return nil
}
