package common

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

var (
	dataPath atomic.Value
	logPath  atomic.Value
)

// ensure dataPath and logPath are of type string
func init() {
	dataPath.Store("")
	logPath.Store("")
}

// SetupDirectories creates the data and log directories. Empty values default to directories under
// the user's config dir.
func SetupDirectories(data, logs string) (dataDir, logDir string, err error) {
	base, err := defaultBaseDir()
	if err != nil && (data == "" || logs == "") {
		return "", "", fmt.Errorf("failed to determine default directory: %w", err)
	}
	dataDir = data
	if dataDir == "" {
		dataDir = base
	}
	logDir = logs
	if logDir == "" {
		logDir = base
	}
	dataDir = maybeAddSuffix(dataDir, "data")
	logDir = maybeAddSuffix(logDir, "logs")
	for _, path := range []string{dataDir, logDir} {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return "", "", fmt.Errorf("failed to create directory %s: %w", path, err)
		}
	}

	dataPath.Store(dataDir)
	logPath.Store(logDir)
	return dataDir, logDir, nil
}

func defaultBaseDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, Name), nil
}

func maybeAddSuffix(path, suffix string) string {
	if filepath.Base(path) != suffix {
		path = filepath.Join(path, suffix)
	}
	return path
}

func DataPath() string {
	return dataPath.Load().(string)
}

func LogPath() string {
	return logPath.Load().(string)
}
