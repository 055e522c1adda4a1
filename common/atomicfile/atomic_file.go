// Package atomicfile provides functions to read and write files atomically.
package atomicfile

import (
	"os"
	"path/filepath"
	"runtime"
)

// WriteFile writes data to filename by writing a temporary file in the same directory and renaming
// it over the target, so readers never observe a partially written file.
func WriteFile(filename string, data []byte, perm os.FileMode) (err error) {
	f, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(data); err != nil {
		return err
	}
	if runtime.GOOS != "windows" {
		if err = f.Chmod(perm); err != nil {
			return err
		}
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// os.Rename fails on Windows if the target exists.
	if runtime.GOOS == "windows" {
		_ = os.Remove(filename)
	}
	return os.Rename(f.Name(), filename)
}

// ReadFile reads filename. It pairs with WriteFile, whose rename guarantees a complete file.
func ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}
