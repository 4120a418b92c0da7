// Package utils holds filesystem helpers shared by the study store, the
// figure writer and the reshape command.
package utils

import (
	"fmt"
	"os"
)

// EnsureDir creates dir and its parents if needed.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// SafeWriteFile writes data next to path and renames it into place, so readers
// never observe a half-written file.
func SafeWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
