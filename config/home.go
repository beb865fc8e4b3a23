// Package config locates the codex home directory and loads the model
// registry and credentials stored beneath it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindCodexHome returns the codex home directory: $CODEX_HOME when set,
// otherwise ~/.codex. The directory is not required to exist.
func FindCodexHome() (string, error) {
	if home := os.Getenv("CODEX_HOME"); home != "" {
		return home, nil
	}

	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(userHome, ".codex"), nil
}

// EnsureCodexHome returns the codex home directory, creating it when missing
func EnsureCodexHome() (string, error) {
	home, err := FindCodexHome()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return "", fmt.Errorf("failed to create codex home %s: %w", home, err)
	}
	return home, nil
}
