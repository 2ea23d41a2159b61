package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - STASH_CONFIG_PATH: config file location (default: ~/.config/stash.toml)
//   - STASH_HOME: base directory for stash data (default: ~/.local/share/stash)
func GetDefaults() (map[string]string, error) {
	configPath, err := envOrHome("STASH_CONFIG_PATH", ".config", "stash.toml")
	if err != nil {
		return nil, err
	}

	baseDir, err := envOrHome("STASH_HOME", ".local", "share", "stash")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// envOrHome returns the value of env if set, otherwise elem joined onto the
// user's home directory.
func envOrHome(env string, elem ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
