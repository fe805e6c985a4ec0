package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables that relocate wsrestore's own files.
const (
	EnvConfigPath = "WSRESTORE_CONFIG_PATH"
	EnvHome       = "WSRESTORE_HOME"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - WSRESTORE_CONFIG_PATH: config file location (default: ~/.config/wsrestore.toml)
//   - WSRESTORE_HOME: base directory for keys and logs (default: ~/.local/share/wsrestore)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "wsrestore.toml"), nil
}

// getBaseDir follows the XDG data layout unless WSRESTORE_HOME is set.
func getBaseDir() (string, error) {
	if path := os.Getenv(EnvHome); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "wsrestore"), nil
}
