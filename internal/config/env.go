package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
const (
	EnvDatabaseURL  = "DATABASE_URL"
	EnvDatabaseType = "WSRESTORE_DATABASE_TYPE"
	EnvPassphrase   = "WSRESTORE_PASSPHRASE"
)

// LoadEnvFiles loads the given dotenv files that exist, leaving variables
// already set in the process untouched. It returns how many were loaded.
func LoadEnvFiles(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// ApplyEnv overrides database settings from the environment. Setting
// DATABASE_URL alone selects a Postgres destination.
func (c *Config) ApplyEnv() {
	if url := os.Getenv(EnvDatabaseURL); url != "" {
		c.Database.URL = url
		if os.Getenv(EnvDatabaseType) == "" {
			c.Database.Type = "postgres"
		}
	}
	if typ := os.Getenv(EnvDatabaseType); typ != "" {
		c.Database.Type = typ
	}
}
