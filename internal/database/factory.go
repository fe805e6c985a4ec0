package database

import (
	"context"
	"fmt"
	"time"

	"wsrestore/internal/config"
)

// NewStoreFromConfig creates the destination store described by cfg.
func NewStoreFromConfig(ctx context.Context, cfg config.DatabaseConfig) (*SQLStore, error) {
	switch cfg.Type {
	case "postgres":
		if cfg.URL == "" {
			return nil, fmt.Errorf("url required for postgres database")
		}
		timeout, err := connectTimeout(cfg.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(ctx, cfg.URL, timeout)
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for sqlite database")
		}
		return NewSQLiteStore(cfg.Path)
	case "memory":
		return NewRehearsalStore()
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

func connectTimeout(s string) (time.Duration, error) {
	if s == "" {
		return DefaultConnectTimeout, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid connect_timeout %q: %w", s, err)
	}
	return d, nil
}
