package filestore

import (
	"context"
	"fmt"

	"wsrestore/internal/config"
	"wsrestore/internal/restore"
)

// NewFileStoreFromConfig creates the FileStore described by cfg. It returns
// nil for type "none", meaning there is no attachment storage to report on.
func NewFileStoreFromConfig(ctx context.Context, cfg config.FilesConfig) (restore.FileStore, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem files require root to be set")
		}
		fs, err := NewFileSystemStore(cfg.Root)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "s3":
		s, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown files type: %s", cfg.Type)
	}
}
