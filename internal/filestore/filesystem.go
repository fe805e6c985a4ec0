// Package filestore reports on the storage holding a workspace's
// attachments.
package filestore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"wsrestore/internal/restore"
)

// FileSystemStore counts the files under a local directory, the layout used
// when attachments are kept on local disk.
type FileSystemStore struct {
	root string
}

var _ restore.FileStore = (*FileSystemStore)(nil)

// NewFileSystemStore creates a store rooted at root, which must exist.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open file root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("file root %s is not a directory", root)
	}
	return &FileSystemStore{root: root}, nil
}

// Stats walks the tree and sums regular files. Symlinks are not followed.
func (s *FileSystemStore) Stats(ctx context.Context) (restore.FileStats, error) {
	var st restore.FileStats
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		st.Count++
		st.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return restore.FileStats{}, fmt.Errorf("walking %s: %w", s.root, err)
	}
	return st, nil
}
