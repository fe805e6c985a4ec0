package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"wsrestore/internal/restore"
)

// Snapshot builds a snapshot from records keyed by kind.
func Snapshot(records map[restore.Kind][]restore.Record) *restore.Snapshot {
	return &restore.Snapshot{
		ExportedAt: "2024-01-10T08:00:00.000Z",
		Version:    "1",
		Records:    records,
	}
}

// WriteImportDir creates a temporary import directory holding content under
// name and returns the directory.
func WriteImportDir(t *testing.T, name string, content []byte) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return dir
}
