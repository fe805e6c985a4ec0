package testutil

import (
	"context"
	"testing"

	"wsrestore/internal/database"
	"wsrestore/internal/restore"
)

// NewTestStore creates an in-memory SQLite store with the workspace schema
// and foreign keys enforced. It is closed when the test completes.
func NewTestStore(t *testing.T) *database.SQLStore {
	t.Helper()

	s, err := database.NewRehearsalStore()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// NewPermissiveTestStore is NewTestStore with foreign keys off, so rows
// with dangling references can be inserted.
func NewPermissiveTestStore(t *testing.T) *database.SQLStore {
	t.Helper()

	s := NewTestStore(t)
	if _, err := s.DB().Exec("PRAGMA foreign_keys = OFF"); err != nil {
		t.Fatalf("failed to disable foreign keys: %v", err)
	}
	return s
}

// Seed inserts rows into table, stamping missing timestamps with
// FixedTimestamp.
func Seed(t *testing.T, s restore.Store, table string, rows ...restore.Record) {
	t.Helper()

	for _, row := range rows {
		r := restore.Record{"createdAt": FixedTimestamp, "updatedAt": FixedTimestamp}
		for k, v := range row {
			r[k] = v
		}
		if err := s.InsertRow(context.Background(), table, r); err != nil {
			t.Fatalf("seeding %s %v: %v", table, row["id"], err)
		}
	}
}

// CountRows returns the row count of table or fails the test.
func CountRows(t *testing.T, s restore.Store, table string) int64 {
	t.Helper()

	n, err := s.CountRows(context.Background(), table)
	if err != nil {
		t.Fatalf("counting %s: %v", table, err)
	}
	return n
}

// Column reads one column of the row with the given id.
func Column(t *testing.T, s *database.SQLStore, table, id, column string) any {
	t.Helper()

	var v any
	q := `SELECT "` + column + `" FROM "` + table + `" WHERE "id" = ?`
	if err := s.DB().QueryRow(q, id).Scan(&v); err != nil {
		t.Fatalf("reading %s.%s of %s: %v", table, column, id, err)
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// GrantPermission returns the permission of the grant for the pair, or ""
// when there is none.
func GrantPermission(t *testing.T, s restore.Store, userID, collectionID string) string {
	t.Helper()

	g, err := s.FindGrant(context.Background(), userID, collectionID)
	if err != nil {
		t.Fatalf("finding grant %s/%s: %v", userID, collectionID, err)
	}
	if g == nil {
		return ""
	}
	return g.Permission
}
