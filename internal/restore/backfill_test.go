package restore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"wsrestore/internal/restore"
	"wsrestore/internal/testutil"
)

func seedWorkspace(t *testing.T, store restore.Store, users, collections []string) {
	t.Helper()

	testutil.Seed(t, store, "teams", restore.Record{"id": "t1"})
	for _, id := range users {
		testutil.Seed(t, store, "users", restore.Record{"id": id, "teamId": "t1"})
	}
	for _, id := range collections {
		testutil.Seed(t, store, "collections", restore.Record{"id": id, "teamId": "t1"})
	}
}

func newBackfiller(store restore.Store) *restore.Backfiller {
	return restore.NewBackfiller(store, testutil.FixedClock(), testutil.NewStubIDGenerator(), restore.NewNopLogger())
}

func TestBackfiller_GrantsEveryPair(t *testing.T) {
	store := testutil.NewTestStore(t)
	seedWorkspace(t, store, []string{"u1", "u2", "u3"}, []string{"c1", "c2"})

	report, err := newBackfiller(store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Users != 3 || report.Collections != 2 || report.Created != 6 {
		t.Errorf("Run() = %+v, want 3 users, 2 collections, 6 created", report)
	}
	if n := testutil.CountRows(t, store, "user_permissions"); n != 6 {
		t.Errorf("user_permissions = %d, want 6", n)
	}

	for _, u := range []string{"u1", "u2", "u3"} {
		for _, c := range []string{"c1", "c2"} {
			if p := testutil.GrantPermission(t, store, u, c); p != restore.PermissionReadWrite {
				t.Errorf("grant %s/%s = %q, want read_write", u, c, p)
			}
		}
	}

	var createdBy, createdAt string
	err = store.DB().QueryRow(`SELECT "createdById", "createdAt" FROM "user_permissions" WHERE "userId" = 'u2' AND "collectionId" = 'c1'`).
		Scan(&createdBy, &createdAt)
	if err != nil {
		t.Fatalf("reading grant: %v", err)
	}
	if createdBy != "u2" {
		t.Errorf("createdById = %q, want u2", createdBy)
	}
	if createdAt != testutil.FixedTimestamp {
		t.Errorf("createdAt = %q, want %s", createdAt, testutil.FixedTimestamp)
	}
}

func TestBackfiller_Idempotent(t *testing.T) {
	store := testutil.NewTestStore(t)
	seedWorkspace(t, store, []string{"u1", "u2"}, []string{"c1", "c2"})
	b := newBackfiller(store)

	if _, err := b.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	counting := testutil.NewCountingStore(store)
	report, err := newBackfiller(counting).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if report.Created != 0 || report.Updated != 0 || report.Unchanged != 4 {
		t.Errorf("second Run() = %+v, want 4 unchanged", report)
	}
	if n := counting.Writes(); n != 0 {
		t.Errorf("second Run() wrote %d times, want 0", n)
	}
	if n := testutil.CountRows(t, store, "user_permissions"); n != 4 {
		t.Errorf("user_permissions = %d, want 4", n)
	}
}

func TestBackfiller_ExistingGrants(t *testing.T) {
	store := testutil.NewTestStore(t)
	seedWorkspace(t, store, []string{"u1"}, []string{"c-read", "c-rw", "c-admin"})
	at := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	for id, p := range map[string]string{
		"c-read":  restore.PermissionRead,
		"c-rw":    restore.PermissionReadWrite,
		"c-admin": restore.PermissionAdmin,
	} {
		g := restore.Grant{ID: "g-" + id, UserID: "u1", CollectionID: id, Permission: p, CreatedAt: at, UpdatedAt: at}
		if err := store.InsertGrant(context.Background(), g); err != nil {
			t.Fatalf("InsertGrant() error = %v", err)
		}
	}

	report, err := newBackfiller(store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Created != 0 || report.Updated != 1 || report.Unchanged != 2 {
		t.Errorf("Run() = %+v, want 1 updated and 2 unchanged", report)
	}

	want := map[string]string{
		"c-read":  restore.PermissionReadWrite,
		"c-rw":    restore.PermissionReadWrite,
		"c-admin": restore.PermissionAdmin,
	}
	for c, p := range want {
		if got := testutil.GrantPermission(t, store, "u1", c); got != p {
			t.Errorf("grant on %s = %q, want %q", c, got, p)
		}
	}
	if got := testutil.Column(t, store, "user_permissions", "g-c-read", "updatedAt"); got != testutil.FixedTimestamp {
		t.Errorf("upgraded updatedAt = %v, want %s", got, testutil.FixedTimestamp)
	}
}

func TestBackfiller_NothingToDo(t *testing.T) {
	tests := []struct {
		name        string
		users       []string
		collections []string
	}{
		{"no users", nil, []string{"c1"}},
		{"no collections", []string{"u1"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewCountingStore(testutil.NewTestStore(t))
			seedWorkspace(t, store, tt.users, tt.collections)
			before := store.Writes()

			report, err := newBackfiller(store).Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if report.Created != 0 {
				t.Errorf("Created = %d, want 0", report.Created)
			}
			if store.Writes() != before {
				t.Errorf("Run() wrote %d times, want 0", store.Writes()-before)
			}
		})
	}
}

func TestBackfiller_PairFailureContinues(t *testing.T) {
	store := testutil.NewCountingStore(testutil.NewTestStore(t))
	seedWorkspace(t, store, []string{"u1", "u2"}, []string{"c1"})
	store.FailInsertGrant = func(g restore.Grant) error {
		if g.UserID == "u1" {
			return errors.New("deadlock detected")
		}
		return nil
	}

	report, err := newBackfiller(store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Failed != 1 || report.Created != 1 {
		t.Errorf("Run() = %+v, want 1 failed and 1 created", report)
	}
	if p := testutil.GrantPermission(t, store, "u2", "c1"); p != restore.PermissionReadWrite {
		t.Errorf("grant u2/c1 = %q, want read_write", p)
	}
}

func TestBackfiller_ListFailure(t *testing.T) {
	store := testutil.NewCountingStore(testutil.NewTestStore(t))
	store.FailList = func(table string) error {
		if table == "collections" {
			return errors.New("relation does not exist")
		}
		return nil
	}

	if _, err := newBackfiller(store).Run(context.Background()); err == nil {
		t.Fatal("Run() expected error, got nil")
	}
}
