package restore_test

import (
	"context"
	"testing"

	"wsrestore/internal/database"
	"wsrestore/internal/restore"
	"wsrestore/internal/testutil"
)

func newAllocator(t *testing.T, reuse bool) (*restore.FallbackAllocator, *database.SQLStore) {
	t.Helper()

	store := testutil.NewTestStore(t)
	testutil.Seed(t, store, "teams", restore.Record{"id": "t1"}, restore.Record{"id": "t2"})
	a := restore.NewFallbackAllocator(store, testutil.FixedClock(), testutil.NewStubIDGenerator(), restore.NewNopLogger(), reuse)
	return a, store
}

func TestFallbackAllocator_Row(t *testing.T) {
	a, store := newAllocator(t, false)

	id, err := a.Allocate(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	checks := map[string]any{
		"name":        "Imported Documents",
		"description": "Default collection for imported documents without collections",
		"teamId":      "t1",
		"sort":        `{"direction":"asc","field":"index"}`,
		"createdAt":   testutil.FixedTimestamp,
		"updatedAt":   testutil.FixedTimestamp,
	}
	for col, want := range checks {
		if got := testutil.Column(t, store, "collections", id, col); got != want {
			t.Errorf("%s = %v, want %v", col, got, want)
		}
	}
	if got := testutil.Column(t, store, "collections", id, "permission"); got != nil {
		t.Errorf("permission = %v, want NULL", got)
	}
}

func TestFallbackAllocator_Reuse(t *testing.T) {
	tests := []struct {
		name        string
		reuse       bool
		wantCreated int
	}{
		{"one per request", false, 3},
		{"one per team", true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, store := newAllocator(t, tt.reuse)
			ctx := context.Background()

			first, err := a.Allocate(ctx, "t1")
			if err != nil {
				t.Fatalf("Allocate(t1) error = %v", err)
			}
			again, err := a.Allocate(ctx, "t1")
			if err != nil {
				t.Fatalf("Allocate(t1) error = %v", err)
			}
			if _, err := a.Allocate(ctx, "t2"); err != nil {
				t.Fatalf("Allocate(t2) error = %v", err)
			}

			if tt.reuse != (first == again) {
				t.Errorf("Allocate(t1) twice = %q, %q with reuse=%v", first, again, tt.reuse)
			}
			if a.Created() != tt.wantCreated {
				t.Errorf("Created() = %d, want %d", a.Created(), tt.wantCreated)
			}
			if n := testutil.CountRows(t, store, "collections"); n != int64(tt.wantCreated) {
				t.Errorf("collections = %d, want %d", n, tt.wantCreated)
			}
		})
	}
}

func TestFallbackAllocator_UnknownTeam(t *testing.T) {
	a, _ := newAllocator(t, true)

	if _, err := a.Allocate(context.Background(), "missing"); err == nil {
		t.Fatal("Allocate() for a team that does not exist expected error, got nil")
	}
	if a.Created() != 0 {
		t.Errorf("Created() = %d, want 0", a.Created())
	}
}
