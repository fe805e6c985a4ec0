package restore

import (
	"context"
	"fmt"
)

// Permission levels of a collection grant, weakest first.
const (
	PermissionRead      = "read"
	PermissionReadWrite = "read_write"
	PermissionAdmin     = "admin"
)

var permissionRank = map[string]int{
	PermissionRead:      1,
	PermissionReadWrite: 2,
	PermissionAdmin:     3,
}

// satisfies reports whether permission is at least read_write. Unknown
// levels rank below read.
func satisfies(permission string) bool {
	return permissionRank[permission] >= permissionRank[PermissionReadWrite]
}

// BackfillReport counts what the backfill did per user/collection pair.
type BackfillReport struct {
	Users       int
	Collections int
	Created     int
	Updated     int
	Unchanged   int
	Failed      int
}

// Backfiller makes sure every user can read and write every collection.
type Backfiller struct {
	store  Store
	clock  Clock
	ids    IDGenerator
	logger Logger
}

// NewBackfiller creates a Backfiller.
func NewBackfiller(store Store, clock Clock, ids IDGenerator, logger Logger) *Backfiller {
	return &Backfiller{store: store, clock: clock, ids: ids, logger: logger}
}

// Run visits every user/collection pair. Missing grants are created with
// read_write, weaker grants are raised to read_write and anything at or
// above read_write is left alone. A failure on one pair is logged and
// counted; an error is only returned when users or collections cannot be
// listed. Running it twice creates and updates nothing the second time.
func (b *Backfiller) Run(ctx context.Context) (*BackfillReport, error) {
	report := &BackfillReport{}

	users, err := b.store.ListIDs(ctx, "users")
	if err != nil {
		return report, fmt.Errorf("listing users: %w", err)
	}
	collections, err := b.store.ListIDs(ctx, "collections")
	if err != nil {
		return report, fmt.Errorf("listing collections: %w", err)
	}
	report.Users = len(users)
	report.Collections = len(collections)

	if len(users) == 0 || len(collections) == 0 {
		b.logger.Info("no grants to backfill", "users", len(users), "collections", len(collections))
		return report, nil
	}

	for _, userID := range users {
		for _, collectionID := range collections {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := b.ensure(ctx, userID, collectionID, report); err != nil {
				report.Failed++
				b.logger.Warn("granting permission failed",
					"user", userID, "collection", collectionID, "error", err)
			}
		}
	}

	b.logger.Info("permissions backfilled",
		"created", report.Created, "updated", report.Updated,
		"unchanged", report.Unchanged, "failed", report.Failed)
	return report, nil
}

func (b *Backfiller) ensure(ctx context.Context, userID, collectionID string, report *BackfillReport) error {
	existing, err := b.store.FindGrant(ctx, userID, collectionID)
	if err != nil {
		return fmt.Errorf("finding grant: %w", err)
	}

	now := b.clock.Now().UTC()

	if existing == nil {
		g := Grant{
			ID:           b.ids.New(),
			UserID:       userID,
			CollectionID: collectionID,
			Permission:   PermissionReadWrite,
			CreatedByID:  userID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := b.store.InsertGrant(ctx, g); err != nil {
			return fmt.Errorf("inserting grant: %w", err)
		}
		report.Created++
		return nil
	}

	if satisfies(existing.Permission) {
		report.Unchanged++
		return nil
	}

	if err := b.store.UpgradeGrant(ctx, existing.ID, PermissionReadWrite, now); err != nil {
		return fmt.Errorf("upgrading grant %s: %w", existing.ID, err)
	}
	report.Updated++
	return nil
}
