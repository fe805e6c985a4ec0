package restore

import (
	"context"
	"time"
)

// Store is the destination database as seen by the restore engine.
// Every call is a single statement; nothing spans multiple records.
type Store interface {
	// CountRows returns the number of rows in table.
	CountRows(ctx context.Context, table string) (int64, error)

	// ClearTable removes every row of table, cascading to dependents where
	// the backend supports it.
	ClearTable(ctx context.Context, table string) error

	// InsertRow inserts one repaired record into table.
	InsertRow(ctx context.Context, table string, row Record) error

	// FirstCollectionID returns the id of the earliest created collection.
	// ok is false when there are no collections.
	FirstCollectionID(ctx context.Context) (id string, ok bool, err error)

	// Exists reports whether table has a row with the given id.
	Exists(ctx context.Context, table, id string) (bool, error)

	// ListIDs returns every id in table, ordered.
	ListIDs(ctx context.Context, table string) ([]string, error)

	// FindGrant returns the grant for the user/collection pair, or nil when
	// none exists.
	FindGrant(ctx context.Context, userID, collectionID string) (*Grant, error)

	// InsertGrant stores a new grant.
	InsertGrant(ctx context.Context, g Grant) error

	// UpgradeGrant sets the permission of an existing grant.
	UpgradeGrant(ctx context.Context, grantID, permission string, at time.Time) error

	// DeleteOrphans removes rows of table whose column references an id
	// missing from parentTable, returning how many were removed.
	DeleteOrphans(ctx context.Context, table, column, parentTable string) (int64, error)

	Close() error
}

// FileStore reports on the attachment storage that accompanies a workspace.
type FileStore interface {
	Stats(ctx context.Context) (FileStats, error)
}
