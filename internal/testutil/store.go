package testutil

import (
	"context"
	"sync"
	"time"

	"wsrestore/internal/restore"
)

// CountingStore wraps a Store, counting calls and optionally failing them.
// The Fail* hooks return the error to inject, or nil to pass through.
type CountingStore struct {
	restore.Store

	mu    sync.Mutex
	calls map[string]int

	FailCount           func(table string) error
	FailClear           func(table string) error
	FailInsert          func(table string, row restore.Record) error
	FailFirstCollection func() error
	FailList            func(table string) error
	FailExists          func(table, id string) error
	FailFindGrant       func(userID, collectionID string) error
	FailInsertGrant     func(g restore.Grant) error
}

var _ restore.Store = (*CountingStore)(nil)

// NewCountingStore wraps inner.
func NewCountingStore(inner restore.Store) *CountingStore {
	return &CountingStore{Store: inner, calls: make(map[string]int)}
}

// Calls returns how many times method was invoked.
func (c *CountingStore) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// Writes returns the number of calls that could modify the database.
func (c *CountingStore) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls["ClearTable"] + c.calls["InsertRow"] + c.calls["InsertGrant"] +
		c.calls["UpgradeGrant"] + c.calls["DeleteOrphans"]
}

// Accesses returns the total number of calls of any kind.
func (c *CountingStore) Accesses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func (c *CountingStore) record(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
}

func (c *CountingStore) CountRows(ctx context.Context, table string) (int64, error) {
	c.record("CountRows")
	if c.FailCount != nil {
		if err := c.FailCount(table); err != nil {
			return 0, err
		}
	}
	return c.Store.CountRows(ctx, table)
}

func (c *CountingStore) ClearTable(ctx context.Context, table string) error {
	c.record("ClearTable")
	if c.FailClear != nil {
		if err := c.FailClear(table); err != nil {
			return err
		}
	}
	return c.Store.ClearTable(ctx, table)
}

func (c *CountingStore) InsertRow(ctx context.Context, table string, row restore.Record) error {
	c.record("InsertRow")
	if c.FailInsert != nil {
		if err := c.FailInsert(table, row); err != nil {
			return err
		}
	}
	return c.Store.InsertRow(ctx, table, row)
}

func (c *CountingStore) FirstCollectionID(ctx context.Context) (string, bool, error) {
	c.record("FirstCollectionID")
	if c.FailFirstCollection != nil {
		if err := c.FailFirstCollection(); err != nil {
			return "", false, err
		}
	}
	return c.Store.FirstCollectionID(ctx)
}

func (c *CountingStore) Exists(ctx context.Context, table, id string) (bool, error) {
	c.record("Exists")
	if c.FailExists != nil {
		if err := c.FailExists(table, id); err != nil {
			return false, err
		}
	}
	return c.Store.Exists(ctx, table, id)
}

func (c *CountingStore) ListIDs(ctx context.Context, table string) ([]string, error) {
	c.record("ListIDs")
	if c.FailList != nil {
		if err := c.FailList(table); err != nil {
			return nil, err
		}
	}
	return c.Store.ListIDs(ctx, table)
}

func (c *CountingStore) FindGrant(ctx context.Context, userID, collectionID string) (*restore.Grant, error) {
	c.record("FindGrant")
	if c.FailFindGrant != nil {
		if err := c.FailFindGrant(userID, collectionID); err != nil {
			return nil, err
		}
	}
	return c.Store.FindGrant(ctx, userID, collectionID)
}

func (c *CountingStore) InsertGrant(ctx context.Context, g restore.Grant) error {
	c.record("InsertGrant")
	if c.FailInsertGrant != nil {
		if err := c.FailInsertGrant(g); err != nil {
			return err
		}
	}
	return c.Store.InsertGrant(ctx, g)
}

func (c *CountingStore) UpgradeGrant(ctx context.Context, grantID, permission string, at time.Time) error {
	c.record("UpgradeGrant")
	return c.Store.UpgradeGrant(ctx, grantID, permission, at)
}

func (c *CountingStore) DeleteOrphans(ctx context.Context, table, column, parentTable string) (int64, error) {
	c.record("DeleteOrphans")
	return c.Store.DeleteOrphans(ctx, table, column, parentTable)
}
