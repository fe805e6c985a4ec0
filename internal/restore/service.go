package restore

import (
	"context"
	"fmt"
)

// Options controls a single restore run.
type Options struct {
	// Overwrite allows restoring into a destination that already has data.
	// Every table is cleared right before it is loaded.
	Overwrite bool

	// PruneOrphans deletes rows whose owning parent is missing after the load.
	PruneOrphans bool

	// ReuseDefaultCollections creates at most one fallback collection per
	// team instead of one per document that needs it.
	ReuseDefaultCollections bool

	// DryRun only labels the summary; the caller picks the rehearsal store.
	DryRun bool
}

// Service runs restores against one destination store.
type Service struct {
	store  Store
	files  FileStore
	clock  Clock
	ids    IDGenerator
	logger Logger
}

// NewService creates a Service. files may be nil when there is no
// attachment storage to report on.
func NewService(store Store, files FileStore, clock Clock, ids IDGenerator, logger Logger) *Service {
	return &Service{
		store:  store,
		files:  files,
		clock:  clock,
		ids:    ids,
		logger: logger,
	}
}

// Stats returns the headline counts of the destination.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	for _, c := range []struct {
		table string
		dst   *int64
	}{
		{"teams", &st.Teams},
		{"users", &st.Users},
		{"collections", &st.Collections},
		{"documents", &st.Documents},
	} {
		n, err := s.store.CountRows(ctx, c.table)
		if err != nil {
			return Stats{}, fmt.Errorf("counting %s: %w", c.table, err)
		}
		*c.dst = n
	}
	return st, nil
}

// Restore loads snap into the destination, backfills permissions and
// reports. It fails before writing anything when the destination cannot be
// counted or already holds data without opts.Overwrite. Past that point
// problems are recorded in the summary rather than returned.
func (s *Service) Restore(ctx context.Context, snap *Snapshot, opts Options) (*Summary, error) {
	before, err := s.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading destination: %w", err)
	}

	if !before.Empty() && !opts.Overwrite {
		return nil, fmt.Errorf("%w (teams=%d users=%d collections=%d documents=%d)",
			ErrExistingData, before.Teams, before.Users, before.Collections, before.Documents)
	}
	if !before.Empty() {
		s.logger.Warn("overwriting existing data",
			"teams", before.Teams, "users", before.Users,
			"collections", before.Collections, "documents", before.Documents)
	}

	summary := &Summary{
		ExportedAt: snap.ExportedAt,
		Version:    snap.Version,
		DryRun:     opts.DryRun,
		Before:     before,
	}

	allocator := NewFallbackAllocator(s.store, s.clock, s.ids, s.logger, opts.ReuseDefaultCollections)
	repairer := NewRepairer(s.store, allocator, s.clock, s.logger)
	loader := NewLoader(s.store, repairer, allocator, s.logger, opts.Overwrite)

	summary.Load = loader.Load(ctx, snap)

	if opts.PruneOrphans {
		summary.Sweep = NewOrphanSweeper(s.store, s.logger).Sweep(ctx)
	}

	backfill, err := NewBackfiller(s.store, s.clock, s.ids, s.logger).Run(ctx)
	if err != nil {
		s.logger.Error("permission backfill failed", "error", err)
		summary.BackfillErr = err
	} else {
		summary.Backfill = backfill
	}

	after, err := s.Stats(ctx)
	if err != nil {
		s.logger.Warn("reading final counts failed", "error", err)
	}
	summary.After = after

	if s.files != nil {
		files, err := s.files.Stats(ctx)
		if err != nil {
			s.logger.Warn("reading file storage stats failed", "error", err)
			summary.FilesErr = err
		}
		summary.Files = files
	}

	s.logger.Info("restore finished",
		"teams", after.Teams, "users", after.Users,
		"collections", after.Collections, "documents", after.Documents)
	return summary, nil
}
