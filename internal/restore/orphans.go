package restore

import "context"

// SweepReport maps table name to the number of orphaned rows deleted.
type SweepReport struct {
	Deleted map[string]int64
	Failed  int
}

// Total returns the number of rows deleted across all tables.
func (r *SweepReport) Total() int64 {
	var n int64
	for _, c := range r.Deleted {
		n += c
	}
	return n
}

// OrphanSweeper deletes rows whose owning parent is missing.
type OrphanSweeper struct {
	store  Store
	logger Logger
}

// NewOrphanSweeper creates an OrphanSweeper.
func NewOrphanSweeper(store Store, logger Logger) *OrphanSweeper {
	return &OrphanSweeper{store: store, logger: logger}
}

// Sweep follows every owner foreign key in load order, so a parent removed
// early takes its children with it later in the same pass. Statement
// failures are logged and skipped.
func (s *OrphanSweeper) Sweep(ctx context.Context) *SweepReport {
	report := &SweepReport{Deleted: make(map[string]int64)}

	for _, ks := range LoadOrder() {
		for _, fk := range ks.ForeignKeys {
			if !fk.Owner || fk.References == ks.Kind {
				continue
			}
			parent, _ := Lookup(fk.References)
			n, err := s.store.DeleteOrphans(ctx, ks.Table, fk.Column, parent.Table)
			if err != nil {
				report.Failed++
				s.logger.Warn("orphan sweep failed", "table", ks.Table, "column", fk.Column, "error", err)
				continue
			}
			if n > 0 {
				report.Deleted[ks.Table] += n
				s.logger.Info("removed orphaned rows", "table", ks.Table, "column", fk.Column, "rows", n)
			}
		}
	}

	return report
}
