package restore

import (
	"context"
	"errors"
	"fmt"
)

// KindReport aggregates the results for one kind.
type KindReport struct {
	Kind      Kind
	Table     string
	Attempted int
	Inserted  int
	Dropped   int
	Failed    int

	// ClearErr is set when clearing the table before loading failed.
	ClearErr error
}

// LoadReport is the outcome of a load. Problems holds the result of every
// record that was not inserted, in load order.
type LoadReport struct {
	Kinds    []KindReport
	Problems []RecordResult

	// FallbackCollections is the number of collections synthesized for
	// documents that had none.
	FallbackCollections int
}

// Kind returns the report for k, or a zero report when k was not loaded.
func (r *LoadReport) Kind(k Kind) KindReport {
	for _, kr := range r.Kinds {
		if kr.Kind == k {
			return kr
		}
	}
	return KindReport{Kind: k}
}

// Totals sums the per-kind counts.
func (r *LoadReport) Totals() KindReport {
	var t KindReport
	for _, kr := range r.Kinds {
		t.Attempted += kr.Attempted
		t.Inserted += kr.Inserted
		t.Dropped += kr.Dropped
		t.Failed += kr.Failed
	}
	return t
}

func (r *KindReport) add(res RecordResult) {
	r.Attempted++
	switch res.Outcome {
	case Inserted:
		r.Inserted++
	case Dropped:
		r.Dropped++
	case Failed:
		r.Failed++
	}
}

// Loader writes a snapshot into the store kind by kind in dependency order.
type Loader struct {
	store     Store
	repairer  *Repairer
	allocator *FallbackAllocator
	logger    Logger

	// clearExisting empties each table right before loading it.
	clearExisting bool
}

// NewLoader creates a Loader.
func NewLoader(store Store, repairer *Repairer, allocator *FallbackAllocator, logger Logger, clearExisting bool) *Loader {
	return &Loader{
		store:         store,
		repairer:      repairer,
		allocator:     allocator,
		logger:        logger,
		clearExisting: clearExisting,
	}
}

// Load writes every record of snap. Per-record problems are recorded in the
// report and never stop the load.
func (l *Loader) Load(ctx context.Context, snap *Snapshot) *LoadReport {
	report := &LoadReport{}

	for _, ks := range LoadOrder() {
		kr := KindReport{Kind: ks.Kind, Table: ks.Table}

		if l.clearExisting {
			if err := l.store.ClearTable(ctx, ks.Table); err != nil {
				kr.ClearErr = err
				l.logger.Warn("clearing table failed", "table", ks.Table, "error", err)
			}
		}

		records := snap.Records[ks.Kind]
		if len(records) > 0 {
			l.logger.Info("loading", "table", ks.Table, "records", len(records))
		}

		for _, raw := range records {
			if err := ctx.Err(); err != nil {
				l.logger.Warn("load interrupted", "table", ks.Table, "error", err)
				report.Kinds = append(report.Kinds, kr)
				report.FallbackCollections = l.allocator.Created()
				return report
			}

			res := l.loadRecord(ctx, ks, raw)
			kr.add(res)
			if res.Outcome != Inserted {
				report.Problems = append(report.Problems, res)
			}
		}

		if kr.Attempted > 0 {
			l.logger.Info("loaded", "table", ks.Table,
				"inserted", kr.Inserted, "dropped", kr.Dropped, "failed", kr.Failed)
		}
		report.Kinds = append(report.Kinds, kr)
	}

	report.FallbackCollections = l.allocator.Created()
	return report
}

func (l *Loader) loadRecord(ctx context.Context, ks KindSpec, raw Record) RecordResult {
	res := RecordResult{Kind: ks.Kind, ID: raw.ID()}

	rec, err := l.repairer.Repair(ctx, ks.Kind, raw)
	if err != nil {
		res.Outcome = Dropped
		res.Err = err
		if errors.Is(err, ErrMissingID) {
			l.logger.Debug("dropped record without id", "table", ks.Table)
		} else {
			l.logger.Debug("dropped record", "table", ks.Table, "id", res.ID, "error", err)
		}
		return res
	}

	if err := l.store.InsertRow(ctx, ks.Table, rec); err != nil {
		res.Outcome = Failed
		res.Err = fmt.Errorf("inserting into %s: %w", ks.Table, err)
		l.logger.Debug("insert failed", "table", ks.Table, "id", res.ID, "error", err)
		return res
	}

	res.Outcome = Inserted
	return res
}
