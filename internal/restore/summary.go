package restore

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// Summary is everything reported to the operator after a restore.
type Summary struct {
	ExportedAt string
	Version    string
	DryRun     bool

	Before Stats
	After  Stats

	Load *LoadReport

	// Backfill is nil when the backfill could not run at all.
	Backfill    *BackfillReport
	BackfillErr error

	// Sweep is nil unless orphan pruning was requested.
	Sweep *SweepReport

	Files    FileStats
	FilesErr error
}

// OK reports whether every record was loaded and every grant was ensured.
func (s *Summary) OK() bool {
	if s.Load != nil {
		t := s.Load.Totals()
		if t.Dropped > 0 || t.Failed > 0 {
			return false
		}
	}
	if s.BackfillErr != nil {
		return false
	}
	return s.Backfill == nil || s.Backfill.Failed == 0
}

// WriteSummary renders s for the operator.
func WriteSummary(w io.Writer, s *Summary) error {
	var b strings.Builder

	title := "Import summary"
	if s.DryRun {
		title = "Import summary (dry run, destination untouched)"
	}
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n")
	fmt.Fprintf(&b, "Export date:    %s\n", orUnknown(s.ExportedAt))
	fmt.Fprintf(&b, "Export version: %s\n\n", orUnknown(s.Version))

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tbefore\tafter")
	fmt.Fprintf(tw, "Teams\t%s\t%s\n", humanize.Comma(s.Before.Teams), humanize.Comma(s.After.Teams))
	fmt.Fprintf(tw, "Users\t%s\t%s\n", humanize.Comma(s.Before.Users), humanize.Comma(s.After.Users))
	fmt.Fprintf(tw, "Collections\t%s\t%s\n", humanize.Comma(s.Before.Collections), humanize.Comma(s.After.Collections))
	fmt.Fprintf(tw, "Documents\t%s\t%s\n", humanize.Comma(s.Before.Documents), humanize.Comma(s.After.Documents))
	if err := tw.Flush(); err != nil {
		return err
	}

	if s.Load != nil {
		b.WriteString("\nLoaded records\n")
		tw = tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "table\tattempted\tinserted\tdropped\tfailed")
		for _, kr := range s.Load.Kinds {
			if kr.Attempted == 0 && kr.ClearErr == nil {
				continue
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", kr.Table, kr.Attempted, kr.Inserted, kr.Dropped, kr.Failed)
		}
		t := s.Load.Totals()
		fmt.Fprintf(tw, "total\t%d\t%d\t%d\t%d\n", t.Attempted, t.Inserted, t.Dropped, t.Failed)
		if err := tw.Flush(); err != nil {
			return err
		}
		if s.Load.FallbackCollections > 0 {
			fmt.Fprintf(&b, "Fallback collections created: %d\n", s.Load.FallbackCollections)
		}
	}

	if s.Sweep != nil {
		fmt.Fprintf(&b, "\nOrphaned rows removed: %d\n", s.Sweep.Total())
	}

	b.WriteString("\nPermissions\n")
	switch {
	case s.BackfillErr != nil:
		fmt.Fprintf(&b, "  not backfilled: %v\n", s.BackfillErr)
	case s.Backfill != nil:
		fmt.Fprintf(&b, "  %d users x %d collections: %d created, %d upgraded, %d unchanged, %d failed\n",
			s.Backfill.Users, s.Backfill.Collections,
			s.Backfill.Created, s.Backfill.Updated, s.Backfill.Unchanged, s.Backfill.Failed)
	}

	b.WriteString("\nFiles\n")
	if s.FilesErr != nil {
		fmt.Fprintf(&b, "  unavailable: %v\n", s.FilesErr)
	} else {
		fmt.Fprintf(&b, "  %s files, %s\n", humanize.Comma(s.Files.Count), humanize.Bytes(uint64(s.Files.Bytes)))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
