package snapshot

import (
	"fmt"
	"io"
	"strings"

	"wsrestore/internal/restore"
)

// TableCount is the number of records exported for one table.
type TableCount struct {
	Table   string
	Records int
	Present bool
}

// Report describes an export without loading it.
type Report struct {
	ExportedAt string
	Version    string
	Tables     []TableCount
	Total      int
	Issues     []string
}

// Missing returns the tables the export does not carry at all.
func (r *Report) Missing() []string {
	var out []string
	for _, tc := range r.Tables {
		if !tc.Present {
			out = append(out, tc.Table)
		}
	}
	return out
}

// Inspect counts records per table and lists the defects the loader will
// have to repair or drop.
func Inspect(snap *restore.Snapshot) *Report {
	r := &Report{ExportedAt: snap.ExportedAt, Version: snap.Version}

	for _, ks := range restore.LoadOrder() {
		records, present := snap.Records[ks.Kind]
		r.Tables = append(r.Tables, TableCount{Table: ks.Table, Records: len(records), Present: present})
		r.Total += len(records)

		if n := countWhere(records, func(rec restore.Record) bool { return rec.ID() == "" }); n > 0 {
			r.Issues = append(r.Issues, fmt.Sprintf("%d %s without an id will be dropped", n, ks.Table))
		}
	}

	docs := snap.Records[restore.KindDocument]
	if snap.Count(restore.KindCollection) == 0 {
		orphans := countWhere(docs, func(rec restore.Record) bool { return rec.String("collectionId") == "" })
		if orphans > 0 {
			r.Issues = append(r.Issues, fmt.Sprintf(
				"%d documents have no collection and no collections exist; fallback collections will be created", orphans))
		}
	}

	empty := countWhere(docs, func(rec restore.Record) bool {
		return isBlank(rec["content"]) && rec.String("text") == ""
	})
	if empty > 0 {
		r.Issues = append(r.Issues, fmt.Sprintf("%d documents have no content or text", empty))
	}

	return r
}

// WriteReport renders r for the operator.
func WriteReport(w io.Writer, r *Report) error {
	var b strings.Builder

	b.WriteString("Tables\n")
	for _, tc := range r.Tables {
		if tc.Present {
			fmt.Fprintf(&b, "  %-12s %d records\n", tc.Table, tc.Records)
		} else {
			fmt.Fprintf(&b, "  %-12s missing\n", tc.Table)
		}
	}
	fmt.Fprintf(&b, "Total records: %d\n\n", r.Total)

	fmt.Fprintf(&b, "Export date: %s\n", orMissing(r.ExportedAt))
	fmt.Fprintf(&b, "Version:     %s\n\n", orMissing(r.Version))

	if len(r.Issues) == 0 {
		b.WriteString("No issues found\n")
	} else {
		b.WriteString("Issues\n")
		for _, issue := range r.Issues {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
	}

	if r.Total == 0 {
		b.WriteString("\nThe export has no data to import\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func countWhere(records []restore.Record, pred func(restore.Record) bool) int {
	n := 0
	for _, rec := range records {
		if pred(rec) {
			n++
		}
	}
	return n
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func orMissing(s string) string {
	if s == "" {
		return "missing"
	}
	return s
}
