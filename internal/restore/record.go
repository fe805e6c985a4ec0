package restore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Record is one exported row, keyed by column name. Numbers decoded from the
// export are json.Number.
type Record map[string]any

// ID returns the record's id as a string, or "" when it is absent or empty.
func (r Record) ID() string {
	return r.String("id")
}

// String returns the value of key as a string. Numbers are formatted, any
// other type yields "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

// missing reports whether key is absent, null or an empty string.
func (r Record) missing(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return true
	}
	s, isString := v.(string)
	return isString && s == ""
}

// clone returns a shallow copy of r. Nested values are never mutated in place.
func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Snapshot is a decoded export. It is read only; the engine copies every
// record before changing it.
type Snapshot struct {
	ExportedAt string
	Version    string
	Records    map[Kind][]Record
}

// Count returns the number of records of kind k.
func (s *Snapshot) Count(k Kind) int {
	if s == nil {
		return 0
	}
	return len(s.Records[k])
}

// Outcome classifies what happened to one record.
type Outcome int

const (
	Inserted Outcome = iota
	Dropped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Dropped:
		return "dropped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// RecordResult is the per-record result of a load. Err is set for Dropped
// (the repair reason) and Failed (the insert error).
type RecordResult struct {
	Kind    Kind
	ID      string
	Outcome Outcome
	Err     error
}

var (
	// ErrMissingID marks a record dropped because it has no id.
	ErrMissingID = errors.New("record has no id")

	// ErrNoTeam marks a document dropped because it has neither a collection
	// nor a team to allocate a fallback collection in.
	ErrNoTeam = errors.New("document has no collection and no team")

	// ErrAllocateCollection wraps a failure to create a fallback collection.
	ErrAllocateCollection = errors.New("allocating fallback collection")

	// ErrExistingData is returned when the destination already holds data
	// and overwrite was not requested.
	ErrExistingData = errors.New("destination already contains data")
)

// Stats are the headline row counts reported before and after a restore.
type Stats struct {
	Teams       int64
	Users       int64
	Collections int64
	Documents   int64
}

// Empty reports whether every count is zero.
func (s Stats) Empty() bool {
	return s.Teams == 0 && s.Users == 0 && s.Collections == 0 && s.Documents == 0
}

// FileStats describes the attachment storage backing the workspace.
type FileStats struct {
	Count int64
	Bytes int64
}

// Grant is a row of user_permissions.
type Grant struct {
	ID           string
	UserID       string
	CollectionID string
	Permission   string
	CreatedByID  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
