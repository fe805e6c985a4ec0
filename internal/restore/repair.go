package restore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// repairFunc applies the kind-specific defaults to rec, which is already a
// private copy. A non-nil error drops the record.
type repairFunc func(ctx context.Context, r *Repairer, rec Record) error

// repairStrategies is the closed table of per-kind repairs. Kinds without an
// entry only get the common repairs.
var repairStrategies = map[Kind]repairFunc{
	KindDocument:   repairDocument,
	KindUser:       repairUser,
	KindCollection: repairCollection,
	KindTeam:       repairTeam,
}

// Repairer turns raw exported records into records the destination accepts.
type Repairer struct {
	store     Store
	allocator *FallbackAllocator
	clock     Clock
	logger    Logger
}

// NewRepairer creates a Repairer. The allocator is consulted for documents
// that have no collection while the destination has none either.
func NewRepairer(store Store, allocator *FallbackAllocator, clock Clock, logger Logger) *Repairer {
	return &Repairer{
		store:     store,
		allocator: allocator,
		clock:     clock,
		logger:    logger,
	}
}

// Repair returns a repaired copy of raw. raw itself is never modified.
// Any error means the record must be dropped.
func (r *Repairer) Repair(ctx context.Context, kind Kind, raw Record) (Record, error) {
	if raw.ID() == "" {
		return nil, ErrMissingID
	}

	rec := raw.clone()

	now := timestamp(r.clock.Now())
	for _, key := range []string{"createdAt", "updatedAt"} {
		if rec.missing(key) {
			rec[key] = now
		}
	}

	if err := r.clearDangling(ctx, kind, rec); err != nil {
		return nil, err
	}

	if fn, ok := repairStrategies[kind]; ok {
		if err := fn(ctx, r, rec); err != nil {
			return nil, err
		}
	}

	for k, v := range rec {
		sv, err := storable(v)
		if err != nil {
			return nil, fmt.Errorf("converting %s: %w", k, err)
		}
		rec[k] = sv
	}
	return rec, nil
}

// clearDangling sets foreign keys that name a missing row to nil. Keys into
// the record's own kind are left alone: the row they name may come later in
// the same table.
func (r *Repairer) clearDangling(ctx context.Context, kind Kind, rec Record) error {
	ks, ok := Lookup(kind)
	if !ok {
		return nil
	}
	for _, fk := range ks.ForeignKeys {
		if (fk.Owner && !fk.Rebound) || fk.References == kind {
			continue
		}
		id := rec.String(fk.Column)
		if id == "" {
			continue
		}
		parent, _ := Lookup(fk.References)
		found, err := r.store.Exists(ctx, parent.Table, id)
		if err != nil {
			return fmt.Errorf("checking %s %s: %w", fk.Column, id, err)
		}
		if !found {
			r.logger.Debug("cleared dangling reference", "table", ks.Table, "id", rec.ID(), "column", fk.Column, "missing", id)
			rec[fk.Column] = nil
		}
	}
	return nil
}

func repairDocument(ctx context.Context, r *Repairer, rec Record) error {
	if rec.missing("collectionId") {
		id, err := r.collectionFor(ctx, rec)
		if err != nil {
			return err
		}
		rec["collectionId"] = id
	}

	if rec.missing("content") {
		if text := rec.String("text"); text != "" {
			rec["content"] = textDocument(text)
		} else {
			rec["content"] = emptyDocument()
		}
	}

	rec["collaboratorIds"] = idList(rec["collaboratorIds"])
	return nil
}

// idList normalizes an id array that may have been exported as its text
// form. Text that does not parse as an array becomes an empty list.
func idList(v any) any {
	switch t := v.(type) {
	case nil:
		return []any{}
	case string:
		var ids []any
		if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
			if err := json.Unmarshal([]byte(t), &ids); err == nil {
				return ids
			}
		}
		return []any{}
	default:
		return t
	}
}

// collectionFor picks the collection a document without one is bound to:
// the earliest existing collection, else a fresh fallback in its team.
func (r *Repairer) collectionFor(ctx context.Context, rec Record) (string, error) {
	id, ok, err := r.store.FirstCollectionID(ctx)
	if err != nil {
		return "", fmt.Errorf("looking up first collection: %w", err)
	}
	if ok {
		return id, nil
	}

	teamID := rec.String("teamId")
	if teamID == "" {
		return "", ErrNoTeam
	}

	id, err = r.allocator.Allocate(ctx, teamID)
	if err != nil {
		return "", fmt.Errorf("%w for team %s: %w", ErrAllocateCollection, teamID, err)
	}
	r.logger.Debug("bound document to fallback collection", "document", rec.ID(), "collection", id)
	return id, nil
}

func repairUser(_ context.Context, _ *Repairer, rec Record) error {
	if v, ok := rec["notificationSettings"]; ok && v == nil {
		rec["notificationSettings"] = map[string]any{}
	}
	return nil
}

func repairCollection(_ context.Context, _ *Repairer, rec Record) error {
	if v, ok := rec["membershipIds"]; ok && v == nil {
		rec["membershipIds"] = []any{}
	}
	return nil
}

func repairTeam(_ context.Context, _ *Repairer, rec Record) error {
	if v, ok := rec["allowedDomains"]; ok && v == nil {
		rec["allowedDomains"] = []any{}
	}
	return nil
}

// proseNode is a node of the rich text document tree stored in
// documents.content.
type proseNode struct {
	Type    string      `json:"type"`
	Text    string      `json:"text,omitempty"`
	Content []proseNode `json:"content,omitempty"`
}

func textDocument(text string) proseNode {
	return proseNode{Type: "doc", Content: []proseNode{
		{Type: "paragraph", Content: []proseNode{{Type: "text", Text: text}}},
	}}
}

func emptyDocument() proseNode {
	return proseNode{Type: "doc", Content: []proseNode{{Type: "paragraph"}}}
}

// storable converts v into a value every supported driver accepts: nil,
// string, bool, int64 or float64. Structured values become JSON text.
func storable(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, int64, float64:
		return t, nil
	case string:
		return validUTF8(t), nil
	case int:
		return int64(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("parsing number %q: %w", t.String(), err)
		}
		return f, nil
	default:
		return marshalJSON(t)
	}
}

func validUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

// marshalJSON encodes v without HTML escaping so stored text matches what
// the export carried.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encoding json: %w", err)
	}
	return validUTF8(strings.TrimSuffix(buf.String(), "\n")), nil
}
