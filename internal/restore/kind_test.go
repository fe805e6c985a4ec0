package restore

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLoadOrder(t *testing.T) {
	want := []string{
		"teams", "users", "collections", "groups", "documents", "attachments",
		"shares", "stars", "pins", "views", "memberships", "group_users",
	}
	got := Tables()
	if len(got) != len(want) {
		t.Fatalf("Tables() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tables()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoadOrder_ParentsFirst(t *testing.T) {
	pos := make(map[Kind]int)
	for i, ks := range LoadOrder() {
		pos[ks.Kind] = i
	}
	for _, ks := range LoadOrder() {
		for _, fk := range ks.ForeignKeys {
			if fk.References == ks.Kind {
				continue
			}
			if pos[fk.References] >= pos[ks.Kind] {
				t.Errorf("%s.%s references %s, which loads at %d after %d",
					ks.Table, fk.Column, fk.References, pos[fk.References], pos[ks.Kind])
			}
		}
	}
}

func TestLoadOrder_ReturnsCopy(t *testing.T) {
	order := LoadOrder()
	order[0] = KindSpec{Kind: "bogus"}
	if LoadOrder()[0].Kind != KindTeam {
		t.Error("LoadOrder() exposed its backing slice")
	}
}

func TestTopoSort(t *testing.T) {
	t.Run("declared out of place", func(t *testing.T) {
		specs := []KindSpec{
			{Kind: "child", ForeignKeys: []ForeignKey{{Column: "parentId", References: "parent"}}},
			{Kind: "parent"},
		}
		order, err := topoSort(specs)
		if err != nil {
			t.Fatalf("topoSort() error = %v", err)
		}
		if order[0].Kind != "parent" || order[1].Kind != "child" {
			t.Errorf("topoSort() = [%s %s], want [parent child]", order[0].Kind, order[1].Kind)
		}
	})

	t.Run("self reference ignored", func(t *testing.T) {
		specs := []KindSpec{
			{Kind: "doc", ForeignKeys: []ForeignKey{{Column: "parentDocumentId", References: "doc"}}},
		}
		order, err := topoSort(specs)
		if err != nil {
			t.Fatalf("topoSort() error = %v", err)
		}
		if len(order) != 1 {
			t.Errorf("topoSort() returned %d kinds, want 1", len(order))
		}
	})

	t.Run("cycle", func(t *testing.T) {
		specs := []KindSpec{
			{Kind: "a", ForeignKeys: []ForeignKey{{Column: "bId", References: "b"}}},
			{Kind: "b", ForeignKeys: []ForeignKey{{Column: "aId", References: "a"}}},
		}
		if _, err := topoSort(specs); err == nil {
			t.Error("topoSort() with a cycle expected error, got nil")
		}
	})

	t.Run("undeclared reference", func(t *testing.T) {
		specs := []KindSpec{
			{Kind: "a", ForeignKeys: []ForeignKey{{Column: "xId", References: "x"}}},
		}
		if _, err := topoSort(specs); err == nil {
			t.Error("topoSort() with an undeclared kind expected error, got nil")
		}
	})
}

func TestKindByTable(t *testing.T) {
	ks, ok := KindByTable("group_users")
	if !ok || ks.Kind != KindGroupMembership {
		t.Errorf("KindByTable(group_users) = %v, %v", ks.Kind, ok)
	}
	if _, ok := KindByTable("nope"); ok {
		t.Error("KindByTable(nope) found a kind")
	}
}

func TestStorable(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bool", true, true},
		{"int", 7, int64(7)},
		{"integer number", json.Number("42"), int64(42)},
		{"float number", json.Number("1.5"), 1.5},
		{"string", "plain", "plain"},
		{"invalid utf8", "a\xffb", "a�b"},
		{"map", map[string]any{"b": 1, "a": "<x>"}, `{"a":"<x>","b":1}`},
		{"slice", []any{"x", json.Number("2")}, `["x",2]`},
		{"empty slice", []any{}, `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storable(tt.in)
			if err != nil {
				t.Fatalf("storable() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("storable() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestStorable_HugeNumber(t *testing.T) {
	got, err := storable(json.Number("1e400"))
	if err == nil {
		t.Fatalf("storable(1e400) = %v, want error", got)
	}
	if !strings.Contains(err.Error(), "1e400") {
		t.Errorf("error = %v, want it to name the number", err)
	}
}

func TestTimestamp(t *testing.T) {
	in := time.Date(2024, 3, 1, 12, 0, 0, 123456000, time.FixedZone("EET", 2*60*60))
	if got := timestamp(in); got != "2024-03-01T10:00:00.123Z" {
		t.Errorf("timestamp() = %q, want %q", got, "2024-03-01T10:00:00.123Z")
	}
}
