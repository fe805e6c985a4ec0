package restore

import (
	"fmt"
	"sort"
)

// Kind identifies one exported entity type.
type Kind string

const (
	KindTeam            Kind = "team"
	KindUser            Kind = "user"
	KindCollection      Kind = "collection"
	KindGroup           Kind = "group"
	KindDocument        Kind = "document"
	KindAttachment      Kind = "attachment"
	KindShare           Kind = "share"
	KindStar            Kind = "star"
	KindPin             Kind = "pin"
	KindView            Kind = "view"
	KindMembership      Kind = "membership"
	KindGroupMembership Kind = "group_membership"
)

// ForeignKey declares that Column holds the id of a row of kind References.
// Owner keys are the ones a row cannot exist without; the orphan sweep
// only follows those. Every other key, and any owner key marked Rebound,
// is cleared by the repairer when it names a row that does not exist.
type ForeignKey struct {
	Column     string
	References Kind
	Owner      bool

	// Rebound owner keys are filled in again by the kind's repair once
	// cleared.
	Rebound bool
}

// KindSpec describes how a kind is stored.
type KindSpec struct {
	Kind        Kind
	Table       string
	ForeignKeys []ForeignKey
}

// kindSpecs is declared in dependency order. LoadOrder recomputes the order
// from the foreign keys, so an entry added out of place still loads after
// its parents.
var kindSpecs = []KindSpec{
	{Kind: KindTeam, Table: "teams"},
	{Kind: KindUser, Table: "users", ForeignKeys: []ForeignKey{
		{Column: "teamId", References: KindTeam, Owner: true},
	}},
	{Kind: KindCollection, Table: "collections", ForeignKeys: []ForeignKey{
		{Column: "teamId", References: KindTeam, Owner: true},
		{Column: "createdById", References: KindUser},
	}},
	{Kind: KindGroup, Table: "groups", ForeignKeys: []ForeignKey{
		{Column: "teamId", References: KindTeam, Owner: true},
		{Column: "createdById", References: KindUser},
	}},
	{Kind: KindDocument, Table: "documents", ForeignKeys: []ForeignKey{
		{Column: "teamId", References: KindTeam, Owner: true},
		{Column: "collectionId", References: KindCollection, Owner: true, Rebound: true},
		{Column: "createdById", References: KindUser},
		{Column: "lastModifiedById", References: KindUser},
		{Column: "parentDocumentId", References: KindDocument},
	}},
	{Kind: KindAttachment, Table: "attachments", ForeignKeys: []ForeignKey{
		{Column: "teamId", References: KindTeam},
		{Column: "userId", References: KindUser},
		{Column: "documentId", References: KindDocument, Owner: true},
	}},
	{Kind: KindShare, Table: "shares", ForeignKeys: []ForeignKey{
		{Column: "teamId", References: KindTeam},
		{Column: "userId", References: KindUser},
		{Column: "documentId", References: KindDocument, Owner: true},
	}},
	{Kind: KindStar, Table: "stars", ForeignKeys: []ForeignKey{
		{Column: "userId", References: KindUser, Owner: true},
		{Column: "documentId", References: KindDocument, Owner: true},
	}},
	{Kind: KindPin, Table: "pins", ForeignKeys: []ForeignKey{
		{Column: "teamId", References: KindTeam},
		{Column: "createdById", References: KindUser},
		{Column: "documentId", References: KindDocument, Owner: true},
		{Column: "collectionId", References: KindCollection},
	}},
	{Kind: KindView, Table: "views", ForeignKeys: []ForeignKey{
		{Column: "userId", References: KindUser, Owner: true},
		{Column: "documentId", References: KindDocument, Owner: true},
	}},
	{Kind: KindMembership, Table: "memberships", ForeignKeys: []ForeignKey{
		{Column: "userId", References: KindUser, Owner: true},
		{Column: "collectionId", References: KindCollection, Owner: true},
		{Column: "createdById", References: KindUser},
	}},
	{Kind: KindGroupMembership, Table: "group_users", ForeignKeys: []ForeignKey{
		{Column: "groupId", References: KindGroup, Owner: true},
		{Column: "userId", References: KindUser, Owner: true},
		{Column: "createdById", References: KindUser},
	}},
}

var (
	loadOrder []KindSpec
	byKind    map[Kind]KindSpec
	byTable   map[string]KindSpec
)

func init() {
	order, err := topoSort(kindSpecs)
	if err != nil {
		panic(err)
	}
	loadOrder = order

	byKind = make(map[Kind]KindSpec, len(kindSpecs))
	byTable = make(map[string]KindSpec, len(kindSpecs))
	for _, ks := range kindSpecs {
		byKind[ks.Kind] = ks
		byTable[ks.Table] = ks
	}
}

// LoadOrder returns every kind in an order where each kind comes after all
// kinds its foreign keys reference. The returned slice is a copy.
func LoadOrder() []KindSpec {
	out := make([]KindSpec, len(loadOrder))
	copy(out, loadOrder)
	return out
}

// Lookup returns the definition of k.
func Lookup(k Kind) (KindSpec, bool) {
	ks, ok := byKind[k]
	return ks, ok
}

// KindByTable returns the definition of the kind stored in table.
func KindByTable(table string) (KindSpec, bool) {
	ks, ok := byTable[table]
	return ks, ok
}

// Tables returns the table names in load order.
func Tables() []string {
	tables := make([]string, len(loadOrder))
	for i, ks := range loadOrder {
		tables[i] = ks.Table
	}
	return tables
}

// topoSort orders specs so referenced kinds come first (Kahn's algorithm).
// Ties are broken by declaration order and self references are ignored.
func topoSort(specs []KindSpec) ([]KindSpec, error) {
	index := make(map[Kind]int, len(specs))
	for i, ks := range specs {
		if _, dup := index[ks.Kind]; dup {
			return nil, fmt.Errorf("kind %q declared twice", ks.Kind)
		}
		index[ks.Kind] = i
	}

	indegree := make([]int, len(specs))
	dependents := make([][]int, len(specs))
	for i, ks := range specs {
		seen := make(map[Kind]bool)
		for _, fk := range ks.ForeignKeys {
			if fk.References == ks.Kind || seen[fk.References] {
				continue
			}
			j, ok := index[fk.References]
			if !ok {
				return nil, fmt.Errorf("kind %q references undeclared kind %q", ks.Kind, fk.References)
			}
			seen[fk.References] = true
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i := range specs {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]KindSpec, 0, len(specs))
	for len(ready) > 0 {
		sort.Ints(ready)
		i := ready[0]
		ready = ready[1:]
		order = append(order, specs[i])
		for _, d := range dependents[i] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(order) != len(specs) {
		return nil, fmt.Errorf("cycle among kinds: %d of %d ordered", len(order), len(specs))
	}
	return order, nil
}
