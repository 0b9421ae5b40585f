// Package derive computes per-record view data from a forest index.
//
// All functions are pure: they read through a [Querier] and never modify
// the records they are given.
package derive

import (
	"cmp"
	"slices"

	"github.com/jacentio/forest/store"
)

// Querier is the read-only query surface the derivations need.
// *store.Store satisfies it.
type Querier[ID cmp.Ordered] interface {
	HasChildren(id ID) bool
	AncestorIDs(id ID) []ID
	AncestorChain(id ID) []store.Record[ID]
}

// Category classifies a record by whether it has children.
type Category string

const (
	// Leaf is a record without children.
	Leaf Category = "leaf"

	// Group is a record with at least one child.
	Group Category = "group"
)

// Enriched is the per-row view model handed to a renderer.
type Enriched[ID cmp.Ordered] struct {
	store.Record[ID]

	Category    Category
	HasChildren bool

	// Path holds the labels from the root down to the record itself.
	Path []string

	// IDPath holds the identifiers from the root down to the record itself.
	IDPath []ID

	// Level is the zero-based depth.
	Level int
}

// CategoryOf returns Group if rec has children and Leaf otherwise.
func CategoryOf[ID cmp.Ordered](q Querier[ID], rec store.Record[ID]) Category {
	if q.HasChildren(rec.ID) {
		return Group
	}
	return Leaf
}

// Path returns the labels from the furthest resolvable ancestor down to rec.
// A record unknown to q is treated as a root of its own.
func Path[ID cmp.Ordered](q Querier[ID], rec store.Record[ID]) []string {
	chain := q.AncestorChain(rec.ID)
	if len(chain) == 0 {
		return []string{rec.Label}
	}
	out := make([]string, len(chain))
	for i, r := range chain {
		out[len(chain)-1-i] = r.Label
	}
	return out
}

// IDPath returns the identifiers from the furthest resolvable ancestor down
// to rec. Renderers use it to place a row at its nesting level.
func IDPath[ID cmp.Ordered](q Querier[ID], rec store.Record[ID]) []ID {
	chain := q.AncestorIDs(rec.ID)
	if len(chain) == 0 {
		return []ID{rec.ID}
	}
	// AncestorIDs returns a private copy
	slices.Reverse(chain)
	return chain
}

// Level returns the zero-based depth of rec, which is the length of its
// ancestor chain minus one. Records without resolvable ancestors, including
// records unknown to q, are at level 0.
func Level[ID cmp.Ordered](q Querier[ID], rec store.Record[ID]) int {
	return max(len(q.AncestorIDs(rec.ID))-1, 0)
}

// Enrich returns rec augmented with its category, path and level.
func Enrich[ID cmp.Ordered](q Querier[ID], rec store.Record[ID]) Enriched[ID] {
	idPath := IDPath(q, rec)
	hasChildren := q.HasChildren(rec.ID)

	category := Leaf
	if hasChildren {
		category = Group
	}

	return Enriched[ID]{
		Record:      rec,
		Category:    category,
		HasChildren: hasChildren,
		Path:        Path(q, rec),
		IDPath:      idPath,
		Level:       len(idPath) - 1,
	}
}

// EnrichAll applies Enrich to every record, preserving order.
func EnrichAll[ID cmp.Ordered](q Querier[ID], records []store.Record[ID]) []Enriched[ID] {
	out := make([]Enriched[ID], 0, len(records))
	for _, rec := range records {
		out = append(out, Enrich(q, rec))
	}
	return out
}
