// Package traverse flattens a forest into display order.
package traverse

import (
	"cmp"
	"iter"

	"github.com/jacentio/forest/internal/walk"
	"github.com/jacentio/forest/store"
)

// Querier is the read-only query surface the traversal needs.
// *store.Store satisfies it.
type Querier[ID cmp.Ordered] interface {
	Contains(id ID) bool
	Get(id ID) (store.Record[ID], bool)
	Children(id ID) []store.Record[ID]
}

// DepthFirst returns a pre-order sequence over the forest rooted at the
// roots of records.
//
// A record is a root when it has no parent or its parent is not in q.
// Roots are taken in the order they appear in records; their descendants
// come from q, siblings in insertion order. Every identifier is yielded at
// most once. Records not reachable from one of the roots in records are
// omitted. The sequence may be iterated any number of times.
func DepthFirst[ID cmp.Ordered](q Querier[ID], records []store.Record[ID]) iter.Seq[store.Record[ID]] {
	return func(yield func(store.Record[ID]) bool) {
		var roots []ID
		given := make(map[ID]store.Record[ID])
		for _, rec := range records {
			if isRoot(q, rec) {
				roots = append(roots, rec.ID)
				given[rec.ID] = rec
			}
		}

		children := func(id ID) []ID {
			kids := q.Children(id)
			out := make([]ID, len(kids))
			for i, k := range kids {
				out[i] = k.ID
			}
			return out
		}

		walk.PreOrder(roots, children, func(id ID) bool {
			rec, ok := q.Get(id)
			if !ok {
				// Root given by the caller but absent from q
				rec = given[id]
			}
			return yield(rec)
		})
	}
}

// DepthFirstOrder collects DepthFirst into a slice.
func DepthFirstOrder[ID cmp.Ordered](q Querier[ID], records []store.Record[ID]) []store.Record[ID] {
	out := make([]store.Record[ID], 0, len(records))
	for rec := range DepthFirst(q, records) {
		out = append(out, rec)
	}
	return out
}

// isRoot reports whether rec starts a tree: no parent, or an orphan.
func isRoot[ID cmp.Ordered](q Querier[ID], rec store.Record[ID]) bool {
	parent, ok := rec.ParentID()
	return !ok || !q.Contains(parent)
}
