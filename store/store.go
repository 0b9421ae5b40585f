package store

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jacentio/forest/internal/walk"
)

// slot holds one entry of the canonical sequence. Removed entries stay in
// place as dead slots until the sequence is compacted.
type slot[ID cmp.Ordered] struct {
	rec  Record[ID]
	live bool
}

// Stats is a point-in-time snapshot of store counters.
type Stats struct {
	// Records is the number of live records.
	Records int

	// CachedChains is the number of memoized ancestor chains.
	CachedChains int

	// ChainHits counts ancestor chain lookups served from the cache.
	ChainHits uint64

	// ChainMisses counts ancestor chain lookups that walked the parent relation.
	ChainMisses uint64

	// Invalidations counts cached chains dropped by mutations.
	Invalidations uint64
}

// Store indexes a forest of parent-referencing records.
//
// It keeps the canonical record sequence plus three derived indices:
// id to record, parent id to ordered child ids, and id to memoized
// ancestor chain. All mutation goes through Replace, Insert, Remove and
// Update, which keep the indices consistent and drop stale chains.
//
// A Store is not safe for concurrent use. Reads may run concurrently with
// each other only while no mutation is in progress; AncestorChain fills
// the cache and therefore counts as a mutation for this purpose.
type Store[ID cmp.Ordered] struct {
	config Config
	logger *slog.Logger

	slots    []slot[ID]
	dead     int
	index    map[ID]int
	children map[ID][]ID
	chains   map[ID][]ID

	hits          uint64
	misses        uint64
	invalidations uint64
}

// New creates an empty Store.
func New[ID cmp.Ordered](config Config) *Store[ID] {
	config.validate()
	s := &Store[ID]{
		config: config,
		logger: config.Logger,
	}
	s.reset(0)
	return s
}

// reset discards every index.
func (s *Store[ID]) reset(n int) {
	s.slots = make([]slot[ID], 0, n)
	s.dead = 0
	s.index = make(map[ID]int, n)
	s.children = make(map[ID][]ID)
	s.chains = make(map[ID][]ID)
}

// Replace discards the current contents and rebuilds every index from records.
//
// Records may reference parents that appear later in the sequence or not at
// all. If records repeats an identifier, ErrDuplicateID is returned and the
// store is left unchanged.
func (s *Store[ID]) Replace(records []Record[ID]) error {
	seen := make(map[ID]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.ID]; dup {
			return fmt.Errorf("replace: %w: %v", ErrDuplicateID, rec.ID)
		}
		seen[rec.ID] = struct{}{}
	}

	dropped := len(s.chains)
	s.reset(len(records))

	// 1. Register every record so parents are resolvable regardless of order
	for i, rec := range records {
		s.slots = append(s.slots, slot[ID]{rec: rec, live: true})
		s.index[rec.ID] = i
	}

	// 2. Link each record under its parent, in input order
	for _, rec := range records {
		if rec.HasParent {
			s.children[rec.Parent] = append(s.children[rec.Parent], rec.ID)
		}
	}

	s.invalidations += uint64(dropped)
	recordInvalidations(dropped)
	recordRebuild(len(records))

	s.logger.Debug("forest rebuilt",
		"records", len(records),
		"droppedChains", dropped,
	)
	return nil
}

// All returns the live records in canonical order.
// The returned slice is a copy.
func (s *Store[ID]) All() []Record[ID] {
	out := make([]Record[ID], 0, len(s.index))
	for _, sl := range s.slots {
		if sl.live {
			out = append(out, sl.rec)
		}
	}
	return out
}

// Len returns the number of live records.
func (s *Store[ID]) Len() int {
	return len(s.index)
}

// Get returns the record with the given identifier.
func (s *Store[ID]) Get(id ID) (Record[ID], bool) {
	i, ok := s.index[id]
	if !ok {
		var zero Record[ID]
		return zero, false
	}
	return s.slots[i].rec, true
}

// Contains reports whether id is a live record.
func (s *Store[ID]) Contains(id ID) bool {
	_, ok := s.index[id]
	return ok
}

// Children returns the direct children of id in insertion order.
// It returns nil when id is unknown or has no children.
func (s *Store[ID]) Children(id ID) []Record[ID] {
	if !s.Contains(id) {
		return nil
	}
	return s.records(s.children[id])
}

// HasChildren reports whether id is a live record with at least one child.
func (s *Store[ID]) HasChildren(id ID) bool {
	return s.Contains(id) && len(s.children[id]) > 0
}

// Descendants returns every transitive descendant of id in pre-order,
// excluding id itself. It returns nil when id is unknown or a leaf.
func (s *Store[ID]) Descendants(id ID) []Record[ID] {
	if !s.HasChildren(id) {
		return nil
	}
	ids := walk.Subtree(id, s.childIDs)
	return s.records(ids[1:])
}

// AncestorChain returns the chain from id to its furthest resolvable
// ancestor, inclusive of id itself. The walk stops at a root, at a parent
// that is not in the store, or when it would revisit a record.
//
// The result is freshly allocated on every call. It is nil when id is unknown.
func (s *Store[ID]) AncestorChain(id ID) []Record[ID] {
	return s.records(s.chain(id))
}

// AncestorIDs is AncestorChain expressed as identifiers.
func (s *Store[ID]) AncestorIDs(id ID) []ID {
	return slices.Clone(s.chain(id))
}

// Stats returns a snapshot of the store counters.
func (s *Store[ID]) Stats() Stats {
	return Stats{
		Records:       len(s.index),
		CachedChains:  len(s.chains),
		ChainHits:     s.hits,
		ChainMisses:   s.misses,
		Invalidations: s.invalidations,
	}
}

// Insert adds rec to the store.
//
// It returns ErrAlreadyExists if the identifier is taken. Records already
// in the store that name rec.ID as their parent become its children. The
// cached chains of the parent's subtree are dropped.
func (s *Store[ID]) Insert(rec Record[ID]) error {
	if s.Contains(rec.ID) {
		return fmt.Errorf("insert %v: %w", rec.ID, ErrAlreadyExists)
	}

	s.index[rec.ID] = len(s.slots)
	s.slots = append(s.slots, slot[ID]{rec: rec, live: true})

	if rec.HasParent {
		s.children[rec.Parent] = append(s.children[rec.Parent], rec.ID)
		// Covers rec.ID and any orphans it adopts
		s.invalidateSubtree(rec.Parent)
	} else if len(s.children[rec.ID]) > 0 {
		// Adopted orphans now resolve one more ancestor
		s.invalidateSubtree(rec.ID)
	}
	return nil
}

// Remove deletes id together with all of its descendants.
//
// The removed records are returned in pre-order, id first. If id is not in
// the store, ErrNotFound is returned and nothing changes.
func (s *Store[ID]) Remove(id ID) ([]Record[ID], error) {
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("remove %v: %w", id, ErrNotFound)
	}
	target := s.slots[i].rec

	// Collect the full subtree before touching any index
	ids := walk.Subtree(id, s.childIDs)

	removed := make([]Record[ID], 0, len(ids))
	for _, d := range ids {
		j, ok := s.index[d]
		if !ok {
			continue
		}
		removed = append(removed, s.slots[j].rec)
		s.slots[j] = slot[ID]{}
		s.dead++
		delete(s.index, d)
		delete(s.children, d)
		s.dropChain(d)
	}

	if target.HasParent {
		s.unlink(target.Parent, id)
		s.invalidateSubtree(target.Parent)
	}
	s.maybeCompact()

	recordCascade(len(removed))
	s.logger.Debug("forest subtree removed",
		"id", id,
		"removed", len(removed),
	)
	return removed, nil
}

// Update replaces the stored value of rec.ID.
//
// If the parent changed, the record moves to the end of its new parent's
// children and the cached chains of the record and all its descendants are
// dropped. If the parent is unchanged only the stored value is replaced.
// It returns ErrNotFound if the identifier is not in the store.
func (s *Store[ID]) Update(rec Record[ID]) error {
	i, ok := s.index[rec.ID]
	if !ok {
		return fmt.Errorf("update %v: %w", rec.ID, ErrNotFound)
	}
	prev := s.slots[i].rec
	s.slots[i].rec = rec

	if sameParent(prev, rec) {
		return nil
	}

	if prev.HasParent {
		s.unlink(prev.Parent, rec.ID)
	}
	if rec.HasParent {
		s.children[rec.Parent] = append(s.children[rec.Parent], rec.ID)
	}
	s.invalidateSubtree(rec.ID)

	s.logger.Debug("forest record reparented",
		"id", rec.ID,
		"hadParent", prev.HasParent,
		"hasParent", rec.HasParent,
	)
	return nil
}

// chain returns the cached ancestor ids of id, computing them on a miss.
// Callers must not retain or modify the returned slice.
func (s *Store[ID]) chain(id ID) []ID {
	if !s.Contains(id) {
		return nil
	}
	if c, ok := s.chains[id]; ok {
		s.hits++
		recordChainHit()
		return c
	}

	s.misses++
	recordChainMiss()
	c := s.walkChain(id)
	s.chains[id] = c
	return c
}

// walkChain follows parent references from id. When it reaches an ancestor
// whose chain is cached, the cached suffix is reused.
func (s *Store[ID]) walkChain(id ID) []ID {
	chain := []ID{id}
	seen := map[ID]struct{}{id: {}}

	push := func(a ID) bool {
		if _, loop := seen[a]; loop {
			s.logger.Warn("ancestor cycle detected", "id", id, "at", a)
			return false
		}
		if s.config.MaxDepth > 0 && len(chain) > s.config.MaxDepth {
			s.logger.Warn("ancestor chain exceeds max depth",
				"id", id,
				"maxDepth", s.config.MaxDepth,
			)
			return false
		}
		chain = append(chain, a)
		seen[a] = struct{}{}
		return true
	}

	cur := s.slots[s.index[id]].rec
	for cur.HasParent {
		j, ok := s.index[cur.Parent]
		if !ok {
			break // orphan root
		}
		if cached, ok := s.chains[cur.Parent]; ok {
			for _, a := range cached {
				if !push(a) {
					break
				}
			}
			break
		}
		if !push(cur.Parent) {
			break
		}
		cur = s.slots[j].rec
	}
	return chain
}

// invalidateSubtree drops the cached chains of id and every descendant.
func (s *Store[ID]) invalidateSubtree(id ID) {
	walk.PreOrder([]ID{id}, s.childIDs, func(d ID) bool {
		s.dropChain(d)
		return true
	})
}

func (s *Store[ID]) dropChain(id ID) {
	if _, ok := s.chains[id]; !ok {
		return
	}
	delete(s.chains, id)
	s.invalidations++
	recordInvalidations(1)
}

// childIDs returns the internal child list of id. Read-only.
func (s *Store[ID]) childIDs(id ID) []ID {
	return s.children[id]
}

// unlink removes child from parent's child list, preserving sibling order.
func (s *Store[ID]) unlink(parent, child ID) {
	kids, ok := s.children[parent]
	if !ok {
		return
	}
	if i := slices.Index(kids, child); i >= 0 {
		kids = slices.Delete(kids, i, i+1)
	}
	if len(kids) == 0 {
		delete(s.children, parent)
		return
	}
	s.children[parent] = kids
}

// maybeCompact drops dead slots once they outnumber the threshold and half
// of the sequence.
func (s *Store[ID]) maybeCompact() {
	if s.dead < s.config.CompactThreshold || s.dead*2 < len(s.slots) {
		return
	}
	live := s.slots[:0]
	for _, sl := range s.slots {
		if sl.live {
			s.index[sl.rec.ID] = len(live)
			live = append(live, sl)
		}
	}
	clear(s.slots[len(live):])
	s.slots = live
	s.dead = 0
}

// records resolves ids to records, skipping any that are not live.
func (s *Store[ID]) records(ids []ID) []Record[ID] {
	if len(ids) == 0 {
		return nil
	}
	out := make([]Record[ID], 0, len(ids))
	for _, id := range ids {
		if i, ok := s.index[id]; ok {
			out = append(out, s.slots[i].rec)
		}
	}
	return out
}
