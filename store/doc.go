// Package store provides an in-memory index over a forest of
// parent-referencing records.
//
// Forest is designed for presentation layers that render a hierarchy as a
// table and need children, descendants, ancestor chains and depth for every
// row without rescanning the whole record set.
//
// # Key Features
//
//   - O(1) lookup by identifier and O(1) access to ordered children
//   - Pre-order descendants in O(k) for a subtree of k records
//   - Lazily memoized ancestor chains, reused across lookups
//   - Incremental insert, cascading remove and reparenting update
//   - Orphan tolerance: records whose parent is missing act as roots
//   - Cycle-safe walks using explicit stacks and visited sets
//
// # Records
//
// A [Record] carries an identifier, an optional parent identifier and a
// label. Identifiers may be any ordered type:
//
//	s := store.New[string](store.DefaultConfig())
//	err := s.Replace([]store.Record[string]{
//	    store.Root("org", "Organization"),
//	    store.Child("studio", "org", "Studio"),
//	})
//
// # Cache Invalidation
//
// Ancestor chains are computed on first use and cached per identifier.
// Any mutation that can change a record's lineage (reparenting it or one of
// its ancestors, inserting its missing parent) drops the cached chain of
// that record and its entire subtree. Insert and Remove also drop the
// chains cached under the affected parent.
//
// # Concurrency
//
// A [Store] has a single owner. It performs no locking; callers sharing a
// store across goroutines must serialize access themselves.
//
// # Errors
//
// Queries never fail; unknown identifiers yield empty results. Mutations
// report:
//
//   - [ErrNotFound] - Remove or Update of an unknown identifier
//   - [ErrAlreadyExists] - Insert of an identifier already present
//   - [ErrDuplicateID] - Replace with a repeated identifier
package store
