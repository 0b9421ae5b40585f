package store

import "cmp"

// Record is a single node of the forest.
//
// The zero value of HasParent marks a root. Parent is only meaningful when
// HasParent is true.
type Record[ID cmp.Ordered] struct {
	// ID uniquely identifies the record within a Store.
	ID ID

	// Parent is the identifier of the parent record. It need not resolve to
	// a record in the Store; such a record is an orphan root.
	Parent ID

	// HasParent reports whether Parent is set.
	HasParent bool

	// Label is the display text of the record.
	Label string
}

// Root returns a record without a parent.
func Root[ID cmp.Ordered](id ID, label string) Record[ID] {
	return Record[ID]{ID: id, Label: label}
}

// Child returns a record placed under parent.
func Child[ID cmp.Ordered](id, parent ID, label string) Record[ID] {
	return Record[ID]{ID: id, Parent: parent, HasParent: true, Label: label}
}

// ParentID returns the parent identifier and whether the record has one.
func (r Record[ID]) ParentID() (ID, bool) {
	return r.Parent, r.HasParent
}

// sameParent reports whether a and b reference the same parent.
func sameParent[ID cmp.Ordered](a, b Record[ID]) bool {
	if a.HasParent != b.HasParent {
		return false
	}
	return !a.HasParent || a.Parent == b.Parent
}
