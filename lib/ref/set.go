// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "slices"

// Set is a set of refs. The zero value (nil) is a valid empty set for
// reads; use NewSet or make before adding.
type Set map[Ref]struct{}

// NewSet returns a set holding refs.
func NewSet(refs ...Ref) Set {
	set := make(Set, len(refs))
	for _, r := range refs {
		set[r] = struct{}{}
	}
	return set
}

// Add inserts r.
func (s Set) Add(r Ref) { s[r] = struct{}{} }

// Has reports whether r is in the set. Safe on a nil set.
func (s Set) Has(r Ref) bool {
	_, ok := s[r]
	return ok
}

// Len returns the number of refs in the set.
func (s Set) Len() int { return len(s) }

// Merge adds every ref of other to s.
func (s Set) Merge(other Set) {
	for r := range other {
		s[r] = struct{}{}
	}
}

// Clone returns an independent copy. Cloning a nil set returns an
// empty, writable set.
func (s Set) Clone() Set {
	clone := make(Set, len(s))
	for r := range s {
		clone[r] = struct{}{}
	}
	return clone
}

// Sorted returns the refs in Compare order.
func (s Set) Sorted() []Ref {
	refs := make([]Ref, 0, len(s))
	for r := range s {
		refs = append(refs, r)
	}
	slices.SortFunc(refs, Ref.Compare)
	return refs
}
