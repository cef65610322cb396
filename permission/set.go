// Package permission computes effective permission sets from the role graph.
package permission

import "sort"

// Wildcard is the serialized marker for the all-permissions set.
const Wildcard = "*"

// SuperAdminRole short-circuits resolution to the all-permissions set without
// loading the permission catalog.
const SuperAdminRole = "SuperAdmin"

// Set is the effective permission set of a subject: either an enumerated set
// of permission names or the wildcard covering everything.
type Set struct {
	all   bool
	names map[string]struct{}
}

// NewSet builds an enumerated set (deduplicated).
func NewSet(names ...string) Set {
	s := Set{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.names[n] = struct{}{}
	}
	return s
}

// All returns the wildcard set.
func All() Set { return Set{all: true} }

// IsAll reports whether the set is the wildcard.
func (s Set) IsAll() bool { return s.all }

// Has reports whether name is covered. A single branch handles the wildcard.
func (s Set) Has(name string) bool {
	if s.all {
		return true
	}
	_, ok := s.names[name]
	return ok
}

// HasAll reports whether every name is covered.
func (s Set) HasAll(names ...string) bool {
	for _, n := range names {
		if !s.Has(n) {
			return false
		}
	}
	return true
}

// Len returns the number of enumerated names; 0 for the wildcard.
func (s Set) Len() int {
	if s.all {
		return 0
	}
	return len(s.names)
}

// add unions names into an enumerated set.
func (s Set) add(names ...string) Set {
	for _, n := range names {
		s.names[n] = struct{}{}
	}
	return s
}

// Names returns the serialized form: sorted permission names, or the single
// wildcard marker. Sorting keeps output deterministic for any caller that
// compares or signs it.
func (s Set) Names() []string {
	if s.all {
		return []string{Wildcard}
	}
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// SetFromNames rebuilds a Set from its serialized form. Used by caches.
func SetFromNames(names []string) Set {
	if len(names) == 1 && names[0] == Wildcard {
		return All()
	}
	return NewSet(names...)
}
