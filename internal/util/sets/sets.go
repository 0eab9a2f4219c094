// Package sets is a small generic set used for variant allow and deny lists.
package sets

import (
	"cmp"
	"maps"
	"slices"
)

// Set holds distinct comparable values. The zero value is an empty,
// read-only set; use New before adding.
type Set[T comparable] map[T]struct{}

// New returns a set of vals.
func New[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s.Add(v)
	}
	return s
}

func (s Set[T]) Add(v T) { s[v] = struct{}{} }

func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

func (s Set[T]) Len() int { return len(s) }

// Difference returns a new set of the members of s missing from other.
func (s Set[T]) Difference(other Set[T]) Set[T] {
	out := New[T]()
	for v := range s {
		if !other.Has(v) {
			out.Add(v)
		}
	}
	return out
}

// Sorted lists the members in ascending order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	return slices.Sorted(maps.Keys(s))
}
