// Package util holds small generic helpers for handing out snapshots of
// internal state.
package util

import (
	"cmp"
	"slices"
)

// CloneSlice returns a copy of src that shares no memory with it.
// The copy is never nil, so callers can range over or append to it freely.
func CloneSlice[T any](src []T) []T {
	clone := make([]T, len(src))
	copy(clone, src)

	return clone
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}
