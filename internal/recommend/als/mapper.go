// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import (
	"cmp"
	"fmt"
	"slices"
)

// IndexMapper is an immutable bijection between raw entity identifiers and
// dense indices in [0, N). Index i belongs to the i-th smallest raw id.
type IndexMapper[K cmp.Ordered] struct {
	ids   []K
	index map[K]int
}

// NewIndexMapper builds a mapper from ids. The input may be unsorted and may
// contain duplicates; it is not modified.
func NewIndexMapper[K cmp.Ordered](ids []K) *IndexMapper[K] {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	index := make(map[K]int, len(sorted))
	for i, id := range sorted {
		index[id] = i
	}
	return &IndexMapper[K]{ids: sorted, index: index}
}

// Len returns the number of mapped identifiers.
func (m *IndexMapper[K]) Len() int {
	return len(m.ids)
}

// ToDense returns the dense index of raw.
func (m *IndexMapper[K]) ToDense(raw K) (int, error) {
	idx, ok := m.index[raw]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrUnknownIdentifier, raw)
	}
	return idx, nil
}

// ToRaw returns the raw identifier stored at dense index idx.
func (m *IndexMapper[K]) ToRaw(idx int) (K, error) {
	if idx < 0 || idx >= len(m.ids) {
		var zero K
		return zero, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, idx, len(m.ids))
	}
	return m.ids[idx], nil
}

// Contains reports whether raw was mapped.
func (m *IndexMapper[K]) Contains(raw K) bool {
	_, ok := m.index[raw]
	return ok
}

// IDs returns a copy of the raw identifiers in dense order.
func (m *IndexMapper[K]) IDs() []K {
	return slices.Clone(m.ids)
}
