// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import "fmt"

// SimilarityIndex ranks items against an item. It holds a non-owning
// reference to a Model and never mutates it.
type SimilarityIndex struct {
	model *Model
}

// NewSimilarityIndex returns an index over model.
func NewSimilarityIndex(model *Model) *SimilarityIndex {
	return &SimilarityIndex{model: model}
}

// SimilarItems returns up to k items ranked by similarity to item. The queried
// item always comes first with its self score; the rest follow by descending
// score, ties by ascending index. normalized selects cosine similarity.
// k <= 0 ranks every item.
func (s *SimilarityIndex) SimilarItems(item, k int, normalized bool) ([]Scored, error) {
	if !s.model.Trained() {
		return nil, ErrNotTrained
	}
	n := s.model.Items.Len()
	if item < 0 || item >= n {
		return nil, fmt.Errorf("%w: item %d not in [0, %d)", ErrIndexOutOfRange, item, n)
	}
	if k <= 0 || k > n {
		k = n
	}

	factors := s.model.Factors.Items()
	if normalized {
		factors = s.model.Factors.NormalizedItems()
	}
	query := factors.row(item)

	top := newTopK(k - 1)
	for j := 0; j < n; j++ {
		if j == item {
			continue
		}
		top.push(Scored{Index: j, Score: dot(query, factors.row(j))})
	}

	out := make([]Scored, 0, k)
	out = append(out, Scored{Index: item, Score: dot(query, query)})
	return append(out, top.sorted()...), nil
}
