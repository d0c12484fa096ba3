// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import (
	"math"
	"slices"
)

// Scored is a ranked candidate.
type Scored struct {
	// Index is the dense item index.
	Index int `json:"index"`

	// Score is the dot product or cosine similarity.
	Score float64 `json:"score"`
}

// better orders candidates by descending score, then ascending index.
// NaN ranks below every number.
func better(a, b Scored) bool {
	aNaN, bNaN := math.IsNaN(a.Score), math.IsNaN(b.Score)
	switch {
	case aNaN != bNaN:
		return bNaN
	case !aNaN && a.Score != b.Score:
		return a.Score > b.Score
	default:
		return a.Index < b.Index
	}
}

// topK keeps the k best candidates in a bounded heap whose root is the worst
// kept entry. Push is O(log k).
type topK struct {
	k    int
	heap []Scored
}

func newTopK(k int) *topK {
	return &topK{k: k, heap: make([]Scored, 0, k)}
}

func (t *topK) push(s Scored) {
	if len(t.heap) < t.k {
		t.heap = append(t.heap, s)
		t.bubbleUp(len(t.heap) - 1)
		return
	}
	if t.k == 0 || !better(s, t.heap[0]) {
		return
	}
	t.heap[0] = s
	t.bubbleDown(0)
}

// sorted returns the kept entries best first.
func (t *topK) sorted() []Scored {
	out := slices.Clone(t.heap)
	slices.SortFunc(out, func(a, b Scored) int {
		if better(a, b) {
			return -1
		}
		if better(b, a) {
			return 1
		}
		return 0
	})
	return out
}

func (t *topK) bubbleUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !better(t.heap[parent], t.heap[i]) {
			return
		}
		t.heap[parent], t.heap[i] = t.heap[i], t.heap[parent]
		i = parent
	}
}

func (t *topK) bubbleDown(i int) {
	n := len(t.heap)
	for {
		worst := i
		left, right := 2*i+1, 2*i+2
		if left < n && better(t.heap[worst], t.heap[left]) {
			worst = left
		}
		if right < n && better(t.heap[worst], t.heap[right]) {
			worst = right
		}
		if worst == i {
			return
		}
		t.heap[i], t.heap[worst] = t.heap[worst], t.heap[i]
		i = worst
	}
}
