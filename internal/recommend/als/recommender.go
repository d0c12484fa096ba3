// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import "fmt"

// RecommendOptions controls candidate filtering.
type RecommendOptions struct {
	// FilterAlreadyInteracted drops items with a non-zero weight in the user's row.
	FilterAlreadyInteracted bool

	// ExcludeItems are dropped unconditionally.
	ExcludeItems []int
}

// DefaultRecommendOptions filters already-seen items and excludes nothing.
func DefaultRecommendOptions() RecommendOptions {
	return RecommendOptions{FilterAlreadyInteracted: true}
}

// Recommender ranks items for a user. It holds a non-owning reference to a
// Model and never mutates it.
type Recommender struct {
	model *Model
}

// NewRecommender returns a recommender over model.
func NewRecommender(model *Model) *Recommender {
	return &Recommender{model: model}
}

// Recommend returns up to k items for user ranked by x_u . y_i, ties by
// ascending index. rows must hold exactly one row and it must belong to user.
// k <= 0 ranks every remaining candidate.
func (r *Recommender) Recommend(user int, rows Rows, k int, opts RecommendOptions) ([]Scored, error) {
	if !r.model.Trained() {
		return nil, ErrNotTrained
	}
	numUsers, numItems := r.model.Users.Len(), r.model.Items.Len()
	if user < 0 || user >= numUsers {
		return nil, fmt.Errorf("%w: user %d not in [0, %d)", ErrIndexOutOfRange, user, numUsers)
	}
	if rows.NumRows() != 1 {
		return nil, fmt.Errorf("%w: expected 1 interaction row for user %d, got %d", ErrShapeMismatch, user, rows.NumRows())
	}
	if rows.User(0) != user {
		return nil, fmt.Errorf("%w: interaction row belongs to user %d, not %d", ErrShapeMismatch, rows.User(0), user)
	}

	skip := make([]bool, numItems)
	for _, i := range opts.ExcludeItems {
		if i >= 0 && i < numItems {
			skip[i] = true
		}
	}
	if opts.FilterAlreadyInteracted {
		row := rows.Row(0)
		for n, i := range row.Indices {
			if row.Values[n] != 0 && i >= 0 && i < numItems {
				skip[i] = true
			}
		}
	}

	if k <= 0 || k > numItems {
		k = numItems
	}
	x := r.model.Factors.Users().row(user)
	items := r.model.Factors.Items()
	top := newTopK(k)
	for i := 0; i < numItems; i++ {
		if skip[i] {
			continue
		}
		top.push(Scored{Index: i, Score: dot(x, items.row(i))})
	}
	return top.sorted(), nil
}
