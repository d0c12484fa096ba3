// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import (
	"fmt"
	"time"
)

// Snapshot is the serializable form of a trained Model: both factor matrices
// row-major and both id lists in dense order.
type Snapshot struct {
	Factors     int           `json:"factors"`
	UserIDs     []int64       `json:"user_ids"`
	ItemIDs     []int64       `json:"item_ids"`
	UserFactors []float64     `json:"user_factors"`
	ItemFactors []float64     `json:"item_factors"`
	Params      TrainerConfig `json:"params"`
	Stats       TrainStats    `json:"stats"`
	TrainedAt   time.Time     `json:"trained_at"`
}

// Snapshot captures the model for persistence.
func (m *Model) Snapshot() (*Snapshot, error) {
	if !m.Trained() {
		return nil, ErrNotTrained
	}
	return &Snapshot{
		Factors:     m.Factors.Dim(),
		UserIDs:     m.Users.IDs(),
		ItemIDs:     m.Items.IDs(),
		UserFactors: m.Factors.Users().Data(),
		ItemFactors: m.Factors.Items().Data(),
		Params:      m.Params,
		Stats:       m.Stats,
		TrainedAt:   m.TrainedAt,
	}, nil
}

// FromSnapshot restores a Model without retraining.
func FromSnapshot(s *Snapshot) (*Model, error) {
	if s == nil || len(s.UserIDs) == 0 || len(s.ItemIDs) == 0 {
		return nil, ErrEmptyMatrix
	}
	if err := strictlyAscending("user", s.UserIDs); err != nil {
		return nil, err
	}
	if err := strictlyAscending("item", s.ItemIDs); err != nil {
		return nil, err
	}

	users, err := NewFactorMatrix(len(s.UserIDs), s.Factors, s.UserFactors)
	if err != nil {
		return nil, fmt.Errorf("user factors: %w", err)
	}
	items, err := NewFactorMatrix(len(s.ItemIDs), s.Factors, s.ItemFactors)
	if err != nil {
		return nil, fmt.Errorf("item factors: %w", err)
	}

	model, err := NewModel(NewIndexMapper(s.UserIDs), NewIndexMapper(s.ItemIDs), users, items, s.Params)
	if err != nil {
		return nil, err
	}
	model.Stats = s.Stats
	if !s.TrainedAt.IsZero() {
		model.TrainedAt = s.TrainedAt
	}
	return model, nil
}

// strictlyAscending guards the dense order: a mapper rebuilt from unsorted
// ids would pair ids with the wrong factor rows.
func strictlyAscending(kind string, ids []int64) error {
	for n := 1; n < len(ids); n++ {
		if ids[n] <= ids[n-1] {
			return fmt.Errorf("%w: %s ids not strictly ascending at position %d", ErrDimensionMismatch, kind, n)
		}
	}
	return nil
}
