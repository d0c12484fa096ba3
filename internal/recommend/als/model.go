// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import (
	"fmt"
	"time"
)

// Model owns the mappers and factors produced by one training run, plus the
// hyperparameters that produced them. The zero Model is untrained. A trained
// Model must not be mutated; retraining builds a new one.
type Model struct {
	Users   *IndexMapper[int64]
	Items   *IndexMapper[int64]
	Factors *FactorStore
	Params  TrainerConfig
	Stats   TrainStats

	TrainedAt time.Time
}

// NewModel assembles a trained model, checking that every shape agrees.
func NewModel(users, items *IndexMapper[int64], userFactors, itemFactors *FactorMatrix, params TrainerConfig) (*Model, error) {
	if users == nil || items == nil {
		return nil, fmt.Errorf("%w: missing index mapper", ErrDimensionMismatch)
	}
	store, err := NewFactorStore(userFactors, itemFactors)
	if err != nil {
		return nil, err
	}
	if users.Len() != userFactors.Rows() {
		return nil, fmt.Errorf("%w: %d user ids for %d user rows", ErrDimensionMismatch, users.Len(), userFactors.Rows())
	}
	if items.Len() != itemFactors.Rows() {
		return nil, fmt.Errorf("%w: %d item ids for %d item rows", ErrDimensionMismatch, items.Len(), itemFactors.Rows())
	}
	if params.Factors != 0 && params.Factors != store.Dim() {
		return nil, fmt.Errorf("%w: params k=%d factors k=%d", ErrDimensionMismatch, params.Factors, store.Dim())
	}
	return &Model{
		Users:     users,
		Items:     items,
		Factors:   store,
		Params:    params,
		TrainedAt: time.Now().UTC(),
	}, nil
}

// Trained reports whether the model holds factors.
func (m *Model) Trained() bool {
	return m != nil && m.Factors != nil && m.Users != nil && m.Items != nil
}

// NumUsers returns the number of users, or 0 when untrained.
func (m *Model) NumUsers() int {
	if !m.Trained() {
		return 0
	}
	return m.Users.Len()
}

// NumItems returns the number of items, or 0 when untrained.
func (m *Model) NumItems() int {
	if !m.Trained() {
		return 0
	}
	return m.Items.Len()
}
