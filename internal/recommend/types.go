// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/alsrec/internal/recommend/als"
)

var (
	// ErrTrainingInProgress is returned when Train is called during a run.
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrNoDataProvider is returned when training without a data provider.
	ErrNoDataProvider = errors.New("data provider not set")

	// ErrInsufficientData is returned when there are too few interactions to train.
	ErrInsufficientData = errors.New("insufficient interactions")

	// ErrNoModelStore is returned by LoadLatest when no store is configured.
	ErrNoModelStore = errors.New("model store not configured")
)

// DataProvider supplies interaction records for training. It is typically
// implemented by the database layer.
type DataProvider interface {
	GetInteractions(ctx context.Context) ([]als.InteractionRecord, error)
}

// DataProviderFunc adapts a function to DataProvider.
type DataProviderFunc func(ctx context.Context) ([]als.InteractionRecord, error)

// GetInteractions calls f.
func (f DataProviderFunc) GetInteractions(ctx context.Context) ([]als.InteractionRecord, error) {
	return f(ctx)
}

// ScoredItem is a ranked item identified by its raw id.
type ScoredItem struct {
	ItemID int64   `json:"item_id"`
	Score  float64 `json:"score"`
}

// RecommendOptions controls candidate filtering for raw-id queries.
type RecommendOptions struct {
	// FilterSeen drops items the user already interacted with.
	FilterSeen bool `json:"filter_seen"`

	// Exclude lists raw item ids to drop. Unknown ids are ignored.
	Exclude []int64 `json:"exclude,omitempty"`
}

// Published is an immutable published model with the matrix it was trained
// on (or, for restored models, rebuilt from current data).
type Published struct {
	Model   *als.Model
	Matrix  *als.InteractionMatrix
	Version int64
	ModelID string

	// Interactions is the number of raw records behind Matrix.
	Interactions int

	// Restored is set when the model was loaded from the store.
	Restored bool

	similarity  *als.SimilarityIndex
	recommender *als.Recommender
}

func newPublished(model *als.Model, matrix *als.InteractionMatrix, version int64, id string, interactions int) *Published {
	return &Published{
		Model:        model,
		Matrix:       matrix,
		Version:      version,
		ModelID:      id,
		Interactions: interactions,
		similarity:   als.NewSimilarityIndex(model),
		recommender:  als.NewRecommender(model),
	}
}

// TrainingStatus represents the current training and model state.
type TrainingStatus struct {
	// Trained reports whether a model is published.
	Trained bool `json:"trained"`

	// IsTraining indicates whether training is currently in progress.
	IsTraining bool `json:"is_training"`

	// ModelVersion is the published model version.
	ModelVersion int64 `json:"model_version"`

	// ModelID uniquely identifies the published model.
	ModelID string `json:"model_id,omitempty"`

	// Restored is set when the published model came from the store.
	Restored bool `json:"restored"`

	// LastTrainedAt is when the published model finished training.
	LastTrainedAt time.Time `json:"last_trained_at,omitempty"`

	// LastTrainingDurationMS is how long the last training run took.
	LastTrainingDurationMS int64 `json:"last_training_duration_ms"`

	// LastError contains the last training error, if any.
	LastError string `json:"last_error,omitempty"`

	UserCount        int `json:"user_count"`
	ItemCount        int `json:"item_count"`
	InteractionCount int `json:"interaction_count"`
	NNZ              int `json:"nnz"`
	Factors          int `json:"factors"`
	Rounds           int `json:"rounds"`

	// FinalLoss is the objective after the last round when loss tracking is on.
	FinalLoss *float64 `json:"final_loss,omitempty"`

	// SolverFallbacks counts rows solved by CG after a failed factorization.
	SolverFallbacks int64 `json:"solver_fallbacks"`
}
