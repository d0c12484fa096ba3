// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import (
	"context"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
)

// Three users and four items: A likes w and x, B likes x and y, C likes y and z.
const (
	userA int64 = 1
	userB int64 = 2
	userC int64 = 3

	itemW int64 = 10
	itemX int64 = 20
	itemY int64 = 30
	itemZ int64 = 40
)

func scenarioRecords() []InteractionRecord {
	return []InteractionRecord{
		{UserID: userA, ItemID: itemW, Weight: 5},
		{UserID: userA, ItemID: itemX, Weight: 1},
		{UserID: userB, ItemID: itemX, Weight: 4},
		{UserID: userB, ItemID: itemY, Weight: 5},
		{UserID: userC, ItemID: itemY, Weight: 1},
		{UserID: userC, ItemID: itemZ, Weight: 5},
	}
}

func scenarioDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := BuildDataset(scenarioRecords(), DuplicateSum)
	if err != nil {
		t.Fatalf("BuildDataset() error = %v", err)
	}
	return ds
}

func scenarioConfig() TrainerConfig {
	cfg := DefaultTrainerConfig()
	cfg.Factors = 2
	cfg.Regularization = 0.01
	cfg.Iterations = 10
	cfg.Seed = 1
	return cfg
}

func trainScenario(t *testing.T, cfg TrainerConfig) (*Dataset, *Model) {
	t.Helper()
	ds := scenarioDataset(t)
	trainer, err := NewTrainer(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTrainer() error = %v", err)
	}
	model, err := trainer.TrainDataset(context.Background(), ds)
	if err != nil {
		t.Fatalf("TrainDataset() error = %v", err)
	}
	return ds, model
}

func mustDense(t *testing.T, m *IndexMapper[int64], raw int64) int {
	t.Helper()
	idx, err := m.ToDense(raw)
	if err != nil {
		t.Fatalf("ToDense(%d) error = %v", raw, err)
	}
	return idx
}

// syntheticRecords draws a sparse random interaction set with count-like weights.
func syntheticRecords(seed int64, users, items, perUser int) []InteractionRecord {
	rng := rand.New(rand.NewSource(seed))
	records := make([]InteractionRecord, 0, users*perUser)
	for u := 0; u < users; u++ {
		for n := 0; n < perUser; n++ {
			records = append(records, InteractionRecord{
				UserID: int64(u),
				ItemID: int64(rng.Intn(items)),
				Weight: float64(1 + rng.Intn(5)),
			})
		}
	}
	return records
}
