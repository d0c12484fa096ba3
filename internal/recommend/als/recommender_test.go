// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestRecommend_Scenario(t *testing.T) {
	t.Parallel()
	ds, model := trainScenario(t, scenarioConfig())
	a := mustDense(t, ds.Users, userA)
	row, err := ds.Matrix.UserRows(a)
	if err != nil {
		t.Fatalf("UserRows() error = %v", err)
	}

	got, err := NewRecommender(model).Recommend(a, row, 2, DefaultRecommendOptions())
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recommend() returned %d items, want 2", len(got))
	}
	allowed := map[int]bool{
		mustDense(t, ds.Items, itemY): true,
		mustDense(t, ds.Items, itemZ): true,
	}
	for _, s := range got {
		if !allowed[s.Index] {
			t.Errorf("Recommend() returned item %d already seen by A", s.Index)
		}
	}
}

func TestRecommend_ShapeMismatch(t *testing.T) {
	t.Parallel()
	ds, model := trainScenario(t, scenarioConfig())
	rec := NewRecommender(model)
	a := mustDense(t, ds.Users, userA)
	b := mustDense(t, ds.Users, userB)
	rowB, _ := ds.Matrix.UserRows(b)

	tests := []struct {
		name string
		rows Rows
	}{
		{name: "full matrix", rows: ds.Matrix.AllUserRows()},
		{name: "zero rows", rows: Rows{}},
		{name: "another user's row", rows: rowB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := rec.Recommend(a, tt.rows, 2, DefaultRecommendOptions()); !errors.Is(err, ErrShapeMismatch) {
				t.Errorf("Recommend() error = %v, want ErrShapeMismatch", err)
			}
		})
	}
}

func TestRecommend_Errors(t *testing.T) {
	t.Parallel()
	_, model := trainScenario(t, scenarioConfig())
	rec := NewRecommender(model)

	for _, u := range []int{-1, 3} {
		if _, err := rec.Recommend(u, NewUserRow(u, nil), 2, DefaultRecommendOptions()); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Recommend(%d) error = %v, want ErrIndexOutOfRange", u, err)
		}
	}
	if _, err := NewRecommender(nil).Recommend(0, NewUserRow(0, nil), 2, DefaultRecommendOptions()); !errors.Is(err, ErrNotTrained) {
		t.Errorf("untrained Recommend() error = %v, want ErrNotTrained", err)
	}
}

func TestRecommend_FilterProperty(t *testing.T) {
	t.Parallel()
	ds, err := BuildDataset(syntheticRecords(21, 40, 30, 7), DuplicateSum)
	if err != nil {
		t.Fatalf("BuildDataset() error = %v", err)
	}
	cfg := DefaultTrainerConfig()
	cfg.Factors = 5
	cfg.Iterations = 4
	trainer, err := NewTrainer(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTrainer() error = %v", err)
	}
	model, err := trainer.TrainDataset(context.Background(), ds)
	if err != nil {
		t.Fatalf("TrainDataset() error = %v", err)
	}
	rec := NewRecommender(model)

	for u := 0; u < ds.Matrix.NumUsers(); u++ {
		rows, err := ds.Matrix.UserRows(u)
		if err != nil {
			t.Fatalf("UserRows(%d) error = %v", u, err)
		}
		got, err := rec.Recommend(u, rows, 0, DefaultRecommendOptions())
		if err != nil {
			t.Fatalf("Recommend(%d) error = %v", u, err)
		}
		seen := rows.Row(0)
		if len(got) != ds.Matrix.NumItems()-seen.Len() {
			t.Errorf("user %d: %d candidates, want %d", u, len(got), ds.Matrix.NumItems()-seen.Len())
		}
		for n, s := range got {
			if seen.Weight(s.Index) != 0 {
				t.Errorf("user %d: recommended already-seen item %d", u, s.Index)
			}
			if n > 0 && !better(got[n-1], s) {
				t.Errorf("user %d: results out of order at %d", u, n)
			}
		}
	}
}

func TestRecommend_Options(t *testing.T) {
	t.Parallel()
	// User 0 scores items 0..4 as 5, 4, 3, 3, 1.
	model := handModel(t, 1,
		[]float64{1},
		[]float64{5, 4, 3, 3, 1},
	)
	rec := NewRecommender(model)
	row := NewUserRow(0, map[int]float64{0: 2})

	tests := []struct {
		name string
		opts RecommendOptions
		k    int
		want []int
	}{
		{name: "filter seen", opts: DefaultRecommendOptions(), k: 3, want: []int{1, 2, 3}},
		{name: "keep seen", opts: RecommendOptions{}, k: 3, want: []int{0, 1, 2}},
		{name: "exclude", opts: RecommendOptions{FilterAlreadyInteracted: true, ExcludeItems: []int{2, 99, -1}}, k: 3, want: []int{1, 3, 4}},
		{name: "exclude without filter", opts: RecommendOptions{ExcludeItems: []int{1}}, k: 2, want: []int{0, 2}},
		{name: "all", opts: DefaultRecommendOptions(), k: 0, want: []int{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := rec.Recommend(0, row, tt.k, tt.opts)
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Recommend() = %v, want indices %v", got, tt.want)
			}
			for n := range got {
				if got[n].Index != tt.want[n] {
					t.Errorf("Recommend()[%d] = %d, want %d", n, got[n].Index, tt.want[n])
				}
			}
		})
	}
}
