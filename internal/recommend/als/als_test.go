// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTrainerConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*TrainerConfig)
		wantErr bool
	}{
		{name: "defaults", modify: func(*TrainerConfig) {}},
		{name: "zero factors", modify: func(c *TrainerConfig) { c.Factors = 0 }, wantErr: true},
		{name: "zero regularization", modify: func(c *TrainerConfig) { c.Regularization = 0 }, wantErr: true},
		{name: "negative regularization", modify: func(c *TrainerConfig) { c.Regularization = -0.1 }, wantErr: true},
		{name: "NaN regularization", modify: func(c *TrainerConfig) { c.Regularization = math.NaN() }, wantErr: true},
		{name: "negative alpha", modify: func(c *TrainerConfig) { c.Alpha = -1 }, wantErr: true},
		{name: "zero alpha", modify: func(c *TrainerConfig) { c.Alpha = 0 }},
		{name: "negative iterations", modify: func(c *TrainerConfig) { c.Iterations = -1 }, wantErr: true},
		{name: "zero iterations", modify: func(c *TrainerConfig) { c.Iterations = 0 }},
		{name: "negative workers", modify: func(c *TrainerConfig) { c.Workers = -2 }, wantErr: true},
		{name: "zero init scale", modify: func(c *TrainerConfig) { c.InitScale = 0 }, wantErr: true},
		{name: "unknown confidence", modify: func(c *TrainerConfig) { c.Confidence = "raw" }, wantErr: true},
		{name: "log confidence", modify: func(c *TrainerConfig) { c.Confidence = ConfidenceLog }},
		{name: "log without epsilon", modify: func(c *TrainerConfig) { c.Confidence = ConfidenceLog; c.Epsilon = 0 }, wantErr: true},
		{name: "unknown solver", modify: func(c *TrainerConfig) { c.Solver = "lu" }, wantErr: true},
		{name: "cg without steps", modify: func(c *TrainerConfig) { c.Solver = SolverConjugateGradient; c.CGSteps = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultTrainerConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfidence(t *testing.T) {
	t.Parallel()
	cfg := DefaultTrainerConfig()
	cfg.Alpha = 2
	if got := cfg.confidence(3); got != 7 {
		t.Errorf("linear confidence(3) = %v, want 7", got)
	}
	cfg.Confidence = ConfidenceLog
	cfg.Epsilon = 1
	if got, want := cfg.confidence(math.E-1), 3.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("log confidence(e-1) = %v, want %v", got, want)
	}
}

func TestNewTrainer_InvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultTrainerConfig()
	cfg.Regularization = 0
	if _, err := NewTrainer(cfg, zerolog.Nop()); err == nil {
		t.Error("NewTrainer() with lambda = 0 should fail")
	}
}

func TestTrain_EmptyMatrix(t *testing.T) {
	t.Parallel()
	trainer, err := NewTrainer(DefaultTrainerConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTrainer() error = %v", err)
	}

	if _, err := trainer.Train(context.Background(), nil); !errors.Is(err, ErrEmptyMatrix) {
		t.Errorf("Train(nil) error = %v, want ErrEmptyMatrix", err)
	}

	ds, err := BuildDataset(nil, DuplicateSum)
	if err != nil {
		t.Fatalf("BuildDataset() error = %v", err)
	}
	if _, err := trainer.TrainDataset(context.Background(), ds); !errors.Is(err, ErrEmptyMatrix) {
		t.Errorf("TrainDataset(empty) error = %v, want ErrEmptyMatrix", err)
	}
}

func TestTrain_LossNonIncreasing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*TrainerConfig)
	}{
		{name: "linear confidence", modify: func(*TrainerConfig) {}},
		{name: "log confidence", modify: func(c *TrainerConfig) { c.Confidence = ConfidenceLog }},
		{name: "small alpha", modify: func(c *TrainerConfig) { c.Alpha = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ds, err := BuildDataset(syntheticRecords(3, 60, 40, 8), DuplicateSum)
			if err != nil {
				t.Fatalf("BuildDataset() error = %v", err)
			}
			cfg := DefaultTrainerConfig()
			cfg.Factors = 8
			cfg.Iterations = 12
			cfg.TrackLoss = true
			tt.modify(&cfg)

			trainer, err := NewTrainer(cfg, zerolog.Nop())
			if err != nil {
				t.Fatalf("NewTrainer() error = %v", err)
			}
			f, err := trainer.Train(context.Background(), ds.Matrix)
			if err != nil {
				t.Fatalf("Train() error = %v", err)
			}
			if len(f.Stats.Loss) != cfg.Iterations {
				t.Fatalf("len(Loss) = %d, want %d", len(f.Stats.Loss), cfg.Iterations)
			}
			for r := 1; r < len(f.Stats.Loss); r++ {
				prev, cur := f.Stats.Loss[r-1], f.Stats.Loss[r]
				if cur > prev*(1+1e-9) {
					t.Errorf("loss increased at round %d: %v -> %v", r+1, prev, cur)
				}
			}
			if f.Stats.FinalLoss() != f.Stats.Loss[len(f.Stats.Loss)-1] {
				t.Error("FinalLoss() does not match last tracked loss")
			}
		})
	}
}

func TestObjective_MatchesDenseSum(t *testing.T) {
	t.Parallel()
	ds, model := trainScenario(t, scenarioConfig())
	cfg := model.Params
	users, items := model.Factors.Users(), model.Factors.Items()

	var want float64
	for u := 0; u < ds.Matrix.NumUsers(); u++ {
		for i := 0; i < ds.Matrix.NumItems(); i++ {
			w := ds.Matrix.Weight(u, i)
			c, p := 1.0, 0.0
			if w > 0 {
				c, p = cfg.confidence(w), 1
			}
			e := p - dot(users.row(u), items.row(i))
			want += c * e * e
		}
	}
	for _, f := range []*FactorMatrix{users, items} {
		for _, v := range f.Data() {
			want += cfg.Regularization * v * v
		}
	}

	got := Objective(ds.Matrix, users, items, &cfg)
	if math.Abs(got-want) > 1e-9*math.Max(1, want) {
		t.Errorf("Objective() = %v, want %v", got, want)
	}
}

func TestTrain_Deterministic(t *testing.T) {
	t.Parallel()
	ds, err := BuildDataset(syntheticRecords(11, 50, 30, 6), DuplicateSum)
	if err != nil {
		t.Fatalf("BuildDataset() error = %v", err)
	}

	run := func(seed int64, workers int) *Factors {
		cfg := DefaultTrainerConfig()
		cfg.Factors = 6
		cfg.Iterations = 5
		cfg.Seed = seed
		cfg.Workers = workers
		trainer, err := NewTrainer(cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("NewTrainer() error = %v", err)
		}
		f, err := trainer.Train(context.Background(), ds.Matrix)
		if err != nil {
			t.Fatalf("Train() error = %v", err)
		}
		return f
	}

	a, b := run(5, 1), run(5, 4)
	if !slices.Equal(a.Users.Data(), b.Users.Data()) {
		t.Error("user factors differ between runs with the same seed")
	}
	if !slices.Equal(a.Items.Data(), b.Items.Data()) {
		t.Error("item factors differ between runs with the same seed")
	}

	c := run(6, 4)
	if slices.Equal(a.Items.Data(), c.Items.Data()) {
		t.Error("item factors identical for different seeds")
	}
}

func TestTrain_CancelledBeforeStart(t *testing.T) {
	t.Parallel()
	ds := scenarioDataset(t)
	trainer, err := NewTrainer(scenarioConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTrainer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f, err := trainer.Train(ctx, ds.Matrix)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Train() error = %v, want context.Canceled", err)
	}
	if f != nil {
		t.Error("Train() returned factors after cancellation")
	}
}

func TestTrain_CancelledAtRoundBoundary(t *testing.T) {
	t.Parallel()
	ds := scenarioDataset(t)
	trainer, err := NewTrainer(scenarioConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTrainer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var rounds []int
	trainer.OnRound(func(round int, _ float64, _ time.Duration) {
		rounds = append(rounds, round)
		if round == 2 {
			cancel()
		}
	})

	if _, err := trainer.Train(ctx, ds.Matrix); !errors.Is(err, context.Canceled) {
		t.Fatalf("Train() error = %v, want context.Canceled", err)
	}
	if !slices.Equal(rounds, []int{1, 2}) {
		t.Errorf("completed rounds = %v, want [1 2]", rounds)
	}
}

func TestTrain_ObserverSeesEveryRound(t *testing.T) {
	t.Parallel()
	ds := scenarioDataset(t)
	cfg := scenarioConfig()
	trainer, err := NewTrainer(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTrainer() error = %v", err)
	}
	calls := 0
	trainer.OnRound(func(_ int, loss float64, _ time.Duration) {
		calls++
		if !math.IsNaN(loss) {
			t.Errorf("loss = %v without TrackLoss, want NaN", loss)
		}
	})
	f, err := trainer.Train(context.Background(), ds.Matrix)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if calls != cfg.Iterations || f.Stats.Rounds != cfg.Iterations {
		t.Errorf("observer calls = %d, Rounds = %d, want %d", calls, f.Stats.Rounds, cfg.Iterations)
	}
}

func TestTrain_EntityWithoutInteractionsKeepsInit(t *testing.T) {
	t.Parallel()
	records := append(scenarioRecords(),
		InteractionRecord{UserID: 99, ItemID: itemW, Weight: 3},
		InteractionRecord{UserID: 99, ItemID: itemW, Weight: 0},
		InteractionRecord{UserID: userA, ItemID: 77, Weight: 0},
	)
	ds, err := BuildDataset(records, DuplicateOverwrite)
	if err != nil {
		t.Fatalf("BuildDataset() error = %v", err)
	}

	train := func(iterations int) *Factors {
		cfg := scenarioConfig()
		cfg.Iterations = iterations
		trainer, err := NewTrainer(cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("NewTrainer() error = %v", err)
		}
		f, err := trainer.Train(context.Background(), ds.Matrix)
		if err != nil {
			t.Fatalf("Train() error = %v", err)
		}
		return f
	}
	initial, trained := train(0), train(5)

	lonelyUser := mustDense(t, ds.Users, 99)
	lonelyItem := mustDense(t, ds.Items, 77)
	if !slices.Equal(initial.Users.row(lonelyUser), trained.Users.row(lonelyUser)) {
		t.Error("user without interactions changed during training")
	}
	if !slices.Equal(initial.Items.row(lonelyItem), trained.Items.row(lonelyItem)) {
		t.Error("item without interactions changed during training")
	}
	if !allFinite(trained.Users.Data()) || !allFinite(trained.Items.Data()) {
		t.Error("factors contain NaN or Inf")
	}
}

func TestTrain_NumericalStability(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*TrainerConfig)
		records []InteractionRecord
	}{
		{
			name:    "huge weights",
			records: []InteractionRecord{{UserID: 1, ItemID: 1, Weight: 1e9}, {UserID: 2, ItemID: 1, Weight: 1e9}, {UserID: 2, ItemID: 2, Weight: 1}},
			modify:  func(*TrainerConfig) {},
		},
		{
			name:    "zero alpha",
			records: scenarioRecords(),
			modify:  func(c *TrainerConfig) { c.Alpha = 0 },
		},
		{
			name:    "tiny lambda",
			records: scenarioRecords(),
			modify:  func(c *TrainerConfig) { c.Regularization = 1e-12 },
		},
		{
			name:    "more factors than entities",
			records: scenarioRecords(),
			modify:  func(c *TrainerConfig) { c.Factors = 16 },
		},
		{
			name:    "conjugate gradient",
			records: syntheticRecords(2, 20, 15, 4),
			modify:  func(c *TrainerConfig) { c.Solver = SolverConjugateGradient },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ds, err := BuildDataset(tt.records, DuplicateSum)
			if err != nil {
				t.Fatalf("BuildDataset() error = %v", err)
			}
			cfg := scenarioConfig()
			tt.modify(&cfg)
			trainer, err := NewTrainer(cfg, zerolog.Nop())
			if err != nil {
				t.Fatalf("NewTrainer() error = %v", err)
			}
			f, err := trainer.Train(context.Background(), ds.Matrix)
			if err != nil {
				t.Fatalf("Train() error = %v", err)
			}
			if !allFinite(f.Users.Data()) || !allFinite(f.Items.Data()) {
				t.Error("factors contain NaN or Inf")
			}
		})
	}
}

func TestTrain_OverflowingConfidence(t *testing.T) {
	t.Parallel()

	records := append(scenarioRecords(), InteractionRecord{UserID: userA, ItemID: itemZ, Weight: math.MaxFloat64})
	ds, err := BuildDataset(records, DuplicateSum)
	if err != nil {
		t.Fatalf("BuildDataset() error = %v", err)
	}

	t.Run("linear rejects", func(t *testing.T) {
		t.Parallel()
		cfg := scenarioConfig()
		cfg.TrackLoss = true
		trainer, err := NewTrainer(cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("NewTrainer() error = %v", err)
		}
		if _, err := trainer.TrainDataset(context.Background(), ds); !errors.Is(err, ErrInvalidWeight) {
			t.Errorf("TrainDataset() error = %v, want ErrInvalidWeight", err)
		}
	})

	t.Run("log accepts", func(t *testing.T) {
		t.Parallel()
		cfg := scenarioConfig()
		cfg.Confidence = ConfidenceLog
		cfg.TrackLoss = true
		trainer, err := NewTrainer(cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("NewTrainer() error = %v", err)
		}
		model, err := trainer.TrainDataset(context.Background(), ds)
		if err != nil {
			t.Fatalf("TrainDataset() error = %v", err)
		}
		if !allFinite(model.Factors.Users().Data()) || !allFinite(model.Factors.Items().Data()) {
			t.Error("factors contain NaN or Inf")
		}
		if !allFinite(model.Stats.Loss) {
			t.Errorf("Stats.Loss = %v, want only finite values", model.Stats.Loss)
		}
	})
}

func TestTrain_LossRecordsOnlyFiniteValues(t *testing.T) {
	t.Parallel()

	records := append(scenarioRecords(), InteractionRecord{UserID: userA, ItemID: itemZ, Weight: 1e300})
	ds, err := BuildDataset(records, DuplicateSum)
	if err != nil {
		t.Fatalf("BuildDataset() error = %v", err)
	}
	cfg := scenarioConfig()
	cfg.TrackLoss = true
	trainer, err := NewTrainer(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTrainer() error = %v", err)
	}
	f, err := trainer.Train(context.Background(), ds.Matrix)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if !allFinite(f.Stats.Loss) {
		t.Errorf("Stats.Loss = %v, want only finite values", f.Stats.Loss)
	}
	if got := f.Stats.FinalLoss(); math.IsInf(got, 0) {
		t.Errorf("FinalLoss() = %v, want finite or NaN", got)
	}
}

func TestTrain_ConjugateGradientApproachesCholesky(t *testing.T) {
	t.Parallel()
	ds, err := BuildDataset(syntheticRecords(9, 40, 25, 6), DuplicateSum)
	if err != nil {
		t.Fatalf("BuildDataset() error = %v", err)
	}

	loss := func(solver SolverKind) float64 {
		cfg := DefaultTrainerConfig()
		cfg.Factors = 4
		cfg.Iterations = 8
		cfg.Solver = solver
		cfg.CGSteps = 4
		cfg.TrackLoss = true
		trainer, err := NewTrainer(cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("NewTrainer() error = %v", err)
		}
		f, err := trainer.Train(context.Background(), ds.Matrix)
		if err != nil {
			t.Fatalf("Train() error = %v", err)
		}
		return f.Stats.FinalLoss()
	}

	exact, approx := loss(SolverCholesky), loss(SolverConjugateGradient)
	if approx > exact*1.05 {
		t.Errorf("cg loss %v more than 5%% above cholesky loss %v", approx, exact)
	}
}

func TestTrainDataset_Model(t *testing.T) {
	t.Parallel()
	ds, model := trainScenario(t, scenarioConfig())

	if !model.Trained() {
		t.Fatal("Trained() = false after training")
	}
	if model.NumUsers() != 3 || model.NumItems() != 4 {
		t.Errorf("model shape = %d users %d items, want 3 and 4", model.NumUsers(), model.NumItems())
	}
	if model.Factors.Dim() != 2 {
		t.Errorf("Dim() = %d, want 2", model.Factors.Dim())
	}
	if model.Users != ds.Users || model.Items != ds.Items {
		t.Error("model does not carry the dataset mappers")
	}
	if model.Stats.NNZ != 6 {
		t.Errorf("Stats.NNZ = %d, want 6", model.Stats.NNZ)
	}
	if model.TrainedAt.IsZero() {
		t.Error("TrainedAt not set")
	}
}
