// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// RoundObserver is called after each completed round. loss is NaN unless
// TrackLoss is enabled.
type RoundObserver func(round int, loss float64, elapsed time.Duration)

// TrainStats summarizes one training run.
type TrainStats struct {
	// Rounds is the number of completed rounds.
	Rounds int `json:"rounds"`

	// Loss holds the objective after each round when loss tracking is enabled.
	// Non-finite values are not recorded.
	Loss []float64 `json:"loss,omitempty"`

	// Duration is the wall time spent in Train.
	Duration time.Duration `json:"duration"`

	// Users, Items and NNZ describe the training matrix.
	Users int `json:"users"`
	Items int `json:"items"`
	NNZ   int `json:"nnz"`

	// Fallbacks counts rows whose Cholesky solve failed and were solved by CG.
	Fallbacks int64 `json:"fallbacks"`
}

// FinalLoss returns the last tracked loss, or NaN.
func (s TrainStats) FinalLoss() float64 {
	if len(s.Loss) == 0 {
		return math.NaN()
	}
	return s.Loss[len(s.Loss)-1]
}

// Trainer fits user and item factors with alternating least squares.
// A Trainer is stateless between runs and safe for concurrent use.
type Trainer struct {
	cfg      TrainerConfig
	logger   zerolog.Logger
	observer RoundObserver
}

// NewTrainer validates cfg and returns a trainer.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewTrainer(cfg TrainerConfig, logger zerolog.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trainer config: %w", err)
	}
	return &Trainer{
		cfg:    cfg,
		logger: logger.With().Str("component", "als").Logger(),
	}, nil
}

// OnRound registers fn to be called after every round.
func (t *Trainer) OnRound(fn RoundObserver) {
	t.observer = fn
}

// Config returns the trainer configuration.
func (t *Trainer) Config() TrainerConfig {
	return t.cfg
}

// Factors is the output of one training run.
type Factors struct {
	Users *FactorMatrix
	Items *FactorMatrix
	Stats TrainStats
}

// Train runs the configured number of rounds over m. The matrix is only read.
// ctx is checked between rounds; a cancelled run returns no factors.
func (t *Trainer) Train(ctx context.Context, m *InteractionMatrix) (*Factors, error) {
	if m == nil || m.NumUsers() == 0 || m.NumItems() == 0 {
		return nil, ErrEmptyMatrix
	}
	if err := t.checkConfidence(m); err != nil {
		return nil, err
	}
	start := time.Now()
	k := t.cfg.Factors

	rng := rand.New(rand.NewSource(t.cfg.Seed)) //nolint:gosec // deterministic initialization, not security
	users, err := t.initFactors(rng, m.NumUsers(), k)
	if err != nil {
		return nil, err
	}
	items, err := t.initFactors(rng, m.NumItems(), k)
	if err != nil {
		return nil, err
	}

	stats := TrainStats{Users: m.NumUsers(), Items: m.NumItems(), NNZ: m.NNZ()}
	for round := 1; round <= t.cfg.Iterations; round++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("training cancelled before round %d: %w", round, ctx.Err())
		default:
		}

		roundStart := time.Now()
		fb, err := t.solvePass(items, users, &m.byItem)
		if err != nil {
			return nil, fmt.Errorf("item pass round %d: %w", round, err)
		}
		stats.Fallbacks += fb

		fb, err = t.solvePass(users, items, &m.byUser)
		if err != nil {
			return nil, fmt.Errorf("user pass round %d: %w", round, err)
		}
		stats.Fallbacks += fb
		stats.Rounds = round

		loss := math.NaN()
		if t.cfg.TrackLoss {
			loss = Objective(m, users, items, &t.cfg)
			if isFinite(loss) {
				stats.Loss = append(stats.Loss, loss)
			} else {
				t.logger.Warn().Int("round", round).Msg("als objective is not finite, not recorded")
			}
		}
		elapsed := time.Since(roundStart)
		t.logger.Debug().
			Int("round", round).
			Float64("loss", loss).
			Dur("elapsed", elapsed).
			Msg("als round complete")
		if t.observer != nil {
			t.observer(round, loss, elapsed)
		}
	}

	stats.Duration = time.Since(start)
	return &Factors{Users: users, Items: items, Stats: stats}, nil
}

// checkConfidence rejects matrices whose weights overflow the confidence
// transform.
func (t *Trainer) checkConfidence(m *InteractionMatrix) error {
	for _, w := range m.byUser.data {
		if c := t.cfg.confidence(w); !isFinite(c) {
			return fmt.Errorf("%w: weight %v gives confidence %v", ErrInvalidWeight, w, c)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// TrainDataset trains on ds and assembles a Model carrying its mappers.
func (t *Trainer) TrainDataset(ctx context.Context, ds *Dataset) (*Model, error) {
	if ds == nil {
		return nil, ErrEmptyMatrix
	}
	f, err := t.Train(ctx, ds.Matrix)
	if err != nil {
		return nil, err
	}
	model, err := NewModel(ds.Users, ds.Items, f.Users, f.Items, t.cfg)
	if err != nil {
		return nil, err
	}
	model.Stats = f.Stats
	return model, nil
}

func (t *Trainer) initFactors(rng *rand.Rand, rows, k int) (*FactorMatrix, error) {
	scale := t.cfg.InitScale / math.Sqrt(float64(k))
	data := make([]float64, rows*k)
	for n := range data {
		data[n] = rng.NormFloat64() * scale
	}
	return NewFactorMatrix(rows, k, data)
}

// solvePass recomputes every row of target that has observations in rows,
// holding fixed constant. Rows are split into contiguous chunks, each owned by
// one worker, so no row is written twice. Wait is the pass barrier.
func (t *Trainer) solvePass(target, fixed *FactorMatrix, rows *csr) (int64, error) {
	gram := fixed.gram()
	n := target.Rows()
	workers := min(t.cfg.workers(), n)
	chunk := (n + workers - 1) / workers

	var fallbacks atomic.Int64
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			solver := newRowSolver(&t.cfg, gram)
			for r := lo; r < hi; r++ {
				obs := rows.row(r)
				if obs.Len() == 0 {
					continue
				}
				if solver.solve(target.row(r), fixed, obs) {
					fallbacks.Add(1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return fallbacks.Load(), nil
}

// Objective evaluates
//
//	sum_{u,i} c(u,i) (p(u,i) - x_u.y_i)^2 + lambda (||X||^2 + ||Y||^2)
//
// without visiting unobserved pairs: the all-zero-preference term is
// x_u' (Y'Y) x_u, corrected for each observed entry.
func Objective(m *InteractionMatrix, users, items *FactorMatrix, cfg *TrainerConfig) float64 {
	gram := items.gram()
	k := items.Dim()
	var total float64
	for u := 0; u < m.NumUsers(); u++ {
		x := users.row(u)
		xv := mat.NewVecDense(k, x)
		total += mat.Inner(xv, gram, xv)

		obs := m.byUser.row(u)
		for n, i := range obs.Indices {
			c := cfg.confidence(obs.Values[n])
			s := dot(x, items.row(i))
			total += c*(1-s)*(1-s) - s*s
		}
	}

	reg := mat.Norm(users.m, 2)
	reg2 := mat.Norm(items.m, 2)
	total += cfg.Regularization * (reg*reg + reg2*reg2)
	return total
}
