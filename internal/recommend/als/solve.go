// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import (
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// cgTolerance stops conjugate gradient once the squared residual is negligible.
const cgTolerance = 1e-20

// rowSolver holds per-worker scratch space for k x k normal-equation solves.
// A rowSolver is not safe for concurrent use; each worker owns one.
type rowSolver struct {
	cfg  *TrainerConfig
	gram *mat.SymDense

	a    *mat.SymDense
	b    *mat.VecDense
	x    *mat.VecDense
	chol mat.Cholesky

	// conjugate gradient scratch
	r, p, ap *mat.VecDense
}

func newRowSolver(cfg *TrainerConfig, gram *mat.SymDense) *rowSolver {
	k := gram.SymmetricDim()
	return &rowSolver{
		cfg:  cfg,
		gram: gram,
		a:    mat.NewSymDense(k, nil),
		b:    mat.NewVecDense(k, nil),
		x:    mat.NewVecDense(k, nil),
		r:    mat.NewVecDense(k, nil),
		p:    mat.NewVecDense(k, nil),
		ap:   mat.NewVecDense(k, nil),
	}
}

// solve updates dst in place with the least-squares solution for one row.
// fixed holds the opposite side's factors, obs the row's observed entries.
// It reports whether the exact factorization had to fall back to CG.
func (s *rowSolver) solve(dst []float64, fixed *FactorMatrix, obs SparseRow) bool {
	k := len(dst)
	s.a.CopySym(s.gram)
	for d := 0; d < k; d++ {
		s.a.SetSym(d, d, s.a.At(d, d)+s.cfg.Regularization)
	}
	s.b.Zero()

	for n, j := range obs.Indices {
		c := s.cfg.confidence(obs.Values[n])
		f := mat.NewVecDense(k, fixed.row(j))
		if c != 1 {
			s.a.SymRankOne(s.a, c-1, f)
		}
		// p(u,i) = 1 for every stored entry.
		s.b.AddScaledVec(s.b, c, f)
	}

	if s.cfg.Solver == SolverConjugateGradient {
		s.solveCG(dst, s.cfg.CGSteps)
		return false
	}
	if s.solveCholesky(dst) {
		return false
	}
	// In exact arithmetic CG converges in k steps.
	s.solveCG(dst, 2*k)
	return true
}

func (s *rowSolver) solveCholesky(dst []float64) bool {
	if ok := s.chol.Factorize(s.a); !ok {
		return false
	}
	if err := s.chol.SolveVecTo(s.x, s.b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return false
		}
	}
	out := s.x.RawVector().Data
	if !allFinite(out) {
		return false
	}
	copy(dst, out)
	return true
}

// solveCG runs warm-started conjugate gradient from the current dst.
func (s *rowSolver) solveCG(dst []float64, steps int) {
	x := mat.NewVecDense(len(dst), slices.Clone(dst))

	s.r.MulVec(s.a, x)
	s.r.SubVec(s.b, s.r)
	s.p.CopyVec(s.r)
	rsOld := mat.Dot(s.r, s.r)

	for it := 0; it < steps && rsOld > cgTolerance; it++ {
		s.ap.MulVec(s.a, s.p)
		denom := mat.Dot(s.p, s.ap)
		if denom <= 0 {
			break
		}
		step := rsOld / denom
		x.AddScaledVec(x, step, s.p)
		s.r.AddScaledVec(s.r, -step, s.ap)
		rsNew := mat.Dot(s.r, s.r)
		s.p.AddScaledVec(s.r, rsNew/rsOld, s.p)
		rsOld = rsNew
	}

	out := x.RawVector().Data
	if allFinite(out) {
		copy(dst, out)
	}
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// dot is the score between two latent rows.
func dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}
