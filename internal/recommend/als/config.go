// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import (
	"fmt"
	"math"
	"runtime"
)

// ConfidenceMode selects how interaction weights become confidences.
type ConfidenceMode string

const (
	// ConfidenceLinear maps w to 1 + alpha*w.
	ConfidenceLinear ConfidenceMode = "linear"

	// ConfidenceLog maps w to 1 + alpha*log(1 + w/epsilon).
	ConfidenceLog ConfidenceMode = "log"
)

// SolverKind selects the per-row linear solver.
type SolverKind string

const (
	// SolverCholesky factors each k x k system exactly.
	SolverCholesky SolverKind = "cholesky"

	// SolverConjugateGradient runs a fixed number of warm-started CG steps.
	SolverConjugateGradient SolverKind = "cg"
)

// TrainerConfig holds ALS hyperparameters.
type TrainerConfig struct {
	// Factors is the latent dimension k.
	Factors int `json:"factors"`

	// Regularization is lambda. Must be strictly positive.
	Regularization float64 `json:"regularization"`

	// Alpha scales weights in the confidence transform.
	Alpha float64 `json:"alpha"`

	// Epsilon is the log transform scale. Ignored for ConfidenceLinear.
	Epsilon float64 `json:"epsilon"`

	// Confidence selects the confidence transform.
	Confidence ConfidenceMode `json:"confidence"`

	// Iterations is the number of rounds (item pass + user pass).
	Iterations int `json:"iterations"`

	// Seed drives factor initialization.
	Seed int64 `json:"seed"`

	// InitScale is the standard deviation of initial factors before 1/sqrt(k) scaling.
	InitScale float64 `json:"init_scale"`

	// Workers bounds parallel row solves. 0 uses GOMAXPROCS.
	Workers int `json:"workers"`

	// Solver selects the row solver.
	Solver SolverKind `json:"solver"`

	// CGSteps is the number of conjugate gradient steps per row.
	CGSteps int `json:"cg_steps"`

	// TrackLoss evaluates the objective after every round.
	TrackLoss bool `json:"track_loss"`
}

// DefaultTrainerConfig returns the defaults used by the service.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Factors:        64,
		Regularization: 0.01,
		Alpha:          40.0,
		Epsilon:        1.0,
		Confidence:     ConfidenceLinear,
		Iterations:     15,
		Seed:           42,
		InitScale:      0.01,
		Workers:        0,
		Solver:         SolverCholesky,
		CGSteps:        3,
		TrackLoss:      false,
	}
}

// Validate checks the configuration.
func (c *TrainerConfig) Validate() error {
	if c.Factors <= 0 {
		return fmt.Errorf("factors must be positive, got %d", c.Factors)
	}
	if !(c.Regularization > 0) || math.IsInf(c.Regularization, 0) {
		return fmt.Errorf("regularization must be positive, got %v", c.Regularization)
	}
	if c.Alpha < 0 || math.IsNaN(c.Alpha) || math.IsInf(c.Alpha, 0) {
		return fmt.Errorf("alpha must be non-negative, got %v", c.Alpha)
	}
	if c.Iterations < 0 {
		return fmt.Errorf("iterations must be non-negative, got %d", c.Iterations)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if !(c.InitScale > 0) {
		return fmt.Errorf("init_scale must be positive, got %v", c.InitScale)
	}
	switch c.Confidence {
	case ConfidenceLinear:
	case ConfidenceLog:
		if !(c.Epsilon > 0) {
			return fmt.Errorf("epsilon must be positive for log confidence, got %v", c.Epsilon)
		}
	default:
		return fmt.Errorf("unknown confidence mode %q", c.Confidence)
	}
	switch c.Solver {
	case SolverCholesky:
	case SolverConjugateGradient:
		if c.CGSteps <= 0 {
			return fmt.Errorf("cg_steps must be positive, got %d", c.CGSteps)
		}
	default:
		return fmt.Errorf("unknown solver %q", c.Solver)
	}
	return nil
}

// workers resolves the effective worker count.
func (c *TrainerConfig) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// confidence maps a stored weight to c(u,i). Weights are positive here since
// zero entries are never stored.
func (c *TrainerConfig) confidence(w float64) float64 {
	if c.Confidence == ConfidenceLog {
		return 1 + c.Alpha*math.Log1p(w/c.Epsilon)
	}
	return 1 + c.Alpha*w
}
