// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import "errors"

var (
	// ErrUnknownIdentifier is returned when a raw id was not present when a mapper was built.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrIndexOutOfRange is returned for a dense index outside [0, N).
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrShapeMismatch is returned when an interaction row block does not hold
	// exactly one row for the queried user.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrEmptyMatrix is returned when training input has no users or no items.
	ErrEmptyMatrix = errors.New("empty interaction matrix")

	// ErrDimensionMismatch is returned when factor matrices or id lists disagree on shape.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidWeight is returned for negative, NaN or infinite interaction weights.
	ErrInvalidWeight = errors.New("invalid interaction weight")

	// ErrNotTrained is returned when querying a model that has no factors yet.
	ErrNotTrained = errors.New("model not trained")
)
