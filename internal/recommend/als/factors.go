// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import (
	"fmt"
	"slices"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// FactorMatrix is a dense (entities x k) matrix with one latent row per dense index.
type FactorMatrix struct {
	m *mat.Dense
}

// NewFactorMatrix wraps row-major data of shape rows x k. A nil data slice
// allocates zeros. rows and k must be positive.
func NewFactorMatrix(rows, k int, data []float64) (*FactorMatrix, error) {
	if rows <= 0 || k <= 0 {
		return nil, fmt.Errorf("%w: factor matrix %dx%d", ErrDimensionMismatch, rows, k)
	}
	if data != nil && len(data) != rows*k {
		return nil, fmt.Errorf("%w: %d values for %dx%d factors", ErrDimensionMismatch, len(data), rows, k)
	}
	return &FactorMatrix{m: mat.NewDense(rows, k, data)}, nil
}

// Rows returns the number of entities.
func (f *FactorMatrix) Rows() int {
	r, _ := f.m.Dims()
	return r
}

// Dim returns the latent dimension k.
func (f *FactorMatrix) Dim() int {
	_, c := f.m.Dims()
	return c
}

// Row returns a copy of row i.
func (f *FactorMatrix) Row(i int) ([]float64, error) {
	if i < 0 || i >= f.Rows() {
		return nil, fmt.Errorf("%w: row %d not in [0, %d)", ErrIndexOutOfRange, i, f.Rows())
	}
	return slices.Clone(f.m.RawRowView(i)), nil
}

// Data returns a copy of the row-major backing values.
func (f *FactorMatrix) Data() []float64 {
	return slices.Clone(f.m.RawMatrix().Data)
}

// row returns a view of row i sharing storage with the matrix.
func (f *FactorMatrix) row(i int) []float64 {
	return f.m.RawRowView(i)
}

// gram returns FᵀF.
func (f *FactorMatrix) gram() *mat.SymDense {
	k := f.Dim()
	g := mat.NewSymDense(k, nil)
	g.SymOuterK(1, f.m.T())
	return g
}

// normalized returns a copy with every row scaled to unit L2 norm. Zero rows stay zero.
func (f *FactorMatrix) normalized() *FactorMatrix {
	out := mat.DenseCopyOf(f.m)
	for i := 0; i < f.Rows(); i++ {
		row := out.RawRowView(i)
		if n := floats.Norm(row, 2); n > 0 {
			floats.Scale(1/n, row)
		}
	}
	return &FactorMatrix{m: out}
}

// FactorStore holds a trained pair of factor matrices. The L2-normalized item
// view is computed on first use and cached.
type FactorStore struct {
	users *FactorMatrix
	items *FactorMatrix

	normOnce  sync.Once
	normItems *FactorMatrix
}

// NewFactorStore pairs user and item factors. Both must share k.
func NewFactorStore(users, items *FactorMatrix) (*FactorStore, error) {
	if users == nil || items == nil {
		return nil, fmt.Errorf("%w: missing factor matrix", ErrDimensionMismatch)
	}
	if users.Dim() != items.Dim() {
		return nil, fmt.Errorf("%w: user k=%d item k=%d", ErrDimensionMismatch, users.Dim(), items.Dim())
	}
	return &FactorStore{users: users, items: items}, nil
}

// Dim returns k.
func (s *FactorStore) Dim() int {
	return s.users.Dim()
}

// Users returns the user factor matrix.
func (s *FactorStore) Users() *FactorMatrix {
	return s.users
}

// Items returns the item factor matrix.
func (s *FactorStore) Items() *FactorMatrix {
	return s.items
}

// UserRow returns a copy of user u's factors.
func (s *FactorStore) UserRow(u int) ([]float64, error) {
	return s.users.Row(u)
}

// ItemRow returns a copy of item i's factors.
func (s *FactorStore) ItemRow(i int) ([]float64, error) {
	return s.items.Row(i)
}

// NormalizedItems returns the unit-norm item view.
func (s *FactorStore) NormalizedItems() *FactorMatrix {
	s.normOnce.Do(func() {
		s.normItems = s.items.normalized()
	})
	return s.normItems
}
