// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package als

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// InteractionRecord is one observed implicit signal, such as a watch count.
type InteractionRecord struct {
	// UserID is the raw user identifier.
	UserID int64 `json:"user_id"`

	// ItemID is the raw item identifier.
	ItemID int64 `json:"item_id"`

	// Weight is the non-negative interaction strength.
	Weight float64 `json:"weight"`
}

// DuplicatePolicy decides how repeated (user, item) records combine.
type DuplicatePolicy string

const (
	// DuplicateSum adds the weights of repeated records.
	DuplicateSum DuplicatePolicy = "sum"

	// DuplicateOverwrite keeps the weight of the last record in input order.
	DuplicateOverwrite DuplicatePolicy = "overwrite"
)

// ParseDuplicatePolicy parses a policy name. The empty string selects DuplicateSum.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", DuplicateSum:
		return DuplicateSum, nil
	case DuplicateOverwrite:
		return DuplicateOverwrite, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q (want %q or %q)", s, DuplicateSum, DuplicateOverwrite)
	}
}

// SparseRow is one row of an interaction matrix: sorted column indices and
// their non-zero weights.
type SparseRow struct {
	Indices []int
	Values  []float64
}

// Len returns the number of stored entries.
func (r SparseRow) Len() int {
	return len(r.Indices)
}

// Weight returns the weight stored at column col, or 0.
func (r SparseRow) Weight(col int) float64 {
	if pos, ok := slices.BinarySearch(r.Indices, col); ok {
		return r.Values[pos]
	}
	return 0
}

// csr is a compressed sparse row block.
type csr struct {
	indptr  []int
	indices []int
	data    []float64
}

func (c *csr) row(r int) SparseRow {
	lo, hi := c.indptr[r], c.indptr[r+1]
	return SparseRow{Indices: c.indices[lo:hi:hi], Values: c.data[lo:hi:hi]}
}

// InteractionMatrix is an immutable sparse users x items weight matrix. Both
// orientations are kept so that the user pass and the item pass of training
// iterate rows without a transpose.
type InteractionMatrix struct {
	numUsers int
	numItems int
	byUser   csr
	byItem   csr
}

type triplet struct {
	user, item int
	weight     float64
}

// BuildMatrix resolves every record through the mappers and assembles the
// matrix. Records with zero combined weight are not stored.
func BuildMatrix(records []InteractionRecord, users, items *IndexMapper[int64], policy DuplicatePolicy) (*InteractionMatrix, error) {
	if policy == "" {
		policy = DuplicateSum
	}
	if policy != DuplicateSum && policy != DuplicateOverwrite {
		return nil, fmt.Errorf("unknown duplicate policy %q", policy)
	}

	entries := make([]triplet, 0, len(records))
	for _, rec := range records {
		if rec.Weight < 0 || math.IsNaN(rec.Weight) || math.IsInf(rec.Weight, 0) {
			return nil, fmt.Errorf("%w: user %d item %d weight %v", ErrInvalidWeight, rec.UserID, rec.ItemID, rec.Weight)
		}
		u, err := users.ToDense(rec.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolve user: %w", err)
		}
		i, err := items.ToDense(rec.ItemID)
		if err != nil {
			return nil, fmt.Errorf("resolve item: %w", err)
		}
		entries = append(entries, triplet{user: u, item: i, weight: rec.Weight})
	}

	// Stable sort keeps input order among duplicates for DuplicateOverwrite.
	slices.SortStableFunc(entries, func(a, b triplet) int {
		if c := cmp.Compare(a.user, b.user); c != 0 {
			return c
		}
		return cmp.Compare(a.item, b.item)
	})

	merged := entries[:0]
	for _, e := range entries {
		n := len(merged)
		if n > 0 && merged[n-1].user == e.user && merged[n-1].item == e.item {
			if policy == DuplicateSum {
				merged[n-1].weight += e.weight
			} else {
				merged[n-1].weight = e.weight
			}
			continue
		}
		merged = append(merged, e)
	}

	m := &InteractionMatrix{numUsers: users.Len(), numItems: items.Len()}
	m.byUser = csr{indptr: make([]int, m.numUsers+1)}
	for _, e := range merged {
		if e.weight == 0 {
			continue
		}
		m.byUser.indptr[e.user+1]++
		m.byUser.indices = append(m.byUser.indices, e.item)
		m.byUser.data = append(m.byUser.data, e.weight)
	}
	for u := 0; u < m.numUsers; u++ {
		m.byUser.indptr[u+1] += m.byUser.indptr[u]
	}
	m.byItem = transpose(&m.byUser, m.numItems)
	return m, nil
}

// transpose converts a row block with cols columns into its column block.
// Row indices come out ascending because source rows are walked in order.
func transpose(src *csr, cols int) csr {
	nnz := len(src.indices)
	dst := csr{
		indptr:  make([]int, cols+1),
		indices: make([]int, nnz),
		data:    make([]float64, nnz),
	}
	for _, c := range src.indices {
		dst.indptr[c+1]++
	}
	for c := 0; c < cols; c++ {
		dst.indptr[c+1] += dst.indptr[c]
	}
	next := slices.Clone(dst.indptr[:cols])
	rows := len(src.indptr) - 1
	for r := 0; r < rows; r++ {
		for p := src.indptr[r]; p < src.indptr[r+1]; p++ {
			c := src.indices[p]
			dst.indices[next[c]] = r
			dst.data[next[c]] = src.data[p]
			next[c]++
		}
	}
	return dst
}

// NumUsers returns the number of user rows.
func (m *InteractionMatrix) NumUsers() int {
	return m.numUsers
}

// NumItems returns the number of item columns.
func (m *InteractionMatrix) NumItems() int {
	return m.numItems
}

// NNZ returns the number of stored non-zero entries.
func (m *InteractionMatrix) NNZ() int {
	return len(m.byUser.indices)
}

// UserRow returns a copy of user u's row.
func (m *InteractionMatrix) UserRow(u int) (SparseRow, error) {
	if u < 0 || u >= m.numUsers {
		return SparseRow{}, fmt.Errorf("%w: user %d not in [0, %d)", ErrIndexOutOfRange, u, m.numUsers)
	}
	return cloneRow(m.byUser.row(u)), nil
}

// ItemRow returns a copy of item i's column, indexed by user.
func (m *InteractionMatrix) ItemRow(i int) (SparseRow, error) {
	if i < 0 || i >= m.numItems {
		return SparseRow{}, fmt.Errorf("%w: item %d not in [0, %d)", ErrIndexOutOfRange, i, m.numItems)
	}
	return cloneRow(m.byItem.row(i)), nil
}

// Weight returns the stored weight for (u, i), or 0 when absent or out of range.
func (m *InteractionMatrix) Weight(u, i int) float64 {
	if u < 0 || u >= m.numUsers {
		return 0
	}
	return m.byUser.row(u).Weight(i)
}

// UserRows returns the block holding the given users' rows in argument order.
func (m *InteractionMatrix) UserRows(users ...int) (Rows, error) {
	rows := Rows{users: make([]int, 0, len(users)), indptr: []int{0}}
	for _, u := range users {
		if u < 0 || u >= m.numUsers {
			return Rows{}, fmt.Errorf("%w: user %d not in [0, %d)", ErrIndexOutOfRange, u, m.numUsers)
		}
		r := m.byUser.row(u)
		rows.append(u, r.Indices, r.Values)
	}
	return rows, nil
}

// AllUserRows returns every user row as one block.
func (m *InteractionMatrix) AllUserRows() Rows {
	users := make([]int, m.numUsers)
	for u := range users {
		users[u] = u
	}
	rows, _ := m.UserRows(users...)
	return rows
}

func cloneRow(r SparseRow) SparseRow {
	return SparseRow{Indices: slices.Clone(r.Indices), Values: slices.Clone(r.Values)}
}

// Rows is a block of user interaction rows, each tagged with its dense user index.
type Rows struct {
	users   []int
	indptr  []int
	indices []int
	data    []float64
}

// NewUserRow builds a single-row block for user from item weights. Zero
// weights are dropped.
func NewUserRow(user int, weights map[int]float64) Rows {
	items := make([]int, 0, len(weights))
	for i, w := range weights {
		if w != 0 {
			items = append(items, i)
		}
	}
	slices.Sort(items)
	values := make([]float64, len(items))
	for n, i := range items {
		values[n] = weights[i]
	}

	rows := Rows{indptr: []int{0}}
	rows.append(user, items, values)
	return rows
}

func (r *Rows) append(user int, indices []int, values []float64) {
	r.users = append(r.users, user)
	r.indices = append(r.indices, indices...)
	r.data = append(r.data, values...)
	r.indptr = append(r.indptr, len(r.indices))
}

// NumRows returns the number of rows in the block.
func (r Rows) NumRows() int {
	return len(r.users)
}

// User returns the dense user index of row n.
func (r Rows) User(n int) int {
	return r.users[n]
}

// Row returns row n.
func (r Rows) Row(n int) SparseRow {
	lo, hi := r.indptr[n], r.indptr[n+1]
	return SparseRow{Indices: r.indices[lo:hi:hi], Values: r.data[lo:hi:hi]}
}

// Dataset groups the mappers and matrix derived from one snapshot of records.
type Dataset struct {
	Users  *IndexMapper[int64]
	Items  *IndexMapper[int64]
	Matrix *InteractionMatrix
}

// BuildDataset derives both mappers from the distinct ids in records and
// builds the matrix with policy.
func BuildDataset(records []InteractionRecord, policy DuplicatePolicy) (*Dataset, error) {
	userIDs := make([]int64, len(records))
	itemIDs := make([]int64, len(records))
	for n, rec := range records {
		userIDs[n] = rec.UserID
		itemIDs[n] = rec.ItemID
	}
	users := NewIndexMapper(userIDs)
	items := NewIndexMapper(itemIDs)

	m, err := BuildMatrix(records, users, items, policy)
	if err != nil {
		return nil, err
	}
	return &Dataset{Users: users, Items: items, Matrix: m}, nil
}
