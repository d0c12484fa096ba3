// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

// Package recommend serves ALS recommendations over raw user and item ids.
//
// # Architecture
//
// The Engine owns one published model at a time. Training runs pull
// interactions from a DataProvider, build the interaction matrix, fit factors
// with the als package and then swap the new model in atomically:
//
//	provider -> als.BuildDataset -> als.Trainer -> publish -> ModelStore
//
// Queries read the current model without locking. A query that started
// against version N finishes against version N even if version N+1 is
// published meanwhile.
//
// # Persistence
//
// When a storage.Store is configured every published model is saved and old
// versions are pruned. LoadLatest restores the newest stored model at
// startup so queries can be served before the first training run completes.
//
// # Caching
//
// Query results are cached per model version in an LRU with TTL. Publishing
// a model purges the cache.
//
// # Thread Safety
//
// The engine is safe for concurrent use. At most one training run executes
// at a time; a concurrent Train call fails fast with ErrTrainingInProgress.
package recommend
