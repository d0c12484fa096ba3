// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

// Package storage persists trained ALS models.
//
// A stored model is an als.Snapshot plus Metadata describing the training run.
// Two backends are provided:
//
//   - FileStore writes one gzip-compressed gob file per version with a SHA-256
//     checksum of the uncompressed payload.
//   - BadgerStore keeps JSON-encoded records in an embedded BadgerDB.
//
// Versions are monotonically increasing per store; Latest returns the highest.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/alsrec/internal/recommend/als"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendNone   = "none"
)

// ErrNoModel is returned when a store holds no model.
var ErrNoModel = errors.New("storage: no stored model")

// ErrChecksumMismatch is returned when a stored payload fails verification.
var ErrChecksumMismatch = errors.New("storage: checksum mismatch")

// Metadata describes a stored model version.
type Metadata struct {
	ModelID   string    `json:"model_id"`
	Version   int64     `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	SavedAt   time.Time `json:"saved_at"`

	Users        int `json:"users"`
	Items        int `json:"items"`
	Interactions int `json:"interactions"`
	Factors      int `json:"factors"`

	TrainingDurationMS int64 `json:"training_duration_ms"`

	// Checksum is the hex SHA-256 of the encoded snapshot.
	Checksum  string `json:"checksum"`
	SizeBytes int64  `json:"size_bytes"`
}

// Record is a model snapshot together with its metadata.
type Record struct {
	Metadata Metadata      `json:"metadata"`
	Snapshot *als.Snapshot `json:"snapshot"`
}

// Store is implemented by every model backend.
type Store interface {
	// Save persists rec under rec.Metadata.Version. Checksum, SizeBytes and
	// SavedAt are filled in by the store.
	Save(ctx context.Context, rec *Record) error

	// Latest loads the highest stored version, or ErrNoModel.
	Latest(ctx context.Context) (*Record, error)

	// List returns metadata for all stored versions, newest first.
	List(ctx context.Context) ([]Metadata, error)

	// LatestVersion returns the highest stored version, or 0 for an empty
	// store. It does not read model payloads.
	LatestVersion(ctx context.Context) (int64, error)

	// Prune removes all but the newest keep versions.
	Prune(ctx context.Context, keep int) error

	Close() error
}

// Open returns the store for backend rooted at path. BackendNone yields a nil
// Store and no error.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendFile:
		return NewFileStore(path)
	case BackendBadger:
		return OpenBadgerStore(path)
	case BackendNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}

func validateRecord(rec *Record) error {
	if rec == nil || rec.Snapshot == nil {
		return fmt.Errorf("storage: nil record")
	}
	if rec.Metadata.Version <= 0 {
		return fmt.Errorf("storage: invalid version %d", rec.Metadata.Version)
	}
	return nil
}
