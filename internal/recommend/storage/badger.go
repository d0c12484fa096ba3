// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/alsrec/internal/recommend/als"
)

// Key prefixes for BadgerDB storage. Versions are zero padded so that
// lexicographic key order matches numeric order.
const (
	modelKeyPrefix = "model:"
	metaKeyPrefix  = "model_meta:"
)

func modelKey(version int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", modelKeyPrefix, version))
}

func metaKey(version int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", metaKeyPrefix, version))
}

// BadgerStore keeps model versions in BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	ownsDB bool
}

// OpenBadgerStore opens (or creates) a database at dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, ownsDB: true}, nil
}

// NewBadgerStore wraps an already open database. Close does not close db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Save stores the snapshot and its metadata in one transaction.
func (s *BadgerStore) Save(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	hash := sha256.Sum256(data)

	meta := rec.Metadata
	meta.Checksum = hex.EncodeToString(hash[:])
	meta.SizeBytes = int64(len(data))
	meta.SavedAt = time.Now().UTC()

	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(modelKey(meta.Version), data); err != nil {
			return fmt.Errorf("set model: %w", err)
		}
		if err := txn.Set(metaKey(meta.Version), metaData); err != nil {
			return fmt.Errorf("set metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	rec.Metadata = meta
	return nil
}

// Latest loads the highest version.
func (s *BadgerStore) Latest(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		meta, err := latestMeta(txn)
		if err != nil {
			return err
		}
		item, err := txn.Get(modelKey(meta.Version))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: version %d has metadata but no payload", ErrNoModel, meta.Version)
		}
		if err != nil {
			return fmt.Errorf("get model: %w", err)
		}
		return item.Value(func(val []byte) error {
			hash := sha256.Sum256(val)
			if got := hex.EncodeToString(hash[:]); got != meta.Checksum {
				return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, meta.Checksum, got)
			}
			var snap als.Snapshot
			if err := json.Unmarshal(val, &snap); err != nil {
				return fmt.Errorf("unmarshal snapshot: %w", err)
			}
			rec = &Record{Metadata: *meta, Snapshot: &snap}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// LatestVersion returns the highest stored version, or 0 when empty.
func (s *BadgerStore) LatestVersion(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var version int64
	err := s.db.View(func(txn *badger.Txn) error {
		meta, err := latestMeta(txn)
		if errors.Is(err, ErrNoModel) {
			return nil
		}
		if err != nil {
			return err
		}
		version = meta.Version
		return nil
	})
	return version, err
}

func latestMeta(txn *badger.Txn) (*Metadata, error) {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(metaKeyPrefix)
	// Reverse iteration seeks to the largest key <= seek; 0xFF sorts after any version.
	seek := append([]byte(metaKeyPrefix), 0xFF)
	it.Seek(seek)
	if !it.ValidForPrefix(prefix) {
		return nil, ErrNoModel
	}
	var meta Metadata
	if err := it.Item().Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &meta, nil
}

// List returns metadata for every version, newest first.
func (s *BadgerStore) List(ctx context.Context) ([]Metadata, error) {
	var out []Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(metaKeyPrefix)
		for it.Seek(append([]byte(metaKeyPrefix), 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var meta Metadata
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return fmt.Errorf("unmarshal metadata: %w", err)
			}
			out = append(out, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Prune deletes all but the newest keep versions (at least one).
func (s *BadgerStore) Prune(ctx context.Context, keep int) error {
	metas, err := s.List(ctx)
	if err != nil {
		return err
	}
	keep = max(keep, 1)
	if len(metas) <= keep {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, m := range metas[keep:] {
			if err := txn.Delete(modelKey(m.Version)); err != nil {
				return fmt.Errorf("delete model v%d: %w", m.Version, err)
			}
			if err := txn.Delete(metaKey(m.Version)); err != nil {
				return fmt.Errorf("delete metadata v%d: %w", m.Version, err)
			}
		}
		return nil
	})
}

// Close closes the database if the store opened it.
func (s *BadgerStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
