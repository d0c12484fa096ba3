// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/alsrec/internal/recommend/als"
)

const (
	filePrefix = "als_v"
	fileSuffix = ".gob.gz"
	metaSuffix = ".meta.json"
)

// storedFile is the on-disk format for model files.
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// FileStore keeps each model version in its own file under a directory. A
// small JSON sidecar next to each model file carries its Metadata so listing
// never decodes payloads.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex

	versions []int64 // ascending
}

// NewFileStore creates the directory if needed and indexes existing versions.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	s := &FileStore{baseDir: baseDir}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
	}
	return s, nil
}

func (s *FileStore) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}
	s.versions = s.versions[:0]
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if v, ok := parseModelFilename(entry.Name()); ok {
			s.versions = append(s.versions, v)
		}
	}
	slices.Sort(s.versions)
	return nil
}

// parseModelFilename extracts the version from a name like "als_v12.gob.gz".
func parseModelFilename(name string) (int64, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func (s *FileStore) modelPath(version int64) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s%d%s", filePrefix, version, fileSuffix))
}

func (s *FileStore) metaPath(version int64) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s%d%s", filePrefix, version, metaSuffix))
}

// writeMeta replaces the metadata sidecar of meta.Version.
func (s *FileStore) writeMeta(meta *Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	tmp, err := os.CreateTemp(s.baseDir, ".als-meta-*.tmp")
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }() //nolint:errcheck // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write metadata file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close metadata file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.metaPath(meta.Version)); err != nil {
		return fmt.Errorf("rename metadata file: %w", err)
	}
	return nil
}

// readMeta reads the sidecar of version, falling back to the model file
// header for files written without one.
func (s *FileStore) readMeta(version int64) (*Metadata, error) {
	data, err := os.ReadFile(s.metaPath(version))
	if err == nil {
		var meta Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		return &meta, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read metadata file: %w", err)
	}
	sf, err := s.readFile(version)
	if err != nil {
		return nil, err
	}
	return &sf.Metadata, nil
}

// Save writes rec atomically via a temp file and rename.
func (s *FileStore) Save(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(rec.Snapshot); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	meta := rec.Metadata
	meta.Checksum = hex.EncodeToString(hash[:])
	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.baseDir, ".als-*.tmp")
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }() //nolint:errcheck // no-op after successful rename

	if err := gob.NewEncoder(tmp).Encode(storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.modelPath(meta.Version)); err != nil {
		return fmt.Errorf("rename model file: %w", err)
	}
	if err := s.writeMeta(&meta); err != nil {
		return err
	}

	if _, found := slices.BinarySearch(s.versions, meta.Version); !found {
		s.versions = append(s.versions, meta.Version)
		slices.Sort(s.versions)
	}
	rec.Metadata = meta
	return nil
}

// Latest loads the newest version.
func (s *FileStore) Latest(ctx context.Context) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.versions) == 0 {
		return nil, ErrNoModel
	}
	return s.load(ctx, s.versions[len(s.versions)-1])
}

// Load loads a specific version.
func (s *FileStore) Load(ctx context.Context, version int64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, found := slices.BinarySearch(s.versions, version); !found {
		return nil, fmt.Errorf("%w: version %d", ErrNoModel, version)
	}
	return s.load(ctx, version)
}

func (s *FileStore) readFile(version int64) (*storedFile, error) {
	f, err := os.Open(s.modelPath(version))
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return &sf, nil
}

func (s *FileStore) load(ctx context.Context, version int64) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sf, err := s.readFile(version)
	if err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // read-only

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if got := hex.EncodeToString(hash[:]); got != sf.Metadata.Checksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, sf.Metadata.Checksum, got)
	}

	var snap als.Snapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &Record{Metadata: sf.Metadata, Snapshot: &snap}, nil
}

// List returns metadata for every readable version, newest first.
func (s *FileStore) List(ctx context.Context) ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Metadata, 0, len(s.versions))
	for i := len(s.versions) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta, err := s.readMeta(s.versions[i])
		if err != nil {
			continue
		}
		out = append(out, *meta)
	}
	return out, nil
}

// LatestVersion returns the highest indexed version, or 0 when empty.
func (s *FileStore) LatestVersion(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.versions) == 0 {
		return 0, nil
	}
	return s.versions[len(s.versions)-1], nil
}

// Prune removes old versions, keeping the newest keep (at least one).
func (s *FileStore) Prune(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep = max(keep, 1)
	if len(s.versions) <= keep {
		return nil
	}
	cut := len(s.versions) - keep
	for _, v := range s.versions[:cut] {
		if err := os.Remove(s.modelPath(v)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete model v%d: %w", v, err)
		}
		if err := os.Remove(s.metaPath(v)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete metadata v%d: %w", v, err)
		}
	}
	s.versions = slices.Clone(s.versions[cut:])
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }
