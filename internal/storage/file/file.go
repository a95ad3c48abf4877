// Package file stores the question bank in a local JSON file.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quizquotidien/quizgen/internal/storage"
	"github.com/quizquotidien/quizgen/internal/types"
)

// Store keeps the bank at a single path. The revision is the hex SHA-256 of
// the file contents; a missing file has the empty revision.
type Store struct {
	path string
}

var _ storage.Storage = (*Store)(nil)

// New creates a file store for path.
func New(path string) *Store {
	return &Store{path: path}
}

// Location implements storage.Storage.
func (s *Store) Location() string {
	return s.path
}

// Load implements storage.Storage.
func (s *Store) Load(ctx context.Context) (*storage.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.path, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	bank, err := storage.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return &storage.Snapshot{Bank: bank, Revision: revisionOf(data)}, nil
}

// Save implements storage.Storage. The new contents are written to a
// temporary file in the same directory and renamed over the old one, so
// readers see either the old or the new document.
func (s *Store) Save(ctx context.Context, bank *types.Bank, revision, message string) error {
	current, err := s.currentRevision()
	if err != nil {
		return err
	}
	if current != revision {
		return fmt.Errorf("%s: %w", s.path, storage.ErrConflict)
	}

	data, err := storage.Encode(bank)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", s.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // Clean up on error (best effort)
		return fmt.Errorf("committing %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) currentRevision() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", s.path, err)
	}
	return revisionOf(data), nil
}

func revisionOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
