// Package storage loads and saves the question bank document.
package storage

import (
	"context"
	"errors"

	"github.com/quizquotidien/quizgen/internal/types"
)

var (
	// ErrNotFound is returned when the bank document does not exist.
	ErrNotFound = errors.New("question bank not found")

	// ErrConflict is returned by Save when the stored document changed since
	// the revision it was loaded at.
	ErrConflict = errors.New("question bank changed since it was loaded")
)

// Snapshot is a loaded bank together with the revision it was read at.
type Snapshot struct {
	Bank *types.Bank

	// Revision identifies the stored bytes (a blob sha for GitHub, a content
	// hash for local files). It is passed back to Save.
	Revision string
}

// Storage persists the question bank.
//
// Save is all-or-nothing: when it returns an error the stored document is
// unchanged. Implementations reject a stale revision with ErrConflict.
type Storage interface {
	// Load reads and decodes the bank.
	Load(ctx context.Context) (*Snapshot, error)

	// Save writes bank, replacing the document stored at revision.
	// message describes the change (used as the commit message where supported).
	Save(ctx context.Context, bank *types.Bank, revision, message string) error

	// Location describes where the bank lives, for logs.
	Location() string
}
