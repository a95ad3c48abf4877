// Package github stores the question bank in a GitHub repository through
// the contents API. Every save is a commit.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v66/github"

	"github.com/quizquotidien/quizgen/internal/storage"
	"github.com/quizquotidien/quizgen/internal/types"
)

// Config locates the bank document.
type Config struct {
	Owner  string
	Repo   string
	Path   string
	Branch string // empty means the repository default branch
	Token  string
}

// Store reads and commits a single file in a repository.
type Store struct {
	client *gh.Client
	cfg    Config
}

var _ storage.Storage = (*Store)(nil)

// New creates a store authenticated with cfg.Token.
func New(cfg Config) (*Store, error) {
	if cfg.Owner == "" || cfg.Repo == "" || cfg.Path == "" {
		return nil, fmt.Errorf("github storage needs owner, repo and path (got %q/%q:%q)", cfg.Owner, cfg.Repo, cfg.Path)
	}
	client := gh.NewClient(nil)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a store on an existing client.
func NewWithClient(client *gh.Client, cfg Config) *Store {
	return &Store{client: client, cfg: cfg}
}

// Location implements storage.Storage.
func (s *Store) Location() string {
	loc := fmt.Sprintf("github.com/%s/%s/%s", s.cfg.Owner, s.cfg.Repo, s.cfg.Path)
	if s.cfg.Branch != "" {
		loc += "@" + s.cfg.Branch
	}
	return loc
}

// Load implements storage.Storage. The revision is the blob sha.
func (s *Store) Load(ctx context.Context) (*storage.Snapshot, error) {
	var opts *gh.RepositoryContentGetOptions
	if s.cfg.Branch != "" {
		opts = &gh.RepositoryContentGetOptions{Ref: s.cfg.Branch}
	}

	fc, _, _, err := s.client.Repositories.GetContents(ctx, s.cfg.Owner, s.cfg.Repo, s.cfg.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.Location(), mapError(err))
	}
	if fc == nil {
		return nil, fmt.Errorf("%s is a directory, not a file", s.Location())
	}

	content, err := fc.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.Location(), err)
	}

	bank, err := storage.Decode([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Location(), err)
	}
	return &storage.Snapshot{Bank: bank, Revision: fc.GetSHA()}, nil
}

// Save implements storage.Storage. An empty revision creates the file.
func (s *Store) Save(ctx context.Context, bank *types.Bank, revision, message string) error {
	data, err := storage.Encode(bank)
	if err != nil {
		return err
	}

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String(message),
		Content: data,
	}
	if revision != "" {
		opts.SHA = gh.String(revision)
	}
	if s.cfg.Branch != "" {
		opts.Branch = gh.String(s.cfg.Branch)
	}

	if revision == "" {
		_, _, err = s.client.Repositories.CreateFile(ctx, s.cfg.Owner, s.cfg.Repo, s.cfg.Path, opts)
	} else {
		_, _, err = s.client.Repositories.UpdateFile(ctx, s.cfg.Owner, s.cfg.Repo, s.cfg.Path, opts)
	}
	if err != nil {
		return fmt.Errorf("committing %s: %w", s.Location(), mapError(err))
	}
	return nil
}

// mapError translates API status codes into storage sentinels. GitHub
// answers a stale sha with 409, and with 422 when a sha is missing for an
// existing file.
func mapError(err error) error {
	var respErr *gh.ErrorResponse
	if !errors.As(err, &respErr) || respErr.Response == nil {
		return err
	}
	switch respErr.Response.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", storage.ErrNotFound, err)
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %v", storage.ErrConflict, err)
	default:
		return err
	}
}
