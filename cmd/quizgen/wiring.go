package main

import (
	"fmt"
	"time"

	"github.com/quizquotidien/quizgen/internal/ai"
	"github.com/quizquotidien/quizgen/internal/cdn"
	"github.com/quizquotidien/quizgen/internal/config"
	"github.com/quizquotidien/quizgen/internal/jobs"
	"github.com/quizquotidien/quizgen/internal/pool"
	"github.com/quizquotidien/quizgen/internal/storage"
	"github.com/quizquotidien/quizgen/internal/storage/file"
	"github.com/quizquotidien/quizgen/internal/storage/github"
	"github.com/quizquotidien/quizgen/internal/storage/sqlite"
)

// openStorage builds the bank storage selected by the config.
func openStorage(c *config.Config) (storage.Storage, error) {
	switch c.Storage.Backend {
	case "file":
		return file.New(c.Storage.File), nil
	case "github":
		gh := c.Storage.GitHub
		return github.New(github.Config{
			Owner:  gh.Owner,
			Repo:   gh.Repo,
			Path:   gh.Path,
			Branch: gh.Branch,
			Token:  gh.Token,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
}

// openHistory opens the run ledger, or returns nil when it is disabled.
func openHistory(c *config.Config) (*sqlite.History, error) {
	if c.History.Path == "" {
		return nil, nil
	}
	h, err := sqlite.New(c.History.Path)
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}
	return h, nil
}

func newGenerator(c *config.Config) (*ai.Generator, error) {
	retry := ai.DefaultRetryConfig()
	retry.MaxRetries = c.Generation.MaxRetries
	if c.Generation.Timeout > 0 {
		retry.Timeout = c.Generation.Timeout
	}
	return ai.NewGenerator(ai.Config{
		APIKey:    c.Generation.APIKey,
		Model:     c.Generation.Model,
		MaxTokens: c.Generation.MaxTokens,
		Retry:     retry,
	})
}

func newPurger(c *config.Config) *cdn.Purger {
	return cdn.New(cdn.Config{
		Token:       c.Purge.Token,
		SiteHost:    c.Purge.SiteHost,
		FilePath:    c.Purge.FilePath,
		SettleDelay: c.Purge.SettleDelay,
	})
}

func jobOptions(c *config.Config) (jobs.Options, error) {
	policy, err := pool.New(c.Pool.Policy, c.Pool.Size, c.Pool.ArchiveCap, c.Pool.MaxTotal)
	if err != nil {
		return jobs.Options{}, err
	}
	return jobs.Options{
		Generation:   c.Generation.Dedup(),
		Cleaning:     c.Cleaning.Dedup(),
		Count:        c.Generation.Count,
		AvoidCount:   c.Generation.AvoidCount,
		Categories:   c.Generation.Categories,
		CheckArchive: c.Generation.CheckArchive,
		Policy:       policy,
		Location:     c.Location(),
	}, nil
}

// app holds the components a job command needs.
type app struct {
	store   storage.Storage
	history *sqlite.History
	runner  *jobs.Runner
}

// newApp wires storage, history and the runner. The generator is only
// built when withGenerator is set, so clean works without an API key.
func newApp(c *config.Config, withGenerator bool) (*app, error) {
	store, err := openStorage(c)
	if err != nil {
		return nil, err
	}
	opts, err := jobOptions(c)
	if err != nil {
		return nil, err
	}

	deps := jobs.Deps{
		Storage: store,
		Purger:  newPurger(c),
		Logger:  log,
	}
	if withGenerator {
		gen, err := newGenerator(c)
		if err != nil {
			return nil, err
		}
		deps.Generator = gen
	}

	history, err := openHistory(c)
	if err != nil {
		return nil, err
	}
	if history != nil {
		deps.History = history
	}

	return &app{
		store:   store,
		history: history,
		runner:  jobs.NewRunner(deps, opts),
	}, nil
}

func (a *app) Close() error {
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}

func retention(c *config.Config) time.Duration {
	return time.Duration(c.History.RetentionDays) * 24 * time.Hour
}
