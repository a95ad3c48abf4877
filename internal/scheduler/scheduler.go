// Package scheduler runs the jobs on cron expressions.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/quizquotidien/quizgen/internal/jobs"
)

// JobRunner runs the jobs.
type JobRunner interface {
	Generate(ctx context.Context, opts jobs.GenerateOptions) (*jobs.GenerateReport, error)
	Clean(ctx context.Context, opts jobs.CleanOptions) (*jobs.CleanReport, error)
}

// Pruner deletes run history older than a cutoff.
type Pruner interface {
	PruneRuns(ctx context.Context, cutoff time.Time) (int, error)
}

// Config holds the schedules. An empty expression disables the entry.
type Config struct {
	Generate string
	Clean    string
	Location *time.Location

	// Prune removes history older than Retention once a day; nil or a zero
	// retention disables it.
	Prune     Pruner
	Retention time.Duration

	JobTimeout time.Duration
}

const pruneSpec = "30 3 * * *"

// Scheduler wraps a cron instance.
type Scheduler struct {
	cron   *cron.Cron
	runner JobRunner
	cfg    Config
	log    zerolog.Logger

	// ctx is the Run context; entries fired after it ends are skipped.
	ctx context.Context
}

// New parses the schedules and registers the entries.
func New(runner JobRunner, cfg Config, log zerolog.Logger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(cfg.Location)),
		runner: runner,
		cfg:    cfg,
		log:    log,
		ctx:    context.Background(),
	}

	if cfg.Generate != "" {
		if _, err := s.cron.AddFunc(cfg.Generate, func() { s.runGenerate() }); err != nil {
			return nil, fmt.Errorf("invalid generate schedule %q: %w", cfg.Generate, err)
		}
	}
	if cfg.Clean != "" {
		if _, err := s.cron.AddFunc(cfg.Clean, func() { s.runClean() }); err != nil {
			return nil, fmt.Errorf("invalid clean schedule %q: %w", cfg.Clean, err)
		}
	}
	if cfg.Prune != nil && cfg.Retention > 0 {
		if _, err := s.cron.AddFunc(pruneSpec, func() { s.runPrune() }); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Entries returns how many entries are scheduled.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Next returns the next activation time, or the zero time when nothing is scheduled.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// Run starts the scheduler and blocks until ctx is canceled. A job in
// progress is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	s.log.Info().
		Str("generate", orDisabled(s.cfg.Generate)).
		Str("clean", orDisabled(s.cfg.Clean)).
		Str("timezone", s.cfg.Location.String()).
		Msg("scheduler started")

	<-ctx.Done()
	s.log.Info().Msg("stopping scheduler")
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) jobContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(s.ctx), s.cfg.JobTimeout)
}

func (s *Scheduler) runGenerate() {
	if s.ctx.Err() != nil {
		return
	}
	ctx, cancel := s.jobContext()
	defer cancel()

	report, err := s.runner.Generate(ctx, jobs.GenerateOptions{})
	if s.skipped("generate", err) {
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("job", "generate").Msg("scheduled job failed")
		return
	}
	s.log.Info().
		Str("job", "generate").
		Int("added", report.Added).
		Bool("committed", report.Committed).
		Msg(report.Message)
}

func (s *Scheduler) runClean() {
	if s.ctx.Err() != nil {
		return
	}
	ctx, cancel := s.jobContext()
	defer cancel()

	report, err := s.runner.Clean(ctx, jobs.CleanOptions{})
	if s.skipped("clean", err) {
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("job", "clean").Msg("scheduled job failed")
		return
	}
	s.log.Info().
		Str("job", "clean").
		Int("removed", report.DuplicatesRemoved+report.SimilarRemoved).
		Bool("committed", report.Committed).
		Msg(report.Message)
}

func (s *Scheduler) runPrune() {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.cfg.Retention)
	n, err := s.cfg.Prune.PruneRuns(ctx, cutoff)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to prune run history")
		return
	}
	if n > 0 {
		s.log.Info().Int("deleted", n).Time("cutoff", cutoff).Msg("pruned run history")
	}
}

// skipped reports whether the job did not run because another one holds the lock.
func (s *Scheduler) skipped(job string, err error) bool {
	if errors.Is(err, jobs.ErrJobRunning) {
		s.log.Warn().Str("job", job).Msg("previous job still running, skipping this tick")
		return true
	}
	return false
}

func orDisabled(spec string) string {
	if spec == "" {
		return "disabled"
	}
	return spec
}
