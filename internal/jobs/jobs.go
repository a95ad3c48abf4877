// Package jobs runs the two scheduled workflows over the question bank:
// generating new questions and cleaning duplicates out of the stored ones.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizquotidien/quizgen/internal/ai"
	"github.com/quizquotidien/quizgen/internal/deduplication"
	"github.com/quizquotidien/quizgen/internal/pool"
	"github.com/quizquotidien/quizgen/internal/storage"
	"github.com/quizquotidien/quizgen/internal/types"
)

// ErrJobRunning is returned when a job is triggered while another one is
// still in progress.
var ErrJobRunning = errors.New("another job is already running")

// Generator produces candidate questions.
type Generator interface {
	Generate(ctx context.Context, req ai.GenerateRequest) ([]types.Question, error)
}

// Purger invalidates the published copy of the bank.
type Purger interface {
	Purge(ctx context.Context) error
}

// History records finished runs.
type History interface {
	RecordRun(ctx context.Context, run *types.Run) error
}

// Options tunes the jobs.
type Options struct {
	Generation deduplication.Config
	Cleaning   deduplication.Config

	// Count is how many questions are requested per generation run.
	Count int
	// AvoidCount is how many stored question texts are shown to the model
	// as examples not to repeat.
	AvoidCount int
	Categories []string

	// CheckArchive adds archived questions to the duplicate corpus.
	CheckArchive bool

	Policy pool.Policy

	// Location renders the date in commit messages and reports.
	Location *time.Location
}

// DefaultOptions mirrors the production setup.
func DefaultOptions() Options {
	return Options{
		Generation: deduplication.GenerationConfig(),
		Cleaning:   deduplication.CleaningConfig(),
		Count:      ai.DefaultCount,
		AvoidCount: 30,
		Policy:     pool.RotatingPolicy{PoolSize: 100, ArchiveCap: 1000},
		Location:   time.Local,
	}
}

// Deps are the collaborators of a Runner. Generator is only needed by
// Generate; Purger and History are optional.
type Deps struct {
	Storage   storage.Storage
	Generator Generator
	Purger    Purger
	History   History
	Logger    zerolog.Logger
}

// Runner executes jobs one at a time.
type Runner struct {
	deps Deps
	opts Options
	now  func() time.Time

	mu sync.Mutex
}

// NewRunner creates a runner. Zero-valued options fall back to DefaultOptions.
func NewRunner(deps Deps, opts Options) *Runner {
	def := DefaultOptions()
	if opts.Generation == (deduplication.Config{}) {
		opts.Generation = def.Generation
	}
	if opts.Cleaning == (deduplication.Config{}) {
		opts.Cleaning = def.Cleaning
	}
	if opts.Count <= 0 {
		opts.Count = def.Count
	}
	if opts.AvoidCount < 0 {
		opts.AvoidCount = 0
	}
	if opts.Policy == nil {
		opts.Policy = def.Policy
	}
	if opts.Location == nil {
		opts.Location = def.Location
	}
	return &Runner{deps: deps, opts: opts, now: time.Now}
}

// lock takes the job lock without waiting.
func (r *Runner) lock() error {
	if !r.mu.TryLock() {
		return ErrJobRunning
	}
	return nil
}

func (r *Runner) newRun(job string, dryRun bool) *types.Run {
	return &types.Run{
		ID:        uuid.NewString(),
		Job:       job,
		StartedAt: r.now(),
		DryRun:    dryRun,
	}
}

// finish stamps the run and stores it. History failures are logged only.
func (r *Runner) finish(ctx context.Context, run *types.Run, err error) {
	run.FinishedAt = r.now()
	if err != nil {
		run.Error = err.Error()
	}
	if r.deps.History == nil {
		return
	}
	// The job context may already be canceled; the ledger write is short.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if herr := r.deps.History.RecordRun(recordCtx, run); herr != nil {
		r.deps.Logger.Warn().Err(herr).Str("run_id", run.ID).Msg("failed to record run history")
	}
}

func (r *Runner) purge(ctx context.Context) {
	if r.deps.Purger == nil {
		return
	}
	if err := r.deps.Purger.Purge(ctx); err != nil {
		r.deps.Logger.Warn().Err(err).Msg("cache purge failed (non-fatal)")
	}
}

func (r *Runner) date(t time.Time) string {
	return t.In(r.opts.Location).Format("02/01/2006")
}

func (r *Runner) logRejections(job string, rejections []types.Rejection) {
	for i := range rejections {
		rej := &rejections[i]
		ev := r.deps.Logger.Debug().
			Str("job", job).
			Str("reason", string(rej.Reason)).
			Int("index", rej.CandidateIndex).
			Str("question", rej.Candidate.Text).
			Str("matched", rej.Matched.Text)
		if rej.Reason == types.ReasonNearDuplicate {
			ev = ev.Int("similarity", rej.Percent())
		}
		ev.Msg("question rejected")
	}
}
