package jobs

import (
	"context"
	"fmt"

	"github.com/quizquotidien/quizgen/internal/ai"
	"github.com/quizquotidien/quizgen/internal/deduplication"
	"github.com/quizquotidien/quizgen/internal/pool"
	"github.com/quizquotidien/quizgen/internal/types"
)

// GenerateReport is the outcome of a generation run.
type GenerateReport struct {
	Message string `json:"message"`
	deduplication.Summary

	TotalInDatabase int    `json:"totalInDatabase"`
	ArchivedCount   int    `json:"archivedCount"`
	Dropped         int    `json:"dropped"`
	Version         int    `json:"version,omitempty"`
	Date            string `json:"date"`
	Committed       bool   `json:"committed"`
	DryRun          bool   `json:"dryRun,omitempty"`
	RunID           string `json:"runId"`
}

// GenerateOptions tunes one generation run.
type GenerateOptions struct {
	// DryRun does everything except writing the bank and purging the cache.
	DryRun bool
}

// Generate asks for new questions, drops duplicates of stored questions and
// commits the survivors. Nothing is written when no question survives or
// when any step fails.
func (r *Runner) Generate(ctx context.Context, opts GenerateOptions) (*GenerateReport, error) {
	if err := r.lock(); err != nil {
		return nil, err
	}
	defer r.mu.Unlock()

	run := r.newRun(types.JobGenerate, opts.DryRun)
	report, err := r.generate(ctx, opts, run)
	r.finish(ctx, run, err)
	if err != nil {
		return nil, err
	}
	report.RunID = run.ID
	return report, nil
}

func (r *Runner) generate(ctx context.Context, opts GenerateOptions, run *types.Run) (*GenerateReport, error) {
	if r.deps.Generator == nil {
		return nil, fmt.Errorf("generate job needs a question generator")
	}
	log := r.deps.Logger.With().Str("job", types.JobGenerate).Str("run_id", run.ID).Logger()

	snap, err := r.deps.Storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading question bank: %w", err)
	}
	bank := snap.Bank.Clone()
	log.Info().
		Str("location", r.deps.Storage.Location()).
		Int("questions", len(bank.Questions)).
		Int("archived", len(bank.ArchivedQuestions)).
		Msg("question bank loaded")

	bank.Questions = pool.BackfillLegacy(bank.Questions)

	candidates, err := r.deps.Generator.Generate(ctx, ai.GenerateRequest{
		Count:      r.opts.Count,
		Avoid:      avoidList(bank.Questions, r.opts.AvoidCount),
		Categories: r.opts.Categories,
	})
	if err != nil {
		return nil, fmt.Errorf("generating questions: %w", err)
	}

	corpus := bank.Questions
	if r.opts.CheckArchive && len(bank.ArchivedQuestions) > 0 {
		corpus = make([]types.Question, 0, len(bank.ArchivedQuestions)+len(bank.Questions))
		corpus = append(corpus, bank.ArchivedQuestions...)
		corpus = append(corpus, bank.Questions...)
	}

	res := deduplication.Filter(candidates, corpus, r.opts.Generation)
	r.logRejections(types.JobGenerate, res.Rejections)

	run.Generated = res.Stats.TotalCandidates
	run.Accepted = res.Stats.AcceptedCount
	run.ExactDuplicates = res.Stats.ExactDuplicateCount
	run.NearDuplicates = res.Stats.NearDuplicateCount
	run.IntraBatchDuplicates = res.Stats.IntraBatchDuplicateCount
	run.Rejections = types.NewRunRejections(res.Rejections)

	now := r.now()
	report := &GenerateReport{
		Summary: deduplication.Summarize(res, r.opts.Generation.SampleSize),
		Date:    r.date(now),
		DryRun:  opts.DryRun,
	}

	log.Info().
		Int("accepted", res.Stats.AcceptedCount).
		Int("exact_duplicates", res.Stats.ExactDuplicateCount).
		Int("near_duplicates", res.Stats.NearDuplicateCount).
		Int("intra_batch_duplicates", res.Stats.IntraBatchDuplicateCount).
		Int("generated", res.Stats.TotalCandidates).
		Int("comparisons", res.Stats.ComparisonsMade).
		Msg("generated questions filtered")

	if len(res.Accepted) == 0 {
		report.Message = "Aucune nouvelle question unique (toutes étaient des doublons)"
		report.TotalInDatabase = len(snap.Bank.Questions)
		report.ArchivedCount = len(snap.Bank.ArchivedQuestions)
		log.Warn().Msg("no unique question generated, nothing to commit")
		return report, nil
	}

	added := pool.AssignIDs(res.Accepted, now)
	outcome := r.opts.Policy.Apply(bank.Questions, bank.ArchivedQuestions, added)

	bank.Questions = outcome.Active
	bank.ArchivedQuestions = outcome.Archived
	if outcome.PoolSize > 0 {
		bank.PoolSize = outcome.PoolSize
	}
	bank.Version = snap.Bank.NextVersion()
	bank.LastUpdated = types.FormatTimestamp(now)

	report.Message = fmt.Sprintf("%d questions uniques ajoutées avec succès", len(added))
	report.TotalInDatabase = len(bank.Questions)
	report.ArchivedCount = len(bank.ArchivedQuestions)
	report.Dropped = outcome.Dropped
	report.Version = bank.Version
	run.Version = bank.Version

	log.Info().
		Str("policy", r.opts.Policy.Name()).
		Int("active", len(bank.Questions)).
		Int("archived", len(bank.ArchivedQuestions)).
		Int("dropped", outcome.Dropped).
		Int("version", bank.Version).
		Msg("pool updated")

	if opts.DryRun {
		report.Message += " (simulation, rien n'a été enregistré)"
		return report, nil
	}

	message := fmt.Sprintf("🤖 Ajout automatique de %d questions uniques - %s", len(added), report.Date)
	if err := r.deps.Storage.Save(ctx, bank, snap.Revision, message); err != nil {
		return nil, fmt.Errorf("saving question bank: %w", err)
	}
	report.Committed = true
	run.Committed = true
	log.Info().Str("commit_message", message).Msg("question bank saved")

	r.purge(ctx)
	return report, nil
}

// avoidList returns the texts of the last n questions.
func avoidList(questions []types.Question, n int) []string {
	if n <= 0 {
		return nil
	}
	start := max(len(questions)-n, 0)
	return types.Texts(questions[start:])
}
