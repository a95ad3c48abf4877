package jobs

import (
	"context"
	"fmt"

	"github.com/quizquotidien/quizgen/internal/deduplication"
	"github.com/quizquotidien/quizgen/internal/types"
)

// CleanReport is the outcome of a cleaning run.
type CleanReport struct {
	Message            string                          `json:"message"`
	OriginalCount      int                             `json:"original_count"`
	CleanedCount       int                             `json:"cleaned_count"`
	DuplicatesRemoved  int                             `json:"duplicates_removed"`
	SimilarRemoved     int                             `json:"similar_removed"`
	DuplicatesExamples []deduplication.DuplicateSample `json:"duplicates_examples"`
	SimilarExamples    []deduplication.SimilarSample   `json:"similar_examples"`
	ComparisonsMade    int                             `json:"comparisons_made"`
	Version            int                             `json:"version,omitempty"`
	Date               string                          `json:"date"`
	Committed          bool                            `json:"committed"`
	DryRun             bool                            `json:"dryRun,omitempty"`
	RunID              string                          `json:"runId"`
}

// CleanOptions tunes one cleaning run.
type CleanOptions struct {
	DryRun bool
}

// Clean removes exact and near duplicates from the active questions and
// commits the result. Archived questions and unknown document keys are kept
// as they are.
func (r *Runner) Clean(ctx context.Context, opts CleanOptions) (*CleanReport, error) {
	if err := r.lock(); err != nil {
		return nil, err
	}
	defer r.mu.Unlock()

	run := r.newRun(types.JobClean, opts.DryRun)
	report, err := r.clean(ctx, opts, run)
	r.finish(ctx, run, err)
	if err != nil {
		return nil, err
	}
	report.RunID = run.ID
	return report, nil
}

func (r *Runner) clean(ctx context.Context, opts CleanOptions, run *types.Run) (*CleanReport, error) {
	log := r.deps.Logger.With().Str("job", types.JobClean).Str("run_id", run.ID).Logger()

	snap, err := r.deps.Storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading question bank: %w", err)
	}
	log.Info().
		Str("location", r.deps.Storage.Location()).
		Int("questions", len(snap.Bank.Questions)).
		Msg("question bank loaded")

	res := deduplication.Clean(snap.Bank.Questions, r.opts.Cleaning)
	r.logRejections(types.JobClean, res.Rejections)
	summary := deduplication.Summarize(res, r.opts.Cleaning.SampleSize)

	removed := res.Stats.RejectedCount()
	run.Generated = res.Stats.TotalCandidates
	run.Accepted = res.Stats.AcceptedCount
	run.Removed = removed
	run.ExactDuplicates = res.Stats.ExactDuplicateCount
	run.NearDuplicates = res.Stats.NearDuplicateCount
	run.Rejections = types.NewRunRejections(res.Rejections)

	now := r.now()
	report := &CleanReport{
		OriginalCount:      res.Stats.TotalCandidates,
		CleanedCount:       res.Stats.AcceptedCount,
		DuplicatesRemoved:  res.Stats.ExactDuplicateCount,
		SimilarRemoved:     res.Stats.NearDuplicateCount,
		DuplicatesExamples: summary.DuplicatesExamples,
		SimilarExamples:    summary.SimilarExamples,
		ComparisonsMade:    res.Stats.ComparisonsMade,
		Date:               r.date(now),
		DryRun:             opts.DryRun,
	}

	log.Info().
		Int("original", report.OriginalCount).
		Int("kept", report.CleanedCount).
		Int("duplicates", report.DuplicatesRemoved).
		Int("similar", report.SimilarRemoved).
		Msg("duplicate analysis done")

	if removed == 0 {
		report.Message = "Aucun doublon détecté !"
		return report, nil
	}

	bank := snap.Bank.Clone()
	bank.Questions = res.Accepted
	bank.Version = snap.Bank.NextVersion()
	bank.LastCleaned = types.FormatTimestamp(now)
	report.Version = bank.Version
	run.Version = bank.Version
	report.Message = fmt.Sprintf("%d doublons supprimés", removed)

	if opts.DryRun {
		report.Message += " (simulation, rien n'a été enregistré)"
		return report, nil
	}

	message := fmt.Sprintf("🧹 Nettoyage automatique : %d doublons supprimés", removed)
	if err := r.deps.Storage.Save(ctx, bank, snap.Revision, message); err != nil {
		return nil, fmt.Errorf("saving question bank: %w", err)
	}
	report.Committed = true
	run.Committed = true
	log.Info().Str("commit_message", message).Int("version", bank.Version).Msg("question bank saved")

	r.purge(ctx)
	return report, nil
}
