package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/quizquotidien/quizgen/internal/types"
)

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RecordRun stores a run and its rejections in one transaction.
func (h *History) RecordRun(ctx context.Context, run *types.Run) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, job, started_at, finished_at, dry_run, committed, version,
			generated, accepted, removed,
			exact_duplicates, near_duplicates, intra_batch_duplicates, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Job,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.DryRun,
		run.Committed,
		run.Version,
		run.Generated,
		run.Accepted,
		run.Removed,
		run.ExactDuplicates,
		run.NearDuplicates,
		run.IntraBatchDuplicates,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to store run (job=%s, id=%s): %w", run.Job, run.ID, err)
	}

	for _, rej := range run.Rejections {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rejections (run_id, reason, candidate, matched, percent)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, string(rej.Reason), rej.Candidate, rej.Matched, rej.Percent)
		if err != nil {
			return fmt.Errorf("failed to store rejection for run %s: %w", run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return nil
}

// RunFilter selects runs for ListRuns.
type RunFilter struct {
	Job   string // empty for all jobs
	Limit int    // 0 for no limit
}

// ListRuns returns runs newest first. Rejections are not loaded; use
// GetRejections for the details of one run.
func (h *History) ListRuns(ctx context.Context, filter RunFilter) ([]*types.Run, error) {
	query := `
		SELECT id, job, started_at, finished_at, dry_run, committed, version,
		       generated, accepted, removed,
		       exact_duplicates, near_duplicates, intra_batch_duplicates, error
		FROM runs
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.Job != "" {
		query += " AND job = ?"
		args = append(args, filter.Job)
	}
	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*types.Run
	for rows.Next() {
		run := &types.Run{}
		var startedAt, finishedAt string
		err := rows.Scan(
			&run.ID,
			&run.Job,
			&startedAt,
			&finishedAt,
			&run.DryRun,
			&run.Committed,
			&run.Version,
			&run.Generated,
			&run.Accepted,
			&run.Removed,
			&run.ExactDuplicates,
			&run.NearDuplicates,
			&run.IntraBatchDuplicates,
			&run.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("run %s: bad started_at %q: %w", run.ID, startedAt, err)
		}
		if run.FinishedAt, err = time.Parse(timeLayout, finishedAt); err != nil {
			return nil, fmt.Errorf("run %s: bad finished_at %q: %w", run.ID, finishedAt, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// GetRejections returns the rejections recorded for a run, in insertion order.
func (h *History) GetRejections(ctx context.Context, runID string) ([]types.RunRejection, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT reason, candidate, matched, percent
		FROM rejections
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rejections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []types.RunRejection{}
	for rows.Next() {
		var rej types.RunRejection
		var reason string
		if err := rows.Scan(&reason, &rej.Candidate, &rej.Matched, &rej.Percent); err != nil {
			return nil, fmt.Errorf("failed to scan rejection: %w", err)
		}
		rej.Reason = types.RejectionReason(reason)
		out = append(out, rej)
	}
	return out, rows.Err()
}

// PruneRuns deletes runs that started before cutoff, together with their
// rejections. It returns the number of runs deleted.
func (h *History) PruneRuns(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := h.db.ExecContext(ctx,
		"DELETE FROM runs WHERE started_at < ?",
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}
	return int(n), nil
}
