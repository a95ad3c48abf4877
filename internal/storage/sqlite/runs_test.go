package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizquotidien/quizgen/internal/types"
)

func newTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := New(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestRecordAndListRuns(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory(t)
	base := time.Date(2026, 10, 1, 6, 0, 0, 0, time.UTC)

	gen := &types.Run{
		ID:                   "run-1",
		Job:                  types.JobGenerate,
		StartedAt:            base,
		FinishedAt:           base.Add(42 * time.Second),
		Committed:            true,
		Version:              12,
		Generated:            15,
		Accepted:             12,
		ExactDuplicates:      1,
		NearDuplicates:       1,
		IntraBatchDuplicates: 1,
		Rejections: []types.RunRejection{
			{Reason: types.ReasonExactDuplicate, Candidate: "Qui a écrit Candide ?", Matched: "Qui a écrit Candide?"},
			{Reason: types.ReasonNearDuplicate, Candidate: "Capitale de l'Italie ?", Matched: "La capitale de l'Italie ?", Percent: 88},
		},
	}
	clean := &types.Run{
		ID:         "run-2",
		Job:        types.JobClean,
		StartedAt:  base.Add(time.Hour),
		FinishedAt: base.Add(time.Hour + time.Second),
		DryRun:     true,
		Removed:    3,
		Error:      "loading bank: boom",
	}
	require.NoError(t, h.RecordRun(ctx, gen))
	require.NoError(t, h.RecordRun(ctx, clean))

	runs, err := h.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID, "newest first")
	assert.True(t, runs[0].DryRun)
	assert.False(t, runs[0].Succeeded())
	assert.Equal(t, 3, runs[0].Removed)

	got := runs[1]
	assert.Equal(t, types.JobGenerate, got.Job)
	assert.True(t, got.Committed)
	assert.Equal(t, 12, got.Version)
	assert.Equal(t, 42*time.Second, got.Duration())
	assert.True(t, base.Equal(got.StartedAt))
	assert.Empty(t, got.Rejections)

	runs, err = h.ListRuns(ctx, RunFilter{Job: types.JobGenerate, Limit: 5})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)

	rejections, err := h.GetRejections(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, gen.Rejections, rejections)
}

func TestRecordRunRejectsUnknownJob(t *testing.T) {
	h := newTestHistory(t)
	now := time.Now()
	err := h.RecordRun(context.Background(), &types.Run{ID: "x", Job: "rebuild", StartedAt: now, FinishedAt: now})
	assert.Error(t, err)

	runs, err := h.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestPruneRuns(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		start := base.AddDate(0, 0, i*10)
		require.NoError(t, h.RecordRun(ctx, &types.Run{
			ID: id, Job: types.JobClean, StartedAt: start, FinishedAt: start,
			Rejections: []types.RunRejection{{Reason: types.ReasonExactDuplicate, Candidate: "a", Matched: "a"}},
		}))
	}

	n, err := h.PruneRuns(ctx, base.AddDate(0, 0, 15))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	runs, err := h.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].ID)

	rejections, err := h.GetRejections(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, rejections, "rejections are deleted with their run")
}
