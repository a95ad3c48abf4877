package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/quizquotidien/quizgen/internal/storage"
	"github.com/quizquotidien/quizgen/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "questions.json")
	s := New(path)

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, storage.ErrNotFound)

	bank := &types.Bank{Questions: []types.Question{{Text: "Qui a peint la Joconde ?"}}, Version: 1}
	require.NoError(t, s.Save(ctx, bank, "", "initial"))

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Qui a peint la Joconde ?", snap.Bank.Questions[0].Text)
	assert.Len(t, snap.Revision, 64)

	snap.Bank.Version = 2
	require.NoError(t, s.Save(ctx, snap.Bank, snap.Revision, "bump"))

	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Bank.Version)
	assert.NotEqual(t, snap.Revision, again.Revision)
}

func TestStoreRejectsStaleRevision(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "questions.json")
	s := New(path)
	require.NoError(t, s.Save(ctx, &types.Bank{Questions: []types.Question{{Text: "a"}}}, "", "initial"))

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = s.Save(ctx, &types.Bank{Questions: []types.Question{{Text: "b"}}}, "stale", "update")
	require.ErrorIs(t, err, storage.ErrConflict)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed save leaves the file untouched")

	require.NoError(t, s.Save(ctx, snap.Bank, snap.Revision, "same"))
}

func TestStoreLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := New(path).Load(context.Background())
	assert.ErrorContains(t, err, "parsing question bank")
}

func TestStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "questions.json"))
	require.NoError(t, s.Save(context.Background(), &types.Bank{}, "", "initial"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "questions.json", entries[0].Name())
}
