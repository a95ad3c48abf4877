package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizquotidien/quizgen/internal/ai"
	"github.com/quizquotidien/quizgen/internal/pool"
	"github.com/quizquotidien/quizgen/internal/storage"
	"github.com/quizquotidien/quizgen/internal/types"
)

var fixedNow = time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)

type harness struct {
	store   *memStorage
	gen     *fakeGenerator
	purger  *fakePurger
	history *fakeHistory
	runner  *Runner
}

func newHarness(bank *types.Bank, opts Options) *harness {
	h := &harness{
		store:   newMemStorage(bank),
		gen:     &fakeGenerator{},
		purger:  &fakePurger{},
		history: &fakeHistory{},
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	h.runner = NewRunner(Deps{
		Storage:   h.store,
		Generator: h.gen,
		Purger:    h.purger,
		History:   h.history,
		Logger:    zerolog.Nop(),
	}, opts)
	h.runner.now = func() time.Time { return fixedNow }
	return h
}

func storedBank() *types.Bank {
	return &types.Bank{
		Questions: []types.Question{
			q("Quelle est la capitale de la France ?"),
			q("Qui a peint la Joconde ?"),
			q("Combien de continents y a-t-il sur Terre ?"),
		},
		Version: 4,
		Extra:   map[string]json.RawMessage{"theme": json.RawMessage(`"automne"`)},
	}
}

func TestGenerateCommitsUniqueQuestions(t *testing.T) {
	h := newHarness(storedBank(), Options{AvoidCount: 2})
	h.gen.questions = []types.Question{
		q("Quelle est la capitale de la France?"),          // exact
		q("Qui a peint la Joconde ??"),                     // exact after normalization
		q("Quel est le plus long fleuve d'Europe ?"),       // accepted
		q("Combien de continents y a-t-il sur la Terre ?"), // near
		q("Quel est le plus long fleuve d'Europe !"),       // intra batch
		q("Qui a écrit Les Misérables ?"),                  // accepted
	}

	report, err := h.runner.Generate(context.Background(), GenerateOptions{})
	require.NoError(t, err)

	assert.True(t, report.Committed)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 2, report.DuplicatesAvoided)
	assert.Equal(t, 1, report.SimilarAvoided)
	assert.Equal(t, 1, report.IntraBatchAvoided)
	assert.Equal(t, 6, report.TotalGenerated)
	assert.Equal(t, 5, report.Version)
	assert.Equal(t, 5, report.TotalInDatabase)
	assert.Equal(t, "18/10/2026", report.Date)
	assert.NotEmpty(t, report.RunID)

	require.Equal(t, []string{"🤖 Ajout automatique de 2 questions uniques - 18/10/2026"}, h.store.saves)
	saved := h.store.bank
	assert.Equal(t, 5, saved.Version)
	assert.Equal(t, "2026-10-18T06:00:00.000Z", saved.LastUpdated)
	assert.Equal(t, 100, saved.PoolSize)
	assert.Equal(t, json.RawMessage(`"automne"`), saved.Extra["theme"])
	assert.Equal(t, []string{
		"Quel est le plus long fleuve d'Europe ?",
		"Qui a écrit Les Misérables ?",
	}, types.Texts(saved.Questions[:2]), "new questions first")
	for _, sq := range saved.Questions {
		assert.NotEmpty(t, sq.ID)
		assert.NotEmpty(t, sq.AddedAt)
	}
	assert.True(t, strings.HasPrefix(saved.Questions[2].ID, "q_legacy_"))

	require.Len(t, h.gen.requests, 1)
	assert.Equal(t, ai.DefaultCount, h.gen.requests[0].Count)
	assert.Equal(t, []string{"Qui a peint la Joconde ?", "Combien de continents y a-t-il sur Terre ?"}, h.gen.requests[0].Avoid)

	assert.Equal(t, 1, h.purger.calls)

	require.Len(t, h.history.runs, 1)
	run := h.history.runs[0]
	assert.Equal(t, types.JobGenerate, run.Job)
	assert.True(t, run.Committed)
	assert.Equal(t, 6, run.Generated)
	assert.Equal(t, 2, run.Accepted)
	assert.Len(t, run.Rejections, 4)
	assert.True(t, run.Succeeded())
}

func TestGenerateNothingUnique(t *testing.T) {
	h := newHarness(storedBank(), Options{})
	h.gen.questions = []types.Question{q("Qui a peint la Joconde ?")}

	report, err := h.runner.Generate(context.Background(), GenerateOptions{})
	require.NoError(t, err)

	assert.False(t, report.Committed)
	assert.Zero(t, report.Added)
	assert.Equal(t, 1, report.DuplicatesAvoided)
	assert.Equal(t, 3, report.TotalInDatabase)
	assert.Empty(t, h.store.saves)
	assert.Zero(t, h.purger.calls)
	assert.Equal(t, 4, h.store.bank.Version)
}

func TestGenerateDryRun(t *testing.T) {
	h := newHarness(storedBank(), Options{})
	h.gen.questions = []types.Question{q("Quel est le symbole chimique de l'or ?")}

	report, err := h.runner.Generate(context.Background(), GenerateOptions{DryRun: true})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.False(t, report.Committed)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 5, report.Version)
	assert.Empty(t, h.store.saves)
	assert.Zero(t, h.purger.calls)
	assert.True(t, h.history.runs[0].DryRun)
}

func TestGenerateWritesNothingOnFailure(t *testing.T) {
	h := newHarness(storedBank(), Options{})
	h.gen.err = ai.ErrNoQuestions

	_, err := h.runner.Generate(context.Background(), GenerateOptions{})
	require.ErrorIs(t, err, ai.ErrNoQuestions)
	assert.Empty(t, h.store.saves)

	require.Len(t, h.history.runs, 1)
	assert.Contains(t, h.history.runs[0].Error, "generating questions")
}

func TestGenerateConflict(t *testing.T) {
	h := newHarness(storedBank(), Options{})
	h.gen.questions = []types.Question{q("Quel est le symbole chimique de l'or ?")}
	h.store.saveErr = fmt.Errorf("remote moved: %w", storage.ErrConflict)

	_, err := h.runner.Generate(context.Background(), GenerateOptions{})
	assert.ErrorIs(t, err, storage.ErrConflict)
	assert.Zero(t, h.purger.calls)
}

func TestGenerateCheckArchive(t *testing.T) {
	bank := storedBank()
	bank.ArchivedQuestions = []types.Question{q("Quel est le symbole chimique de l'or ?")}
	candidates := []types.Question{q("Quel est le symbole chimique de l'or ?")}

	without := newHarness(bank.Clone(), Options{})
	without.gen.questions = candidates
	report, err := without.runner.Generate(context.Background(), GenerateOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)

	with := newHarness(bank.Clone(), Options{CheckArchive: true})
	with.gen.questions = candidates
	report, err = with.runner.Generate(context.Background(), GenerateOptions{DryRun: true})
	require.NoError(t, err)
	assert.Zero(t, report.Added)
	assert.Equal(t, 1, report.DuplicatesAvoided)
}

func TestGenerateCapPolicy(t *testing.T) {
	h := newHarness(storedBank(), Options{Policy: pool.CapPolicy{MaxTotal: 3}})
	h.gen.questions = []types.Question{q("Quel est le symbole chimique de l'or ?")}

	report, err := h.runner.Generate(context.Background(), GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, []string{
		"Qui a peint la Joconde ?",
		"Combien de continents y a-t-il sur Terre ?",
		"Quel est le symbole chimique de l'or ?",
	}, types.Texts(h.store.bank.Questions))
	assert.Zero(t, h.store.bank.PoolSize)
}

func TestGenerateRequiresGenerator(t *testing.T) {
	r := NewRunner(Deps{Storage: newMemStorage(storedBank()), Logger: zerolog.Nop()}, Options{})
	_, err := r.Generate(context.Background(), GenerateOptions{})
	assert.ErrorContains(t, err, "needs a question generator")
}

func TestJobsDoNotOverlap(t *testing.T) {
	h := newHarness(storedBank(), Options{})
	h.gen.block = make(chan struct{})
	h.gen.questions = []types.Question{q("Quel est le symbole chimique de l'or ?")}

	done := make(chan error, 1)
	go func() {
		_, err := h.runner.Generate(context.Background(), GenerateOptions{})
		done <- err
	}()

	require.Eventually(t, func() bool {
		_, err := h.runner.Clean(context.Background(), CleanOptions{})
		return errors.Is(err, ErrJobRunning)
	}, time.Second, 5*time.Millisecond)

	close(h.gen.block)
	require.NoError(t, <-done)

	_, err := h.runner.Clean(context.Background(), CleanOptions{})
	assert.NoError(t, err)
}

func TestCleanRemovesDuplicates(t *testing.T) {
	bank := &types.Bank{
		Questions: []types.Question{
			q("Quelle est la capitale de l'Italie ?"),
			q("Quel est le plus grand océan ?"),
			q("Quelle est la capitale de l'Italie?"),
			q("Quel est le plus grand oséan ?"),
			q("Qui a inventé le téléphone ?"),
		},
		ArchivedQuestions: []types.Question{q("Archivée ?")},
		PoolSize:          100,
		Version:           9,
	}
	h := newHarness(bank, Options{})

	report, err := h.runner.Clean(context.Background(), CleanOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, report.OriginalCount)
	assert.Equal(t, 3, report.CleanedCount)
	assert.Equal(t, 1, report.DuplicatesRemoved)
	assert.Equal(t, 1, report.SimilarRemoved)
	assert.Equal(t, 10, report.Version)
	assert.Equal(t, "2 doublons supprimés", report.Message)
	require.Len(t, report.DuplicatesExamples, 1)
	assert.Equal(t, 2, report.DuplicatesExamples[0].Index)
	require.Len(t, report.SimilarExamples, 1)
	assert.Equal(t, "Quel est le plus grand océan ?", report.SimilarExamples[0].SimilarTo)

	require.Equal(t, []string{"🧹 Nettoyage automatique : 2 doublons supprimés"}, h.store.saves)
	saved := h.store.bank
	assert.Equal(t, []string{
		"Quelle est la capitale de l'Italie ?",
		"Quel est le plus grand océan ?",
		"Qui a inventé le téléphone ?",
	}, types.Texts(saved.Questions))
	assert.Len(t, saved.ArchivedQuestions, 1, "archive is kept")
	assert.Equal(t, 100, saved.PoolSize)
	assert.Equal(t, "2026-10-18T06:00:00.000Z", saved.LastCleaned)
	assert.Equal(t, 1, h.purger.calls)

	run := h.history.runs[0]
	assert.Equal(t, types.JobClean, run.Job)
	assert.Equal(t, 2, run.Removed)
}

func TestCleanNothingToDo(t *testing.T) {
	h := newHarness(storedBank(), Options{})

	report, err := h.runner.Clean(context.Background(), CleanOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Aucun doublon détecté !", report.Message)
	assert.False(t, report.Committed)
	assert.Equal(t, 3, report.CleanedCount)
	assert.Empty(t, h.store.saves)
}

func TestCleanUnversionedBank(t *testing.T) {
	bank := &types.Bank{Questions: []types.Question{q("Même question ?"), q("Même question ?")}}
	h := newHarness(bank, Options{})

	report, err := h.runner.Clean(context.Background(), CleanOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Version)
}

func TestCleanLoadFailure(t *testing.T) {
	h := newHarness(storedBank(), Options{})
	h.store.loadErr = storage.ErrNotFound

	_, err := h.runner.Clean(context.Background(), CleanOptions{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorContains(t, err, "loading question bank")
}

func TestPurgeFailureIsNotFatal(t *testing.T) {
	h := newHarness(&types.Bank{Questions: []types.Question{q("Doublon ?"), q("Doublon ?")}}, Options{})
	h.purger.err = errors.New("purge API down")

	report, err := h.runner.Clean(context.Background(), CleanOptions{})
	require.NoError(t, err)
	assert.True(t, report.Committed)
}

func TestAvoidList(t *testing.T) {
	qs := []types.Question{q("a"), q("b"), q("c")}
	assert.Equal(t, []string{"b", "c"}, avoidList(qs, 2))
	assert.Equal(t, []string{"a", "b", "c"}, avoidList(qs, 30))
	assert.Nil(t, avoidList(qs, 0))
}

func TestGenerateReportJSON(t *testing.T) {
	h := newHarness(storedBank(), Options{})
	h.gen.questions = []types.Question{q("Quel est le symbole chimique de l'or ?")}

	report, err := h.runner.Generate(context.Background(), GenerateOptions{})
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"added", "duplicatesAvoided", "similarAvoided", "totalGenerated", "totalInDatabase", "version", "date", "samples"} {
		assert.Contains(t, decoded, key)
	}
}
