package jobs

import (
	"context"
	"strconv"
	"sync"

	"github.com/quizquotidien/quizgen/internal/ai"
	"github.com/quizquotidien/quizgen/internal/storage"
	"github.com/quizquotidien/quizgen/internal/types"
)

type memStorage struct {
	mu       sync.Mutex
	bank     *types.Bank
	revision int
	saves    []string
	loadErr  error
	saveErr  error
}

func newMemStorage(bank *types.Bank) *memStorage {
	return &memStorage{bank: bank, revision: 1}
}

func (m *memStorage) Load(ctx context.Context) (*storage.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return &storage.Snapshot{Bank: m.bank.Clone(), Revision: strconv.Itoa(m.revision)}, nil
}

func (m *memStorage) Save(ctx context.Context, bank *types.Bank, revision, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if revision != strconv.Itoa(m.revision) {
		return storage.ErrConflict
	}
	m.bank = bank.Clone()
	m.revision++
	m.saves = append(m.saves, message)
	return nil
}

func (m *memStorage) Location() string { return "memory" }

type fakeGenerator struct {
	questions []types.Question
	err       error
	requests  []ai.GenerateRequest
	// block, when set, is waited on before returning.
	block chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, req ai.GenerateRequest) ([]types.Question, error) {
	f.requests = append(f.requests, req)
	if f.block != nil {
		<-f.block
	}
	return f.questions, f.err
}

type fakePurger struct {
	calls int
	err   error
}

func (f *fakePurger) Purge(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakeHistory struct {
	runs []*types.Run
}

func (f *fakeHistory) RecordRun(ctx context.Context, run *types.Run) error {
	f.runs = append(f.runs, run)
	return nil
}

func q(text string) types.Question {
	return types.Question{
		Text:          text,
		Options:       []string{"A", "B", "C", "D"},
		CorrectAnswer: 0,
		Category:      "Culture",
	}
}
