// Package ai asks a Claude model for new quiz questions.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/quizquotidien/quizgen/internal/types"
)

const (
	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultMaxTokens leaves room for fifteen questions with four options each.
	DefaultMaxTokens = 3000

	// DefaultCount is how many questions one run asks for.
	DefaultCount = 15
)

// ErrNoQuestions is returned when the model answered but no usable question
// could be extracted.
var ErrNoQuestions = errors.New("model returned no valid questions")

// Config configures the generator.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string
	Retry   RetryConfig
}

// GenerateRequest describes one batch.
type GenerateRequest struct {
	Count int
	// Avoid lists question texts the model is told not to repeat.
	Avoid      []string
	Categories []string
}

// Generator produces candidate questions.
type Generator struct {
	client    anthropic.Client
	model     string
	maxTokens int

	retry          RetryConfig
	circuitBreaker *CircuitBreaker
	concurrencySem *semaphore.Weighted
}

// NewGenerator creates a generator. The API key is required.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for question generation")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}

	// Retries are handled here, with the circuit breaker in the loop.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	g := &Generator{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		retry:     cfg.Retry,
	}
	if cfg.Retry.CircuitBreakerEnabled {
		g.circuitBreaker = NewCircuitBreaker(cfg.Retry.FailureThreshold, cfg.Retry.SuccessThreshold, cfg.Retry.OpenTimeout)
	}
	if cfg.Retry.MaxConcurrentCalls > 0 {
		g.concurrencySem = semaphore.NewWeighted(int64(cfg.Retry.MaxConcurrentCalls))
	}
	return g, nil
}

// Generate asks the model for req.Count questions. Questions that fail
// validation are dropped; ErrNoQuestions is returned when none survive.
// Returned questions carry no id or timestamp.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) ([]types.Question, error) {
	if req.Count <= 0 {
		req.Count = DefaultCount
	}
	prompt := buildGenerationPrompt(req.Count, req.Avoid, req.Categories)

	text, err := g.callModel(ctx, "generation", prompt)
	if err != nil {
		return nil, err
	}

	questions, err := parseQuestions(text)
	if err != nil {
		log.Error().Str("preview", truncate(text, 200)).Msg("could not parse generated questions")
		return nil, fmt.Errorf("parsing generated questions: %w", err)
	}

	valid := g.keepValid(questions)
	log.Info().
		Int("requested", req.Count).
		Int("returned", len(questions)).
		Int("valid", len(valid)).
		Msg("questions generated")

	if len(valid) == 0 {
		return nil, ErrNoQuestions
	}
	return valid, nil
}

func (g *Generator) callModel(ctx context.Context, operation, prompt string) (string, error) {
	start := time.Now()

	var response *anthropic.Message
	err := g.retryWithBackoff(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := g.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(g.model),
			MaxTokens: int64(g.maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	log.Debug().
		Str("operation", operation).
		Str("model", g.model).
		Int64("input_tokens", response.Usage.InputTokens).
		Int64("output_tokens", response.Usage.OutputTokens).
		Dur("duration", time.Since(start)).
		Msg("model call completed")

	return text.String(), nil
}

type generationResponse struct {
	Questions []types.Question `json:"questions"`
}

// parseQuestions accepts {"questions": [...]} and, failing that, a bare array.
func parseQuestions(text string) ([]types.Question, error) {
	resp, err := ParseJSON[generationResponse](text)
	if err == nil && resp.Questions != nil {
		return resp.Questions, nil
	}
	arr, arrErr := ParseJSON[[]types.Question](text)
	if arrErr == nil {
		return arr, nil
	}
	if err == nil {
		return nil, fmt.Errorf(`response has no "questions" array`)
	}
	return nil, err
}

// keepValid trims and validates each question. Ids and timestamps coming
// from the model are discarded.
func (g *Generator) keepValid(questions []types.Question) []types.Question {
	valid := make([]types.Question, 0, len(questions))
	for i, q := range questions {
		q.Text = strings.TrimSpace(q.Text)
		q.Category = strings.TrimSpace(q.Category)
		for j := range q.Options {
			q.Options[j] = strings.TrimSpace(q.Options[j])
		}
		q.ID = ""
		q.AddedAt = ""

		if err := q.Validate(); err != nil {
			log.Warn().Err(err).Int("index", i).Str("question", q.Text).Msg("dropping invalid generated question")
			continue
		}
		valid = append(valid, q)
	}
	return valid
}
