// Package config loads quizgen settings from a YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // schedule time zones on hosts without zoneinfo

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/quizquotidien/quizgen/internal/deduplication"
)

// Config holds all quizgen configuration. Secrets are never read from the
// YAML file; they come from the environment only.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Generation GenerationConfig `yaml:"generation"`
	Cleaning   CleaningConfig   `yaml:"cleaning"`
	Pool       PoolConfig       `yaml:"pool"`
	Purge      PurgeConfig      `yaml:"purge"`
	Server     ServerConfig     `yaml:"server"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	History    HistoryConfig    `yaml:"history"`
	Log        LogConfig        `yaml:"log"`
}

// StorageConfig selects where questions.json lives.
type StorageConfig struct {
	// Backend is "github" or "file".
	Backend string       `yaml:"backend"`
	GitHub  GitHubConfig `yaml:"github"`
	// File is the bank path for the file backend.
	File string `yaml:"file"`
}

// GitHubConfig locates the bank in a repository.
type GitHubConfig struct {
	Owner  string `yaml:"owner"`
	Repo   string `yaml:"repo"`
	Path   string `yaml:"path"`
	Branch string `yaml:"branch"`
	Token  string `yaml:"-"` // GITHUB_TOKEN
}

// GenerationConfig tunes the generate job.
type GenerationConfig struct {
	Model      string   `yaml:"model"`
	MaxTokens  int      `yaml:"max_tokens"`
	Count      int      `yaml:"count"`
	AvoidCount int      `yaml:"avoid_count"`
	Categories []string `yaml:"categories"`

	// Duplicate filter applied to generated questions.
	Threshold    float64 `yaml:"threshold"`
	Window       int     `yaml:"window"`
	SampleSize   int     `yaml:"sample_size"`
	CheckArchive bool    `yaml:"check_archive"`

	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`

	APIKey string `yaml:"-"` // ANTHROPIC_API_KEY
}

// Dedup returns the duplicate-filter configuration of the generate job.
func (g GenerationConfig) Dedup() deduplication.Config {
	return deduplication.Config{
		SimilarityThreshold: g.Threshold,
		SimilarityWindow:    g.Window,
		SampleSize:          g.SampleSize,
	}
}

// CleaningConfig tunes the clean job.
type CleaningConfig struct {
	Threshold  float64 `yaml:"threshold"`
	Window     int     `yaml:"window"`
	SampleSize int     `yaml:"sample_size"`
}

// Dedup returns the duplicate-filter configuration of the clean job.
func (c CleaningConfig) Dedup() deduplication.Config {
	return deduplication.Config{
		SimilarityThreshold: c.Threshold,
		SimilarityWindow:    c.Window,
		SampleSize:          c.SampleSize,
	}
}

// PoolConfig selects the pool policy applied after generation.
type PoolConfig struct {
	// Policy is "rotating", "cap" or "append".
	Policy     string `yaml:"policy"`
	Size       int    `yaml:"size"`        // rotating: active questions
	ArchiveCap int    `yaml:"archive_cap"` // rotating: archived questions kept
	MaxTotal   int    `yaml:"max_total"`   // cap: questions kept
}

// PurgeConfig configures the cache purge after a commit.
type PurgeConfig struct {
	SiteHost    string        `yaml:"site_host"` // VERCEL_URL
	FilePath    string        `yaml:"file_path"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	Token       string        `yaml:"-"` // VERCEL_TOKEN
}

// ServerConfig configures the HTTP trigger.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// RatePerMinute limits trigger requests; Burst is the bucket size.
	RatePerMinute float64 `yaml:"rate_per_minute"`
	Burst         int     `yaml:"burst"`
	GinMode       string  `yaml:"gin_mode"`
	Secret        string  `yaml:"-"` // CRON_SECRET
}

// ScheduleConfig holds cron expressions; an empty expression disables the job.
type ScheduleConfig struct {
	Generate string `yaml:"generate"`
	Clean    string `yaml:"clean"`
	Timezone string `yaml:"timezone"`
}

// HistoryConfig configures the run ledger; an empty path disables it.
type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "pretty" or "json"
}

// Default returns the production defaults.
func Default() *Config {
	gen := deduplication.GenerationConfig()
	clean := deduplication.CleaningConfig()
	return &Config{
		Storage: StorageConfig{
			Backend: "github",
			GitHub: GitHubConfig{
				Owner: "yannisparuta",
				Repo:  "quiz-quotidien",
				Path:  "questions.json",
			},
			File: "questions.json",
		},
		Generation: GenerationConfig{
			Model:      "claude-sonnet-4-20250514",
			MaxTokens:  3000,
			Count:      15,
			AvoidCount: 30,
			Threshold:  gen.SimilarityThreshold,
			Window:     gen.SimilarityWindow,
			SampleSize: gen.SampleSize,
			MaxRetries: 3,
			Timeout:    120 * time.Second,
		},
		Cleaning: CleaningConfig{
			Threshold:  clean.SimilarityThreshold,
			Window:     clean.SimilarityWindow,
			SampleSize: clean.SampleSize,
		},
		Pool: PoolConfig{
			Policy:     "rotating",
			Size:       100,
			ArchiveCap: 1000,
			MaxTotal:   1000,
		},
		Purge: PurgeConfig{
			SiteHost:    "www.quiz-quotidien.fr",
			FilePath:    "/questions.json",
			SettleDelay: 2 * time.Second,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			RatePerMinute: 6,
			Burst:         2,
			GinMode:       "release",
		},
		Schedule: ScheduleConfig{
			Generate: "0 6 * * *",
			Timezone: "Europe/Paris",
		},
		History: HistoryConfig{
			Path:          ".quizgen/history.db",
			RetentionDays: 90,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "pretty",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then .env, then the environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	}

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables.
func (c *Config) ApplyEnv() error {
	setString("GITHUB_TOKEN", &c.Storage.GitHub.Token)
	setString("ANTHROPIC_API_KEY", &c.Generation.APIKey)
	setString("VERCEL_TOKEN", &c.Purge.Token)
	setString("VERCEL_URL", &c.Purge.SiteHost)
	setString("CRON_SECRET", &c.Server.Secret)

	setString("QUIZGEN_STORAGE_BACKEND", &c.Storage.Backend)
	if repo := os.Getenv("QUIZGEN_GITHUB_REPO"); repo != "" {
		owner, name, ok := strings.Cut(repo, "/")
		if !ok || owner == "" || name == "" {
			return fmt.Errorf("invalid value for QUIZGEN_GITHUB_REPO: want owner/repo, got %q", repo)
		}
		c.Storage.GitHub.Owner, c.Storage.GitHub.Repo = owner, name
	}
	setString("QUIZGEN_GITHUB_PATH", &c.Storage.GitHub.Path)
	setString("QUIZGEN_GITHUB_BRANCH", &c.Storage.GitHub.Branch)
	setString("QUIZGEN_FILE", &c.Storage.File)

	setString("QUIZGEN_MODEL", &c.Generation.Model)
	if err := setInt("QUIZGEN_COUNT", &c.Generation.Count); err != nil {
		return err
	}
	if err := setInt("QUIZGEN_AVOID_COUNT", &c.Generation.AvoidCount); err != nil {
		return err
	}
	if err := setBool("QUIZGEN_CHECK_ARCHIVE", &c.Generation.CheckArchive); err != nil {
		return err
	}

	gen, err := deduplication.ConfigFromEnv("QUIZGEN_DEDUP", c.Generation.Dedup())
	if err != nil {
		return err
	}
	c.Generation.Threshold, c.Generation.Window, c.Generation.SampleSize = gen.SimilarityThreshold, gen.SimilarityWindow, gen.SampleSize

	clean, err := deduplication.ConfigFromEnv("QUIZGEN_CLEAN", c.Cleaning.Dedup())
	if err != nil {
		return err
	}
	c.Cleaning.Threshold, c.Cleaning.Window, c.Cleaning.SampleSize = clean.SimilarityThreshold, clean.SimilarityWindow, clean.SampleSize

	setString("QUIZGEN_POOL_POLICY", &c.Pool.Policy)
	if err := setInt("QUIZGEN_POOL_SIZE", &c.Pool.Size); err != nil {
		return err
	}

	setString("QUIZGEN_SERVER_ADDR", &c.Server.Addr)
	if port := os.Getenv("PORT"); port != "" && os.Getenv("QUIZGEN_SERVER_ADDR") == "" {
		c.Server.Addr = ":" + port
	}
	setString("QUIZGEN_SCHEDULE_GENERATE", &c.Schedule.Generate)
	setString("QUIZGEN_SCHEDULE_CLEAN", &c.Schedule.Clean)
	setString("QUIZGEN_SCHEDULE_TIMEZONE", &c.Schedule.Timezone)
	setString("QUIZGEN_HISTORY_PATH", &c.History.Path)
	setString("QUIZGEN_LOG_LEVEL", &c.Log.Level)
	setString("QUIZGEN_LOG_FORMAT", &c.Log.Format)
	return nil
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "github":
		g := c.Storage.GitHub
		if g.Owner == "" || g.Repo == "" || g.Path == "" {
			return fmt.Errorf("storage.github needs owner, repo and path")
		}
	case "file":
		if c.Storage.File == "" {
			return fmt.Errorf("storage.file is required for the file backend")
		}
	default:
		return fmt.Errorf("storage.backend must be github or file (got %q)", c.Storage.Backend)
	}

	if c.Generation.Count < 1 || c.Generation.Count > 50 {
		return fmt.Errorf("generation.count must be between 1 and 50 (got %d)", c.Generation.Count)
	}
	if c.Generation.AvoidCount < 0 {
		return fmt.Errorf("generation.avoid_count cannot be negative (got %d)", c.Generation.AvoidCount)
	}
	if c.Generation.MaxTokens < 256 {
		return fmt.Errorf("generation.max_tokens must be at least 256 (got %d)", c.Generation.MaxTokens)
	}
	if c.Generation.MaxRetries < 0 {
		return fmt.Errorf("generation.max_retries cannot be negative (got %d)", c.Generation.MaxRetries)
	}
	if err := c.Generation.Dedup().Validate(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	if err := c.Cleaning.Dedup().Validate(); err != nil {
		return fmt.Errorf("cleaning: %w", err)
	}

	switch c.Pool.Policy {
	case "rotating":
		if c.Pool.Size < 1 {
			return fmt.Errorf("pool.size must be positive for the rotating policy (got %d)", c.Pool.Size)
		}
		if c.Pool.ArchiveCap < 0 {
			return fmt.Errorf("pool.archive_cap cannot be negative (got %d)", c.Pool.ArchiveCap)
		}
	case "cap":
		if c.Pool.MaxTotal < 1 {
			return fmt.Errorf("pool.max_total must be positive for the cap policy (got %d)", c.Pool.MaxTotal)
		}
	case "append":
	default:
		return fmt.Errorf("pool.policy must be rotating, cap or append (got %q)", c.Pool.Policy)
	}

	if c.Purge.SettleDelay < 0 {
		return fmt.Errorf("purge.settle_delay cannot be negative")
	}
	if c.Server.RatePerMinute < 0 || c.Server.Burst < 0 {
		return fmt.Errorf("server rate limit cannot be negative")
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days cannot be negative (got %d)", c.History.RetentionDays)
	}
	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			return fmt.Errorf("schedule.timezone: %w", err)
		}
	}
	return nil
}

// Location returns the schedule time zone, defaulting to local time.
func (c *Config) Location() *time.Location {
	if c.Schedule.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setString(key string, dest *string) {
	if v := os.Getenv(key); v != "" {
		*dest = v
	}
}

func setInt(key string, dest *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = n
	return nil
}

func setBool(key string, dest *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = b
	return nil
}
