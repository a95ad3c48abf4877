package deduplication

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds configuration for one duplicate-detection call site.
type Config struct {
	// SimilarityThreshold is the score (0.0-1.0) strictly above which a
	// candidate is rejected as a near duplicate.
	// Generation default: 0.85. Cleaning default: 0.90.
	SimilarityThreshold float64

	// SimilarityWindow is how many of the most recent corpus entries are
	// compared for near duplicates. 0 compares against the whole corpus.
	// Exact matches are always checked against the whole corpus.
	// Generation default: 100. Cleaning default: 0.
	SimilarityWindow int

	// SampleSize bounds how many examples of each rejection category are
	// kept in a Summary.
	// Generation default: 3. Cleaning default: 5.
	SampleSize int
}

// GenerationConfig returns the configuration used when filtering freshly
// generated questions against the stored bank.
func GenerationConfig() Config {
	return Config{
		SimilarityThreshold: 0.85,
		SimilarityWindow:    100,
		SampleSize:          3,
	}
}

// CleaningConfig returns the configuration used when removing duplicates
// already present in the stored bank.
func CleaningConfig() Config {
	return Config{
		SimilarityThreshold: 0.90,
		SimilarityWindow:    0,
		SampleSize:          5,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.SimilarityThreshold < 0.0 || c.SimilarityThreshold > 1.0 {
		return fmt.Errorf("similarity_threshold must be between 0.0 and 1.0 (got %.2f)",
			c.SimilarityThreshold)
	}
	if c.SimilarityWindow < 0 {
		return fmt.Errorf("similarity_window cannot be negative (got %d)", c.SimilarityWindow)
	}
	if c.SimilarityWindow > 100000 {
		return fmt.Errorf("similarity_window too large (got %d, max 100000)", c.SimilarityWindow)
	}
	if c.SampleSize < 0 {
		return fmt.Errorf("sample_size cannot be negative (got %d)", c.SampleSize)
	}
	if c.SampleSize > 100 {
		return fmt.Errorf("sample_size too large (got %d, max 100)", c.SampleSize)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	window := strconv.Itoa(c.SimilarityWindow)
	if c.SimilarityWindow == 0 {
		window = "all"
	}
	return fmt.Sprintf("Config{Threshold: %.2f, Window: %s, SampleSize: %d}",
		c.SimilarityThreshold, window, c.SampleSize)
}

// ConfigFromEnv overlays environment variables on base.
//
// prefix selects the call site, e.g. "QUIZGEN_DEDUP" or "QUIZGEN_CLEAN":
//   - <prefix>_THRESHOLD: similarity threshold (0.0-1.0)
//   - <prefix>_WINDOW: number of recent questions compared (0 = all)
//   - <prefix>_SAMPLE_SIZE: examples kept per rejection category
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv(prefix string, base Config) (Config, error) {
	cfg := base

	if err := parseEnvFloat(prefix+"_THRESHOLD", &cfg.SimilarityThreshold); err != nil {
		return cfg, err
	}
	if err := parseEnvInt(prefix+"_WINDOW", &cfg.SimilarityWindow); err != nil {
		return cfg, err
	}
	if err := parseEnvInt(prefix+"_SAMPLE_SIZE", &cfg.SampleSize); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}

	return cfg, nil
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}
