package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog/log"
)

// RetryConfig holds retry configuration for API calls
type RetryConfig struct {
	MaxRetries        int           // Maximum number of retries (default: 3)
	InitialBackoff    time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff        time.Duration // Maximum backoff duration (default: 30s)
	BackoffMultiplier float64       // Backoff multiplier (default: 2.0)
	Timeout           time.Duration // Per-request timeout (default: 120s)

	// Circuit breaker settings
	CircuitBreakerEnabled bool          // Enable circuit breaker (default: true)
	FailureThreshold      int           // Failures before opening circuit (default: 5)
	SuccessThreshold      int           // Successes in half-open before closing (default: 2)
	OpenTimeout           time.Duration // How long to keep circuit open (default: 30s)

	MaxConcurrentCalls int // Maximum concurrent model calls (default: 2, 0 = unlimited)
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:            3,
		InitialBackoff:        1 * time.Second,
		MaxBackoff:            30 * time.Second,
		BackoffMultiplier:     2.0,
		Timeout:               120 * time.Second,
		CircuitBreakerEnabled: true,
		FailureThreshold:      5,
		SuccessThreshold:      2,
		OpenTimeout:           30 * time.Second,
		MaxConcurrentCalls:    2,
	}
}

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation
	CircuitOpen                         // Failing fast
	CircuitHalfOpen                     // Probing for recovery
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops calling the model after repeated transient failures
// and lets a probe through once OpenTimeout has passed.
type CircuitBreaker struct {
	mu sync.Mutex

	state            CircuitState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration

	now func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(failureThreshold, successThreshold int, openTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            CircuitClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:      openTimeout,
		now:              time.Now,
	}
}

// Allow returns ErrCircuitOpen while the circuit is open.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return nil
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailureTime) > cb.openTimeout {
			cb.transition(CircuitHalfOpen)
			return nil
		}
		return ErrCircuitOpen
	default:
		return ErrCircuitOpen
	}
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failureCount = 0
	case CircuitHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.transition(CircuitClosed)
		}
	}
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = cb.now()

	switch cb.state {
	case CircuitClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		// Any failure while probing reopens the circuit
		cb.transition(CircuitOpen)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// transition must be called with the lock held.
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	cb.successCount = 0
	if to == CircuitClosed {
		cb.failureCount = 0
	}
	log.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Int("failures", cb.failureCount).
		Dur("open_timeout", cb.openTimeout).
		Msg("circuit breaker state transition")
}

// retryWithBackoff executes an operation with retry and exponential backoff
func (g *Generator) retryWithBackoff(ctx context.Context, operation string, fn func(context.Context) error) error {
	if g.concurrencySem != nil {
		if err := g.concurrencySem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("failed to acquire concurrency slot for %s: %w", operation, err)
		}
		defer g.concurrencySem.Release(1)
	}

	var lastErr error
	backoff := g.retry.InitialBackoff

	for attempt := 0; attempt <= g.retry.MaxRetries; attempt++ {
		if g.circuitBreaker != nil {
			if err := g.circuitBreaker.Allow(); err != nil {
				log.Warn().Str("operation", operation).Msg("model call blocked by circuit breaker")
				return fmt.Errorf("%s failed: %w", operation, err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, g.retry.Timeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			if g.circuitBreaker != nil {
				g.circuitBreaker.RecordSuccess()
			}
			if attempt > 0 {
				log.Info().Str("operation", operation).Int("retries", attempt).Msg("model call succeeded after retries")
			}
			return nil
		}

		lastErr = err
		retriable := isRetriableError(err)

		// Auth and request errors do not count against the circuit
		if g.circuitBreaker != nil && retriable {
			g.circuitBreaker.RecordFailure()
		}
		if !retriable {
			log.Error().Err(err).Str("operation", operation).Msg("model call failed with non-retriable error")
			return err
		}
		if attempt == g.retry.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s failed: context canceled: %w", operation, ctx.Err())
		}

		log.Warn().Err(err).
			Str("operation", operation).
			Int("attempt", attempt+1).
			Int("max_attempts", g.retry.MaxRetries+1).
			Dur("backoff", backoff).
			Msg("model call failed, retrying")

		select {
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * g.retry.BackoffMultiplier)
			if backoff > g.retry.MaxBackoff {
				backoff = g.retry.MaxBackoff
			}
		case <-ctx.Done():
			return fmt.Errorf("%s failed: context canceled during backoff: %w", operation, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, g.retry.MaxRetries+1, lastErr)
}

// isRetriableError determines if an error is transient.
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch code := apiErr.StatusCode; {
		case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
			return true
		case code >= 500: // includes 529 overloaded
			return true
		default:
			return false
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, s := range []string{
		"rate limit", "overloaded",
		"connection refused", "connection reset", "timeout",
		"temporary failure", "eof",
	} {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}
