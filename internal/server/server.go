// Package server exposes the jobs over HTTP for external cron triggers.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/quizquotidien/quizgen/internal/jobs"
)

// JobRunner runs the jobs.
type JobRunner interface {
	Generate(ctx context.Context, opts jobs.GenerateOptions) (*jobs.GenerateReport, error)
	Clean(ctx context.Context, opts jobs.CleanOptions) (*jobs.CleanReport, error)
}

// Config configures the server.
type Config struct {
	Addr string
	// Secret, when set, must be sent as "Authorization: Bearer <secret>".
	Secret string
	// RatePerMinute limits job triggers across all clients; 0 disables the limit.
	RatePerMinute float64
	Burst         int
	GinMode       string
	// JobTimeout bounds a triggered job. Jobs run detached from the request context.
	JobTimeout time.Duration
}

// Server is the HTTP trigger.
type Server struct {
	runner  JobRunner
	cfg     Config
	log     zerolog.Logger
	limiter *rate.Limiter
	started time.Time
}

// New creates a server.
func New(runner JobRunner, cfg Config, log zerolog.Logger) *Server {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	s := &Server{runner: runner, cfg: cfg, log: log, started: time.Now()}
	if cfg.RatePerMinute > 0 {
		burst := max(cfg.Burst, 1)
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerMinute/60), burst)
	}
	return s
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	if s.cfg.GinMode != "" {
		gin.SetMode(s.cfg.GinMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.health)

	api := router.Group("/api", s.requireSecret(), s.rateLimit())
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		api.Handle(method, "/generate-questions", s.generate)
		api.Handle(method, "/clean-duplicates", s.clean)
	}
	return router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

type generateResponse struct {
	Success bool `json:"success"`
	*jobs.GenerateReport
}

type cleanResponse struct {
	Success bool `json:"success"`
	*jobs.CleanReport
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) generate(c *gin.Context) {
	ctx, cancel := s.jobContext(c)
	defer cancel()

	report, err := s.runner.Generate(ctx, jobs.GenerateOptions{DryRun: dryRun(c)})
	if err != nil {
		s.fail(c, "generate", err)
		return
	}
	c.JSON(http.StatusOK, generateResponse{Success: true, GenerateReport: report})
}

func (s *Server) clean(c *gin.Context) {
	ctx, cancel := s.jobContext(c)
	defer cancel()

	report, err := s.runner.Clean(ctx, jobs.CleanOptions{DryRun: dryRun(c)})
	if err != nil {
		s.fail(c, "clean", err)
		return
	}
	c.JSON(http.StatusOK, cleanResponse{Success: true, CleanReport: report})
}

func (s *Server) jobContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request.Context()), s.cfg.JobTimeout)
}

func (s *Server) fail(c *gin.Context, job string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, jobs.ErrJobRunning) {
		status = http.StatusConflict
	}
	s.log.Error().Err(err).Str("job", job).Int("status", status).Msg("job failed")
	c.JSON(status, errorResponse{Success: false, Error: err.Error()})
}

func dryRun(c *gin.Context) bool {
	v, err := strconv.ParseBool(c.DefaultQuery("dry_run", "false"))
	return err == nil && v
}

// requireSecret checks the bearer token when a secret is configured.
func (s *Server) requireSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.Secret == "" {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
