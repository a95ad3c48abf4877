// Package cdn invalidates the cached copy of the published question bank
// after a commit.
package cdn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultAPIBase is the Vercel REST API.
	DefaultAPIBase = "https://api.vercel.com"

	// DefaultSiteHost serves questions.json when no deployment URL is configured.
	DefaultSiteHost = "www.quiz-quotidien.fr"

	// DefaultSettleDelay lets the deployment pick up the new commit before
	// the cache is purged.
	DefaultSettleDelay = 2 * time.Second
)

// Config configures the purger.
type Config struct {
	Token       string
	SiteHost    string // host serving the bank, e.g. VERCEL_URL
	FilePath    string // path of the bank on that host
	APIBase     string
	SettleDelay time.Duration
	HTTPClient  *http.Client
}

// Purger purges one published URL from the Vercel edge cache.
type Purger struct {
	cfg Config
}

// New creates a purger. A purger without token does nothing.
func New(cfg Config) *Purger {
	if cfg.SiteHost == "" {
		cfg.SiteHost = DefaultSiteHost
	}
	if cfg.FilePath == "" {
		cfg.FilePath = "/questions.json"
	}
	if !strings.HasPrefix(cfg.FilePath, "/") {
		cfg.FilePath = "/" + cfg.FilePath
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Purger{cfg: cfg}
}

// Enabled reports whether a token is configured.
func (p *Purger) Enabled() bool {
	return p.cfg.Token != ""
}

// PublishedURL is the public URL of the bank.
func (p *Purger) PublishedURL() string {
	host := strings.TrimPrefix(strings.TrimPrefix(p.cfg.SiteHost, "https://"), "http://")
	return "https://" + strings.TrimSuffix(host, "/") + p.cfg.FilePath
}

// Purge waits for the settle delay and asks Vercel to drop the cached bank.
// It returns an error for the caller to log; a failed purge never fails a job
// since the commit triggers a redeploy anyway.
func (p *Purger) Purge(ctx context.Context) error {
	if !p.Enabled() {
		log.Debug().Msg("cache purge skipped: no token configured")
		return nil
	}

	if p.cfg.SettleDelay > 0 {
		select {
		case <-time.After(p.cfg.SettleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	target := p.PublishedURL()
	endpoint := strings.TrimSuffix(p.cfg.APIBase, "/") + "/v1/purge?url=" + url.QueryEscape(target)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building purge request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.Token)

	resp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("purging %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("purging %s: unexpected status %d: %s", target, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	log.Info().Str("url", target).Msg("cache purged")
	return nil
}
