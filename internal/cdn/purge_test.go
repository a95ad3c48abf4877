package cdn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurge(t *testing.T) {
	var gotAuth, gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/purge", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotURL = r.URL.Query().Get("url")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(Config{Token: "vtok", SiteHost: "quiz.example.app", APIBase: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, p.Purge(context.Background()))

	assert.Equal(t, "Bearer vtok", gotAuth)
	assert.Equal(t, "https://quiz.example.app/questions.json", gotURL)
}

func TestPurgeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	p := New(Config{Token: "vtok", APIBase: srv.URL, HTTPClient: srv.Client()})
	err := p.Purge(context.Background())
	assert.ErrorContains(t, err, "unexpected status 403")
}

func TestPurgeDisabled(t *testing.T) {
	p := New(Config{APIBase: "http://127.0.0.1:1"})
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Purge(context.Background()))
}

func TestPurgeSettleDelayHonorsContext(t *testing.T) {
	p := New(Config{Token: "vtok", SettleDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Purge(ctx), context.Canceled)
}

func TestPublishedURL(t *testing.T) {
	assert.Equal(t, "https://www.quiz-quotidien.fr/questions.json", New(Config{}).PublishedURL())
	assert.Equal(t, "https://x.vercel.app/data/q.json", New(Config{SiteHost: "https://x.vercel.app/", FilePath: "data/q.json"}).PublishedURL())
}
