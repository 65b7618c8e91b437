package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samvad-hq/gnews-go/internal/config"
	"github.com/samvad-hq/gnews-go/internal/storage"
	"github.com/samvad-hq/gnews-go/pkg/gnews"
)

const headlinesBody = `{
  "totalArticles": 2,
  "articles": [
    {"title": "One", "description": "d1", "content": "c1", "url": "https://news.example.com/1",
     "image": "https://news.example.com/1.png", "publishedAt": "2024-01-01T10:00:00Z",
     "source": {"name": "Example", "url": "https://news.example.com"}},
    {"title": "Two", "description": "d2", "content": "c2", "url": "https://news.example.com/2",
     "image": "https://news.example.com/2.png", "publishedAt": "2024-01-01T11:00:00Z",
     "source": {"name": "Example", "url": "https://news.example.com"}}
  ]
}`

type harvesterFixture struct {
	cfg       *config.Config
	apiCalls  *atomic.Int32
	delivered *atomic.Int32
}

func newHarvesterFixture(t *testing.T) harvesterFixture {
	t.Helper()

	apiCalls := &atomic.Int32{}
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
		if r.URL.Path != "/api/v4/top-headlines" {
			t.Errorf("unexpected api path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("apikey"); got != "test-key" {
			t.Errorf("unexpected apikey %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(headlinesBody))
	}))
	t.Cleanup(api.Close)

	delivered := &atomic.Int32{}
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		delivered.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(hook.Close)

	dir := t.TempDir()
	feedsPath := filepath.Join(dir, "feeds.yaml")
	feedsRaw := `
feeds:
  - id: top
    name: Top stories
    kind: headlines
    params:
      lang: en
      max: 2
`
	if err := os.WriteFile(feedsPath, []byte(feedsRaw), 0o644); err != nil {
		t.Fatalf("write feeds: %v", err)
	}

	pubsPath := filepath.Join(dir, "publishers.yaml")
	pubsRaw := "publishers:\n  - id: hook\n    type: http\n    http:\n      url: " + hook.URL + "\n"
	if err := os.WriteFile(pubsPath, []byte(pubsRaw), 0o644); err != nil {
		t.Fatalf("write publishers: %v", err)
	}

	return harvesterFixture{
		cfg: &config.Config{
			AppName:                "gnews-go-test",
			APIKey:                 "test-key",
			APIVersion:             "v4",
			MaxWait:                2 * time.Second,
			Endpoint:               api.URL,
			FeedsFile:              feedsPath,
			PublishersFile:         pubsPath,
			PollInterval:           time.Hour,
			FeedConcurrency:        1,
			StorageType:            storage.TypeBBolt,
			BBoltPath:              filepath.Join(dir, "seen.db"),
			StorageTTL:             time.Hour,
			StorageCleanupInterval: time.Hour,
		},
		apiCalls:  apiCalls,
		delivered: delivered,
	}
}

func TestHarvesterPublishesEachArticleOnce(t *testing.T) {
	fx := newHarvesterFixture(t)

	h, err := NewHarvester(context.Background(), fx.cfg, nil)
	if err != nil {
		t.Fatalf("NewHarvester: %v", err)
	}
	defer h.close()

	feedList := h.feedReg.All()
	if err := h.runOnce(context.Background(), feedList); err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if err := h.runOnce(context.Background(), feedList); err != nil {
		t.Fatalf("second poll: %v", err)
	}

	if got := fx.apiCalls.Load(); got != 2 {
		t.Fatalf("expected 2 api calls, got %d", got)
	}
	if got := fx.delivered.Load(); got != 2 {
		t.Fatalf("expected each article delivered once, got %d deliveries", got)
	}
	if n, err := h.store.Len(); err != nil || n != 2 {
		t.Fatalf("expected 2 stored articles, got %d (%v)", n, err)
	}
}

func TestHarvesterRunReturnsOnCancel(t *testing.T) {
	fx := newHarvesterFixture(t)
	fx.cfg.StorageType = storage.TypeNone

	h, err := NewHarvester(context.Background(), fx.cfg, nil)
	if err != nil {
		t.Fatalf("NewHarvester: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancellation")
	}
}

func TestNewHarvesterRejectsMissingAPIKey(t *testing.T) {
	fx := newHarvesterFixture(t)
	fx.cfg.APIKey = "  "

	_, err := NewHarvester(context.Background(), fx.cfg, nil)
	var cfgErr *gnews.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestNewHarvesterRejectsNilConfig(t *testing.T) {
	if _, err := NewHarvester(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
