package collector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/gnews-go/internal/feeds"
	"github.com/samvad-hq/gnews-go/internal/storage"
	"github.com/samvad-hq/gnews-go/pkg/gnews"
	"github.com/samvad-hq/gnews-go/pkg/publishers"
)

// fakeFetcher returns preset articles or an error.
type fakeFetcher struct {
	articles []gnews.Article
	err      error
}

func (f *fakeFetcher) Kind() string { return feeds.KindHeadlines }
func (f *fakeFetcher) Fetch(_ context.Context, _ feeds.Feed) ([]gnews.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.articles, nil
}

// fakeResolver maps feed ids to fetchers.
type fakeResolver struct {
	byFeed map[string]feeds.Fetcher
}

func (f *fakeResolver) FetcherFor(feed feeds.Feed) (feeds.Fetcher, error) {
	fetcher, ok := f.byFeed[feed.ID]
	if !ok {
		return nil, errors.New("missing fetcher")
	}
	return fetcher, nil
}

// fakeEnricher prefixes empty descriptions.
type fakeEnricher struct {
	calls int
}

func (f *fakeEnricher) Enrich(_ context.Context, _ feeds.Feed, articles []gnews.Article) []gnews.Article {
	f.calls++
	out := make([]gnews.Article, len(articles))
	for i, a := range articles {
		if a.Description == "" {
			a.Description = "enriched"
		}
		out[i] = a
	}
	return out
}

// fakePublisher records published events and can reject some URLs.
type fakePublisher struct {
	mu      sync.Mutex
	events  []publishers.Event
	failURL string
}

func (f *fakePublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	if evt.Article.URL == f.failURL {
		return 0, errors.New("boom")
	}
	return 1, nil
}

// fakeStore tracks seen IDs in memory.
type fakeStore struct {
	mu      sync.Mutex
	seen    map[string]storage.Entry
	failID  string
	failErr error
}

func (f *fakeStore) Seen(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == f.failID && f.failErr != nil {
		return false, f.failErr
	}
	_, ok := f.seen[id]
	return ok, nil
}

func (f *fakeStore) Mark(id string, e storage.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]storage.Entry)
	}
	f.seen[id] = e
	return nil
}

// countingRecorder counts calls per metric.
type countingRecorder struct {
	mu         sync.Mutex
	fetched    int
	published  int
	duplicates int
	failures   int
	feedErrs   int
	polls      int
}

func (c *countingRecorder) RecordFetched(_ string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetched += n
}

func (c *countingRecorder) RecordPublished(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published++
}

func (c *countingRecorder) RecordDuplicate(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duplicates++
}

func (c *countingRecorder) RecordPublishFailure(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
}

func (c *countingRecorder) RecordFeedFailure(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feedErrs++
}

func (c *countingRecorder) ObservePoll(time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls++
}

func newTestService(t *testing.T, resolver FetcherResolver, pub EventPublisher, store SeenStore, enr ArticleEnricher, rec Recorder) *Service {
	t.Helper()
	svc, err := NewService(Options{
		Fetchers:  resolver,
		Enricher:  enr,
		Publisher: pub,
		Store:     store,
		Recorder:  rec,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestServicePublishesFreshArticlesOnly(t *testing.T) {
	feed := feeds.Feed{ID: "tech", Name: "Tech", Kind: feeds.KindHeadlines, Enrich: true}
	articles := []gnews.Article{
		{Title: "old", URL: "https://example.com/old"},
		{Title: "new", URL: "https://example.com/new"},
		{Title: "new again", URL: "https://example.com/new"},
		{Title: "no url"},
	}

	store := &fakeStore{seen: map[string]storage.Entry{ArticleID("https://example.com/old"): {}}}
	pub := &fakePublisher{}
	enr := &fakeEnricher{}
	rec := &countingRecorder{}
	svc := newTestService(t, &fakeResolver{byFeed: map[string]feeds.Fetcher{
		"tech": &fakeFetcher{articles: articles},
	}}, pub, store, enr, rec)

	if err := svc.Run(context.Background(), []feeds.Feed{feed}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.events))
	}
	evt := pub.events[0]
	if evt.Article.Title != "new" || evt.Article.Description != "enriched" {
		t.Fatalf("unexpected article %+v", evt.Article)
	}
	if evt.FeedID != "tech" || evt.FeedName != "Tech" || evt.ArticleID != ArticleID("https://example.com/new") {
		t.Fatalf("unexpected event envelope %+v", evt)
	}
	if got := store.seen[evt.ArticleID]; got.FeedID != "tech" || got.URL != "https://example.com/new" {
		t.Fatalf("Mark not called with entry, got %+v", got)
	}
	if enr.calls != 1 {
		t.Fatalf("expected enricher to run once, got %d", enr.calls)
	}
	if rec.fetched != 4 || rec.published != 1 || rec.duplicates != 1 || rec.polls != 1 {
		t.Fatalf("unexpected recorder counts %+v", rec)
	}
}

func TestServiceSkipsEnrichmentWhenDisabled(t *testing.T) {
	feed := feeds.Feed{ID: "tech", Name: "Tech"}
	enr := &fakeEnricher{}
	svc := newTestService(t, &fakeResolver{byFeed: map[string]feeds.Fetcher{
		"tech": &fakeFetcher{articles: []gnews.Article{{URL: "https://example.com/a"}}},
	}}, &fakePublisher{}, &fakeStore{}, enr, nil)

	if err := svc.Run(context.Background(), []feeds.Feed{feed}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if enr.calls != 0 {
		t.Fatalf("enricher should not run for feeds without enrich")
	}
}

func TestServiceDoesNotMarkWhenEveryPublisherFails(t *testing.T) {
	feed := feeds.Feed{ID: "tech", Name: "Tech"}
	store := &fakeStore{}
	rec := &countingRecorder{}
	pub := &fakePublisher{failURL: "https://example.com/bad"}
	svc := newTestService(t, &fakeResolver{byFeed: map[string]feeds.Fetcher{
		"tech": &fakeFetcher{articles: []gnews.Article{{URL: "https://example.com/bad"}}},
	}}, pub, store, nil, rec)

	err := svc.Run(context.Background(), []feeds.Feed{feed})
	if err == nil || !strings.Contains(err.Error(), "https://example.com/bad") {
		t.Fatalf("expected error mentioning bad article, got %v", err)
	}
	if len(store.seen) != 0 {
		t.Fatalf("failed article must stay unseen so the next poll retries it")
	}
	if rec.failures != 1 {
		t.Fatalf("expected 1 publish failure, got %d", rec.failures)
	}

	// A second poll retries the same article.
	_ = svc.Run(context.Background(), []feeds.Feed{feed})
	if len(pub.events) != 2 {
		t.Fatalf("expected retry on second poll, got %d events", len(pub.events))
	}
}

func TestServiceContinuesPastFailingFeed(t *testing.T) {
	pub := &fakePublisher{}
	rec := &countingRecorder{}
	svc := newTestService(t, &fakeResolver{byFeed: map[string]feeds.Fetcher{
		"broken": &fakeFetcher{err: &gnews.TimeoutError{Wait: time.Second}},
		"ok":     &fakeFetcher{articles: []gnews.Article{{URL: "https://example.com/ok"}}},
	}}, pub, &fakeStore{}, nil, rec)

	err := svc.Run(context.Background(), []feeds.Feed{{ID: "broken"}, {ID: "ok"}, {ID: "unknown"}})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	var timeout *gnews.TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError in joined error, got %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("healthy feed should still publish, got %d events", len(pub.events))
	}
	if rec.feedErrs != 2 {
		t.Fatalf("expected 2 feed failures, got %d", rec.feedErrs)
	}
}

func TestServiceRunRejectsEmptyFeeds(t *testing.T) {
	svc := newTestService(t, &fakeResolver{}, &fakePublisher{}, &fakeStore{}, nil, nil)
	if err := svc.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error when feed list is empty")
	}
}

func TestServiceRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := &fakePublisher{}
	svc := newTestService(t, &fakeResolver{byFeed: map[string]feeds.Fetcher{
		"tech": &fakeFetcher{articles: []gnews.Article{{URL: "https://example.com/a"}}},
	}}, pub, &fakeStore{}, nil, nil)

	if err := svc.Run(ctx, []feeds.Feed{{ID: "tech"}}); err != nil {
		t.Fatalf("expected no errors on cancelled context, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("nothing should be published after cancellation")
	}
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	if _, err := NewService(Options{}); err == nil {
		t.Fatalf("expected error without fetchers")
	}
	if _, err := NewService(Options{Fetchers: &fakeResolver{}}); err == nil {
		t.Fatalf("expected error without publisher")
	}
	if _, err := NewService(Options{Fetchers: &fakeResolver{}, Publisher: &fakePublisher{}}); err == nil {
		t.Fatalf("expected error without store")
	}
}

func TestFilterNewArticlesKeepsArticleOnStoreError(t *testing.T) {
	store := &fakeStore{
		seen:    map[string]storage.Entry{ArticleID("https://example.com/skip"): {}},
		failID:  ArticleID("https://example.com/error"),
		failErr: errors.New("lookup failed"),
	}
	svc := newTestService(t, &fakeResolver{}, &fakePublisher{}, store, nil, nil)
	articles := []gnews.Article{
		{URL: "https://example.com/keep"},
		{URL: "https://example.com/skip"},
		{URL: "https://example.com/error"},
	}

	filtered, ids := svc.filterNewArticles(feeds.Feed{ID: "p"}, articles)
	if len(filtered) != 2 || len(ids) != 2 {
		t.Fatalf("expected 2 articles after filter, got %d", len(filtered))
	}
	if filtered[0].URL != "https://example.com/keep" || filtered[1].URL != "https://example.com/error" {
		t.Fatalf("unexpected filter result %#v", filtered)
	}
}

func TestArticleIDIsStable(t *testing.T) {
	a := ArticleID("https://example.com/a")
	if a != ArticleID("  https://example.com/a ") {
		t.Fatalf("surrounding whitespace should not change the id")
	}
	if a == ArticleID("https://example.com/b") {
		t.Fatalf("different urls must not collide")
	}
	if len(a) != 40 {
		t.Fatalf("expected hex sha1, got %q", a)
	}
}
