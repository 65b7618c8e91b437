package collector

import (
	"context"
	"time"

	"github.com/samvad-hq/gnews-go/internal/feeds"
	"github.com/samvad-hq/gnews-go/internal/storage"
	"github.com/samvad-hq/gnews-go/pkg/gnews"
	"github.com/samvad-hq/gnews-go/pkg/publishers"
)

// FetcherResolver picks the fetcher for a feed.
type FetcherResolver interface {
	FetcherFor(feed feeds.Feed) (feeds.Fetcher, error)
}

// ArticleEnricher fills gaps in API articles (e.g., from OG tags).
type ArticleEnricher interface {
	Enrich(ctx context.Context, feed feeds.Feed, articles []gnews.Article) []gnews.Article
}

// EventPublisher publishes events downstream and reports how many sinks accepted them.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// SeenStore is the subset of storage.Store the collector needs.
type SeenStore interface {
	Seen(id string) (bool, error)
	Mark(id string, entry storage.Entry) error
}

// Recorder receives per-feed counters.
type Recorder interface {
	RecordFetched(feed string, n int)
	RecordPublished(feed string)
	RecordDuplicate(feed string)
	RecordPublishFailure(feed string)
	RecordFeedFailure(feed string)
	ObservePoll(d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordFetched(string, int)   {}
func (noopRecorder) RecordPublished(string)      {}
func (noopRecorder) RecordDuplicate(string)      {}
func (noopRecorder) RecordPublishFailure(string) {}
func (noopRecorder) RecordFeedFailure(string)    {}
func (noopRecorder) ObservePoll(time.Duration)   {}
