// Package collector polls GNews feeds and publishes articles that have not been seen before.
package collector

import (
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/gnews-go/internal/feeds"
	"github.com/samvad-hq/gnews-go/internal/logger"
	"github.com/samvad-hq/gnews-go/internal/storage"
	"github.com/samvad-hq/gnews-go/pkg/gnews"
	"github.com/samvad-hq/gnews-go/pkg/publishers"
)

const defaultConcurrency = 2

// Options wires the collaborators of a Service. Enricher and Recorder are optional.
type Options struct {
	Fetchers    FetcherResolver
	Enricher    ArticleEnricher
	Publisher   EventPublisher
	Store       SeenStore
	Recorder    Recorder
	Logger      logger.Logger
	Concurrency int
}

// Service coordinates polling across multiple feeds.
type Service struct {
	fetchers    FetcherResolver
	enricher    ArticleEnricher
	publisher   EventPublisher
	store       SeenStore
	rec         Recorder
	log         logger.Logger
	concurrency int
}

// NewService validates the options and builds a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Fetchers == nil {
		return nil, errors.New("collector: fetcher registry is required")
	}
	if opts.Publisher == nil {
		return nil, errors.New("collector: publisher is required")
	}
	if opts.Store == nil {
		return nil, errors.New("collector: store is required")
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}

	return &Service{
		fetchers:    opts.Fetchers,
		enricher:    opts.Enricher,
		publisher:   opts.Publisher,
		store:       opts.Store,
		rec:         opts.Recorder,
		log:         logger.Ensure(opts.Logger),
		concurrency: opts.Concurrency,
	}, nil
}

// ArticleID derives the stable dedup key for an article from its URL.
func ArticleID(articleURL string) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(articleURL)))
	return hex.EncodeToString(sum[:])
}

// Run executes one poll across all feeds. A failing feed does not stop the others;
// every failure is joined into the returned error.
func (s *Service) Run(ctx context.Context, list []feeds.Feed) error {
	if s == nil {
		return errors.New("collector service is not initialized")
	}
	if len(list) == 0 {
		return errors.New("no feeds configured for polling")
	}

	start := time.Now()
	defer func() { s.rec.ObservePoll(time.Since(start)) }()

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, feed := range list {
		if ctx.Err() != nil {
			break
		}
		feed := feed
		g.Go(func() error {
			if err := s.processFeed(ctx, feed); err != nil {
				s.log.ErrorObj("feed poll failed", "feed_error", map[string]any{
					"feed_id": feed.ID,
					"error":   err.Error(),
				})
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (s *Service) processFeed(ctx context.Context, feed feeds.Feed) error {
	fetcher, err := s.fetchers.FetcherFor(feed)
	if err != nil {
		s.rec.RecordFeedFailure(feed.ID)
		return fmt.Errorf("resolve fetcher for feed %s: %w", feed.ID, err)
	}

	articles, err := fetcher.Fetch(ctx, feed)
	if err != nil {
		s.rec.RecordFeedFailure(feed.ID)
		return err
	}
	s.rec.RecordFetched(feed.ID, len(articles))

	fresh, ids := s.filterNewArticles(feed, articles)
	if len(fresh) == 0 {
		s.log.DebugObj("feed has no new articles", "feed_result", map[string]any{
			"feed_id": feed.ID,
			"fetched": len(articles),
		})
		return nil
	}

	if feed.Enrich && s.enricher != nil {
		if enriched := s.enricher.Enrich(ctx, feed, fresh); len(enriched) == len(fresh) {
			fresh = enriched
		}
	}

	var errs []error
	published := 0
	for i, art := range fresh {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		evt := publishers.NewEvent(feed.ID, feed.Name, ids[i], art)
		n, pubErr := s.publisher.Publish(ctx, evt)
		if n == 0 {
			s.rec.RecordPublishFailure(feed.ID)
			if pubErr == nil {
				pubErr = errors.New("no publishers accepted the event")
			}
			errs = append(errs, fmt.Errorf("publish article %s (%s): %w", ids[i], art.URL, pubErr))
			continue
		}
		if pubErr != nil {
			s.log.WarnObj("article published partially", "publish_partial", map[string]any{
				"feed_id":    feed.ID,
				"article_id": ids[i],
				"error":      pubErr.Error(),
			})
		}
		if err := s.store.Mark(ids[i], storage.Entry{FeedID: feed.ID, URL: art.URL}); err != nil {
			errs = append(errs, fmt.Errorf("mark article %s: %w", ids[i], err))
		}
		s.rec.RecordPublished(feed.ID)
		published++
	}

	s.log.InfoObj("feed poll completed", "feed_result", map[string]any{
		"feed_id":   feed.ID,
		"fetched":   len(articles),
		"new":       len(fresh),
		"published": published,
	})
	return errors.Join(errs...)
}

// filterNewArticles drops articles without a URL, repeats within the batch, and
// ones already in the store. A store lookup error keeps the article so it is not lost.
func (s *Service) filterNewArticles(feed feeds.Feed, articles []gnews.Article) ([]gnews.Article, []string) {
	out := make([]gnews.Article, 0, len(articles))
	ids := make([]string, 0, len(articles))
	batch := make(map[string]struct{}, len(articles))

	for _, art := range articles {
		if strings.TrimSpace(art.URL) == "" {
			continue
		}
		id := ArticleID(art.URL)
		if _, dup := batch[id]; dup {
			continue
		}
		batch[id] = struct{}{}

		seen, err := s.store.Seen(id)
		if err != nil {
			s.log.WarnObj("seen lookup failed", "store_error", map[string]any{
				"feed_id":    feed.ID,
				"article_id": id,
				"error":      err.Error(),
			})
		}
		if seen {
			s.rec.RecordDuplicate(feed.ID)
			continue
		}
		out = append(out, art)
		ids = append(ids, id)
	}
	return out, ids
}
