package feeds

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/samvad-hq/gnews-go/pkg/gnews"
)

// NewsClient is the part of *gnews.Client the fetchers use.
type NewsClient interface {
	Headlines(ctx context.Context, params gnews.Params) (*gnews.NewsResponse, error)
	Search(ctx context.Context, q string, params gnews.Params) (*gnews.NewsResponse, error)
}

// Fetcher retrieves the current articles of a feed.
type Fetcher interface {
	Kind() string
	Fetch(ctx context.Context, feed Feed) ([]gnews.Article, error)
}

// FetcherRegistry resolves the fetcher for a feed kind.
type FetcherRegistry struct {
	mu       sync.RWMutex
	fetchers map[string]Fetcher
}

// NewFetcherRegistry registers fetchers by their Kind.
func NewFetcherRegistry(fetchers ...Fetcher) *FetcherRegistry {
	r := &FetcherRegistry{fetchers: make(map[string]Fetcher, len(fetchers))}
	for _, f := range fetchers {
		r.Register(f)
	}
	return r
}

// DefaultFetcherRegistry wires the headlines and search fetchers to client.
func DefaultFetcherRegistry(client NewsClient) *FetcherRegistry {
	return NewFetcherRegistry(&headlinesFetcher{client: client}, &searchFetcher{client: client})
}

// Register adds or replaces the fetcher for f.Kind().
func (r *FetcherRegistry) Register(f Fetcher) {
	if f == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(f.Kind()))
	if key == "" {
		return
	}
	r.mu.Lock()
	r.fetchers[key] = f
	r.mu.Unlock()
}

// FetcherFor returns the fetcher registered for feed.Kind.
func (r *FetcherRegistry) FetcherFor(feed Feed) (Fetcher, error) {
	if r == nil {
		return nil, fmt.Errorf("fetcher registry is nil")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fetchers[strings.ToLower(feed.Kind)]
	if !ok {
		return nil, fmt.Errorf("no fetcher registered for feed %q (kind %q)", feed.ID, feed.Kind)
	}
	return f, nil
}

type headlinesFetcher struct {
	client NewsClient
}

func (f *headlinesFetcher) Kind() string { return KindHeadlines }

func (f *headlinesFetcher) Fetch(ctx context.Context, feed Feed) ([]gnews.Article, error) {
	resp, err := f.client.Headlines(ctx, feed.RequestParams())
	if err != nil {
		return nil, fmt.Errorf("headlines for feed %s: %w", feed.ID, err)
	}
	return resp.Articles, nil
}

type searchFetcher struct {
	client NewsClient
}

func (f *searchFetcher) Kind() string { return KindSearch }

func (f *searchFetcher) Fetch(ctx context.Context, feed Feed) ([]gnews.Article, error) {
	resp, err := f.client.Search(ctx, feed.Query, feed.RequestParams())
	if err != nil {
		return nil, fmt.Errorf("search %q for feed %s: %w", feed.Query, feed.ID, err)
	}
	return resp.Articles, nil
}
