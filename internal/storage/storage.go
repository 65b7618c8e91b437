// Package storage remembers which articles have already been published.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Entry describes a published article.
type Entry struct {
	FeedID string
	URL    string
}

// Store tracks published article IDs with a retention TTL.
type Store interface {
	Seen(id string) (bool, error)
	Mark(id string, entry Entry) error
	Len() (int, error)
	Close() error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	ArticleTTL      time.Duration
	CleanupInterval time.Duration
}

const (
	TypeNone  = "none"
	TypeBBolt = "bbolt"

	defaultArticleTTL      = 5 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	if opts.ArticleTTL <= 0 {
		opts.ArticleTTL = defaultArticleTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}

	switch typ {
	case "", TypeNone, "disabled":
		return noopStore{}, nil
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		store, err := openBolt(path, opts, time.Now)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

type noopStore struct{}

func (noopStore) Seen(string) (bool, error) { return false, nil }
func (noopStore) Mark(string, Entry) error  { return nil }
func (noopStore) Len() (int, error)         { return 0, nil }
func (noopStore) Close() error              { return nil }
