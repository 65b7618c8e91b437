// Package feeds loads the feed definitions the harvester polls.
package feeds

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/gnews-go/pkg/gnews"
)

const (
	KindHeadlines = "headlines"
	KindSearch    = "search"

	defaultRequestDelayMs = 500
)

// Feed is one polled query against the GNews API.
type Feed struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Kind           string         `json:"kind" yaml:"kind"`
	Query          string         `json:"query" yaml:"query"`
	Params         map[string]any `json:"params" yaml:"params"`
	Enrich         bool           `json:"enrich" yaml:"enrich"`
	RequestDelayMs int            `json:"request_delay_ms" yaml:"request_delay_ms"`
}

type feedFile struct {
	Feeds []Feed `json:"feeds" yaml:"feeds"`
}

// Registry is an immutable, validated set of feeds.
type Registry struct {
	feeds []Feed
	idx   map[string]Feed
}

// LoadRegistry reads a YAML or JSON feed file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("feeds file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds file: %w", err)
	}

	file, err := parseFeedFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(file.Feeds)
}

// NewRegistry sanitizes and validates feeds.
func NewRegistry(feeds []Feed) (*Registry, error) {
	if len(feeds) == 0 {
		return nil, errors.New("feeds file contains no feeds entries")
	}

	reg := &Registry{
		feeds: make([]Feed, 0, len(feeds)),
		idx:   make(map[string]Feed, len(feeds)),
	}
	for i := range feeds {
		f := sanitizeFeed(feeds[i])
		if err := validateFeed(f); err != nil {
			return nil, fmt.Errorf("feeds[%d]: %w", i, err)
		}
		if _, exists := reg.idx[f.ID]; exists {
			return nil, fmt.Errorf("duplicate feed id %q", f.ID)
		}
		reg.feeds = append(reg.feeds, f)
		reg.idx[f.ID] = f
	}
	return reg, nil
}

func parseFeedFile(data []byte, ext string) (feedFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var errs []error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var file feedFile
		if err := d.fn(data, &file); err != nil {
			errs = append(errs, fmt.Errorf("decode %s feeds: %w", d.name, err))
			continue
		}
		return file, nil
	}
	return feedFile{}, fmt.Errorf("feeds file format not recognized (expected YAML or JSON): %w", errors.Join(errs...))
}

func sanitizeFeed(f Feed) Feed {
	f.ID = strings.TrimSpace(f.ID)
	f.Name = strings.TrimSpace(f.Name)
	f.Kind = strings.ToLower(strings.TrimSpace(f.Kind))
	f.Query = strings.TrimSpace(f.Query)
	if f.Kind == "" {
		f.Kind = KindHeadlines
	}
	if f.RequestDelayMs <= 0 {
		f.RequestDelayMs = defaultRequestDelayMs
	}

	params := make(map[string]any, len(f.Params))
	for k, v := range f.Params {
		if k = strings.TrimSpace(k); k != "" {
			params[k] = v
		}
	}
	f.Params = params
	return f
}

func validateFeed(f Feed) error {
	if f.ID == "" {
		return errors.New("id is required")
	}
	if f.Name == "" {
		return fmt.Errorf("name is required for feed %q", f.ID)
	}
	switch f.Kind {
	case KindHeadlines:
	case KindSearch:
		if f.Query == "" {
			return fmt.Errorf("query is required for search feed %q", f.ID)
		}
	default:
		return fmt.Errorf("unsupported kind %q for feed %q", f.Kind, f.ID)
	}
	for _, reserved := range []string{"apikey", "q"} {
		if _, ok := f.Params[reserved]; ok {
			return fmt.Errorf("param %q is not allowed in feed %q params", reserved, f.ID)
		}
	}
	if raw, ok := f.Params["category"]; ok {
		if c := gnews.Category(fmt.Sprint(raw)); !c.Valid() {
			return fmt.Errorf("unknown category %q for feed %q", c, f.ID)
		}
	}
	if raw, ok := f.Params["sortby"]; ok {
		if s := gnews.SortBy(fmt.Sprint(raw)); !s.Valid() {
			return fmt.Errorf("unknown sortby %q for feed %q", s, f.ID)
		}
	}
	return nil
}

// All returns a copy of the feeds in file order.
func (r *Registry) All() []Feed {
	if r == nil {
		return nil
	}
	out := make([]Feed, len(r.feeds))
	copy(out, r.feeds)
	return out
}

// ByID returns the feed with the given id.
func (r *Registry) ByID(id string) (Feed, bool) {
	if r == nil {
		return Feed{}, false
	}
	f, ok := r.idx[strings.TrimSpace(id)]
	return f, ok
}

// RequestParams returns a fresh parameter map for the feed.
func (f Feed) RequestParams() gnews.Params {
	p := make(gnews.Params, len(f.Params))
	for k, v := range f.Params {
		p[k] = v
	}
	return p
}

// RequestDelay is the pause between enrichment page fetches for this feed.
func (f Feed) RequestDelay() time.Duration {
	if f.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(f.RequestDelayMs) * time.Millisecond
}
