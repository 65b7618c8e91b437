package gnews

import (
	"fmt"
	"strings"
	"time"
)

// NewsResponse is the body returned by both endpoints.
type NewsResponse struct {
	TotalArticles int       `json:"totalArticles"`
	Articles      []Article `json:"articles"`
}

// Article is a single news item. Any string may be empty, in particular when
// the request asked for nullable fields.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
	Source      Source `json:"source"`
}

// Source identifies the publisher of an Article.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PublishedTime parses PublishedAt as an RFC 3339 timestamp.
func (a Article) PublishedTime() (time.Time, error) {
	raw := strings.TrimSpace(a.PublishedAt)
	if raw == "" {
		return time.Time{}, fmt.Errorf("article %q has no publishedAt", a.URL)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse publishedAt %q: %w", raw, err)
	}
	return t, nil
}
