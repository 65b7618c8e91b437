package collector

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/samvad-hq/gnews-go/internal/feeds"
	"github.com/samvad-hq/gnews-go/internal/logger"
	"github.com/samvad-hq/gnews-go/pkg/gnews"
	"github.com/samvad-hq/gnews-go/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
	pageAccept       = "text/html,application/xhtml+xml"
)

// Enricher fetches article pages and fills empty fields from OG tags.
type Enricher struct {
	client httpclient.Client
	log    logger.Logger
}

// NewEnricher constructs an enricher with the provided HTTP client (or a resty default).
func NewEnricher(client httpclient.Client, log logger.Logger) *Enricher {
	if client == nil {
		client = httpclient.NewRestyClient(httpclient.Options{})
	}
	return &Enricher{client: client, log: logger.Ensure(log)}
}

// Enrich visits each article page, paced by the feed's request delay. Fields the
// API already populated are never overwritten. On cancellation the articles
// processed so far are returned together with the untouched remainder.
func (e *Enricher) Enrich(ctx context.Context, feed feeds.Feed, articles []gnews.Article) []gnews.Article {
	out := append([]gnews.Article(nil), articles...)
	limiter := rate.NewLimiter(rate.Every(feed.RequestDelay()), 1)

	for i, art := range articles {
		if !needsEnrichment(art) {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return out
		}

		enriched, err := e.fetchAndMerge(ctx, art)
		if err != nil {
			e.log.WarnObj("article metadata scrape failed", "metadata_error", map[string]any{
				"feed_id": feed.ID,
				"url":     art.URL,
				"error":   err.Error(),
			})
			continue
		}
		out[i] = enriched
	}

	return out
}

func needsEnrichment(a gnews.Article) bool {
	if strings.TrimSpace(a.URL) == "" {
		return false
	}
	return a.Title == "" || a.Description == "" || a.Image == ""
}

func (e *Enricher) fetchAndMerge(ctx context.Context, art gnews.Article) (gnews.Article, error) {
	resp, err := e.client.Get(ctx, art.URL, map[string]string{"Accept": pageAccept})
	if err != nil {
		return art, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return art, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return art, err
	}
	return mergeMeta(art, meta), nil
}

// mergeMeta only fills fields that are empty on the article.
func mergeMeta(art gnews.Article, meta pageMeta) gnews.Article {
	if art.Title == "" {
		art.Title = meta.Title
	}
	if art.Description == "" {
		art.Description = meta.Description
	}
	if art.Image == "" {
		art.Image = resolveURL(meta.ImageURL, art.URL)
	}
	return art
}

func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return pageMeta{
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
		ImageURL: firstNonEmpty(
			extract(`meta[property="og:image"]`),
			extract(`meta[name="twitter:image"]`),
		),
	}, nil
}

type pageMeta struct {
	Title       string
	Description string
	ImageURL    string
}

// resolveURL makes ref absolute against the page it was found on.
func resolveURL(ref, page string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if r.IsAbs() {
		return r.String()
	}
	base, err := url.Parse(page)
	if err != nil {
		return ""
	}
	return base.ResolveReference(r).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
