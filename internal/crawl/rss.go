package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/extract"
)

// RSS extracts candidates from a syndication feed. Entries are keyed by
// (updated timestamp, link) and a key already seen in the bounded cache is
// skipped. A source that also declares a regex or XPath instead runs website
// extraction over each entry's embedded HTML, bypassing the key cache.
type RSS struct {
	source  *domain.Source
	fetcher Fetcher
	parser  *gofeed.Parser
	cache   *KeyCache

	// website handles extraction-configured sources; nil otherwise.
	website *Website
}

// NewRSS builds an RSS strategy for the source.
func NewRSS(source *domain.Source, fetcher Fetcher, cacheSize int) (*RSS, error) {
	r := &RSS{
		source:  source,
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
		cache:   NewKeyCache(cacheSize),
	}

	if source.HasExtraction() {
		website, err := NewWebsite(source, fetcher)
		if err != nil {
			return nil, err
		}
		r.website = website
	}

	return r, nil
}

// Name returns the strategy name.
func (r *RSS) Name() string {
	return "rss"
}

// Tick fetches and parses the feed, emitting one item per fresh entry.
func (r *RSS) Tick(ctx context.Context) ([]Item, error) {
	raw, err := r.fetcher.Fetch(ctx, r.source.URI)
	if err != nil {
		return nil, err
	}

	feed, parseErr := r.parser.ParseString(raw)
	if parseErr != nil {
		return nil, fmt.Errorf("source %s: parse feed: %w", r.source.ID, parseErr)
	}

	var items []Item
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		entryItems, entryErr := r.handleEntry(entry)
		if entryErr != nil {
			return nil, entryErr
		}
		items = append(items, entryItems...)
	}
	return items, nil
}

// handleEntry converts one feed entry into zero or more items.
func (r *RSS) handleEntry(entry *gofeed.Item) ([]Item, error) {
	published := entryTime(entry)

	if r.website != nil {
		candidates, err := r.website.ExtractFromDocument(entryHTML(entry), seed{
			Title:       entry.Title,
			Link:        entry.Link,
			PublishedAt: published,
		})
		if err != nil {
			return nil, err
		}
		items := make([]Item, 0, len(candidates))
		for i := range candidates {
			items = append(items, Item{Source: r.source, Candidate: candidates[i]})
		}
		return items, nil
	}

	key := entryKey(entry)
	if !r.cache.Add(key) {
		return nil, nil
	}

	html := entryHTML(entry)
	candidate := domain.Candidate{
		SourceID:     r.source.ID,
		Title:        entry.Title,
		Body:         extract.Text(html),
		Link:         entry.Link,
		Images:       entryImages(entry, html),
		PublishedAt:  published,
		DiscoveredAt: time.Now().UTC(),
	}

	articleKey := domain.ShortArticleKey{RssKey: key, SourceID: r.source.ID}
	return []Item{{Source: r.source, Candidate: candidate, Key: &articleKey}}, nil
}

// entryKey derives the short-term cache key for a feed entry.
func entryKey(entry *gofeed.Item) domain.RssKey {
	key := domain.RssKey{Link: entry.Link}
	switch {
	case entry.UpdatedParsed != nil:
		key.Updated = entry.UpdatedParsed.Unix()
	case entry.PublishedParsed != nil:
		key.Updated = entry.PublishedParsed.Unix()
	}
	return key
}

// entryTime picks the entry's publish time, falling back to its updated
// time, then to now.
func entryTime(entry *gofeed.Item) time.Time {
	switch {
	case entry.PublishedParsed != nil:
		return entry.PublishedParsed.UTC()
	case entry.UpdatedParsed != nil:
		return entry.UpdatedParsed.UTC()
	default:
		return time.Now().UTC()
	}
}

// entryHTML returns the richest HTML payload the entry carries.
func entryHTML(entry *gofeed.Item) string {
	if entry.Content != "" {
		return entry.Content
	}
	return entry.Description
}

// entryImages collects the entry's declared image plus image enclosures,
// then any images embedded in the entry HTML.
func entryImages(entry *gofeed.Item, html string) []domain.Image {
	var images []domain.Image
	seen := make(map[string]struct{})

	add := func(url, alt string) {
		if url == "" || alt == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		images = append(images, domain.Image{URL: url, Alt: alt})
	}

	if entry.Image != nil {
		alt := entry.Image.Title
		if alt == "" {
			alt = entry.Title
		}
		add(entry.Image.URL, alt)
	}
	for _, enc := range entry.Enclosures {
		if enc != nil && isImageType(enc.Type) {
			add(enc.URL, entry.Title)
		}
	}
	for _, img := range extract.Images(html) {
		add(img.URL, img.Alt)
	}
	return images
}

func isImageType(mime string) bool {
	return len(mime) > 6 && mime[:6] == "image/"
}
