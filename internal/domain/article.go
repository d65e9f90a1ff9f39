package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// ShortTextLength is the maximum length of an article's listing excerpt.
const ShortTextLength = 400

// shortTextEllipsis is appended when the body is truncated for listings.
const shortTextEllipsis = "..."

// Image is an extracted (url, alt text) pair.
type Image struct {
	// URL is the image source location.
	URL string `json:"url"`
	// Alt is the image's alternative text.
	Alt string `json:"alt"`
}

// Candidate is an extracted, not-yet-indexed piece of content awaiting
// duplicate and relevance evaluation. Candidates are produced fresh on
// every extraction and never mutated.
type Candidate struct {
	// SourceID identifies the source the candidate was extracted from.
	SourceID string `json:"source_id"`
	// Title of the candidate article.
	Title string `json:"title"`
	// Body is the extracted plain text.
	Body string `json:"body"`
	// Link points at the original content; may be empty (link quality is
	// not validated during extraction).
	Link string `json:"link"`
	// Images are the (url, alt) pairs found in the candidate's HTML fragment.
	Images []Image `json:"images,omitempty"`
	// PublishedAt is the publish time reported by the source.
	PublishedAt time.Time `json:"published_at"`
	// DiscoveredAt is when the crawler extracted the candidate.
	DiscoveredAt time.Time `json:"discovered_at"`
}

// ImageLink returns the URL of the candidate's first image, or "".
func (c *Candidate) ImageLink() string {
	if len(c.Images) == 0 {
		return ""
	}
	return c.Images[0].URL
}

// Article is a promoted, queryable document in the permanent store.
type Article struct {
	// ID is the unique identifier for the article.
	ID string `json:"id" mapstructure:"id"`
	// SourceID identifies the originating source.
	SourceID string `json:"source_id" mapstructure:"source_id"`
	// Title of the article.
	Title string `json:"title" mapstructure:"title"`
	// Text is the full body, used for detail views and duplicate comparison.
	Text string `json:"text" mapstructure:"text"`
	// ShortText is the truncated body used for listings.
	ShortText string `json:"short_text" mapstructure:"short_text"`
	// Link points at the original content.
	Link string `json:"link" mapstructure:"link"`
	// ImageLink is the URL of the article's lead image. Always serialized,
	// even when empty: the duplicate check matches on it with an exact term.
	ImageLink string `json:"image_link" mapstructure:"image_link"`
	// TextHash is a digest of Text, used for exact-duplicate matching
	// regardless of body length.
	TextHash string `json:"text_hash" mapstructure:"text_hash"`
	// PublishedAt is the publish time reported by the source.
	PublishedAt time.Time `json:"published_at" mapstructure:"published_at"`
	// DiscoveredAt is when the crawler extracted the article.
	DiscoveredAt time.Time `json:"discovered_at" mapstructure:"discovered_at"`
	// IndexedAt is when the article was written to the store.
	IndexedAt time.Time `json:"indexed_at" mapstructure:"indexed_at"`
}

// NewArticle builds an Article from a candidate, assigning the given id and
// deriving the listing excerpt.
func NewArticle(id string, c *Candidate) *Article {
	return &Article{
		ID:           id,
		SourceID:     c.SourceID,
		Title:        c.Title,
		Text:         c.Body,
		ShortText:    Shorten(c.Body, ShortTextLength),
		Link:         c.Link,
		ImageLink:    c.ImageLink(),
		TextHash:     TextHash(c.Body),
		PublishedAt:  c.PublishedAt,
		DiscoveredAt: c.DiscoveredAt,
		IndexedAt:    time.Now().UTC(),
	}
}

// TextHash returns the hex digest of an article body.
func TextHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Shorten truncates s to at most max characters, appending an ellipsis when
// truncation occurred.
func Shorten(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + shortTextEllipsis
}
