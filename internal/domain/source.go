// Package domain provides domain models used across the application.
package domain

// ContentType identifies how a source's content is fetched and extracted.
type ContentType string

const (
	// ContentTypeWebsite marks a source as an arbitrary web page.
	ContentTypeWebsite ContentType = "website"
	// ContentTypeRss marks a source as a syndication feed.
	ContentTypeRss ContentType = "rss"
)

// Source is the configuration of one content source. A Source is immutable
// once loaded into a running crawler; configuration changes require
// restarting the crawler set.
type Source struct {
	// ID is the unique identifier for the source.
	ID string `json:"id" yaml:"id" db:"id"`
	// Name is the display name of the source.
	Name string `json:"name" yaml:"name" db:"name"`
	// URI is the fetch location (feed URL or page URL).
	URI string `json:"uri" yaml:"uri" db:"uri"`
	// ContentType selects the crawler variant for this source.
	ContentType ContentType `json:"content_type" yaml:"content_type" db:"content_type"`
	// Regex optionally narrows extraction to pattern matches.
	Regex string `json:"regex,omitempty" yaml:"regex" db:"regex"`
	// XPath optionally narrows extraction to selected nodes.
	XPath string `json:"xpath,omitempty" yaml:"xpath" db:"xpath"`
	// Blacklist holds case-sensitive substrings; a candidate whose title or
	// body contains any of them is dropped before indexing.
	Blacklist []string `json:"blacklist,omitempty" yaml:"blacklist"`
}

// HasExtraction reports whether the source declares a regex or XPath.
func (s *Source) HasExtraction() bool {
	return s.Regex != "" || s.XPath != ""
}

// FeedFilter is one feed's keyword/blacklist definition, as stored in the
// configuration collaborator. The union of all filters' keywords forms the
// superset relevance filter.
type FeedFilter struct {
	// FeedID identifies the feed the filter belongs to.
	FeedID string `json:"feed_id" yaml:"feed_id" db:"feed_id"`
	// Keywords a document must match (in title or body) to be relevant.
	Keywords []string `json:"keywords" yaml:"keywords"`
	// Blacklist keywords excluded from the feed's own keyword set.
	Blacklist []string `json:"blacklist,omitempty" yaml:"blacklist"`
}

// Feed describes a user-facing feed: the sources it draws from and its
// keyword/blacklist filter. Feeds are read-side only; the ingestion path
// never consults individual feeds.
type Feed struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	SourceIDs []string `json:"source_ids" yaml:"source_ids"`
	Filter    FeedFilter
}

// UserSettings holds the feeds belonging to one user, used by the combined
// feed query.
type UserSettings struct {
	UserID string `json:"user_id"`
	Feeds  []Feed `json:"feeds"`
}
