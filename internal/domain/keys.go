package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// speedKeyIDLength is the number of hex characters kept from the hash when
// deriving a speed-index document ID.
const speedKeyIDLength = 32

// RssKey identifies a syndication entry within one source's short-term
// cache. Equality is structural, so RssKey is usable as a map key.
type RssKey struct {
	// Updated is the entry's updated timestamp (falling back to its
	// published timestamp) in Unix seconds; zero when the feed reports
	// neither.
	Updated int64 `json:"updated"`
	// Link is the entry's first link, or "" when the entry has none.
	Link string `json:"link"`
}

// ShortArticleKey identifies a syndication entry globally within the speed
// index.
type ShortArticleKey struct {
	RssKey
	// SourceID scopes the entry key to its source.
	SourceID string `json:"source_id"`
}

// DocumentID derives the deterministic speed-index document ID for the key.
// Same key always yields the same ID, which makes the fast duplicate check
// a single document lookup.
func (k ShortArticleKey) DocumentID() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", k.SourceID, k.Updated, k.Link)))
	return hex.EncodeToString(sum[:])[:speedKeyIDLength]
}

// SpeedIndexEntry is the document persisted to the speed index for a
// syndication article.
type SpeedIndexEntry struct {
	SourceID string `json:"source_id" mapstructure:"source_id"`
	Updated  int64  `json:"updated" mapstructure:"updated"`
	Link     string `json:"link" mapstructure:"link"`
}
