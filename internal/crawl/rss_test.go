package crawl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsward/ingest/internal/crawl"
	"github.com/newsward/ingest/internal/domain"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Example Feed</title>
	<link>https://example.com</link>
	<item>
		<title>Harbor expansion approved</title>
		<link>https://example.com/harbor</link>
		<pubDate>Mon, 02 Feb 2026 10:00:00 GMT</pubDate>
		<description>&lt;p&gt;The council approved the harbor expansion.&lt;/p&gt;</description>
		<enclosure url="https://example.com/harbor.jpg" type="image/jpeg" length="1024"/>
	</item>
	<item>
		<title>Airport delays continue</title>
		<link>https://example.com/airport</link>
		<pubDate>Mon, 02 Feb 2026 11:00:00 GMT</pubDate>
		<description>&lt;p&gt;Fog kept planes grounded all morning.&lt;/p&gt;</description>
	</item>
</channel>
</rss>`

func rssSource() *domain.Source {
	return &domain.Source{
		ID:          "feed-src",
		Name:        "Example Feed",
		URI:         "https://example.com/rss",
		ContentType: domain.ContentTypeRss,
	}
}

func TestRSS_EmitsFreshEntries(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.respond("https://example.com/rss", feedXML)

	rss, err := crawl.NewRSS(rssSource(), fetcher, 100)
	require.NoError(t, err)

	items, err := rss.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "Harbor expansion approved", first.Candidate.Title)
	assert.Equal(t, "The council approved the harbor expansion.", first.Candidate.Body)
	assert.Equal(t, "https://example.com/harbor", first.Candidate.Link)
	assert.Equal(t, []domain.Image{
		{URL: "https://example.com/harbor.jpg", Alt: "Harbor expansion approved"},
	}, first.Candidate.Images)
	assert.False(t, first.Candidate.PublishedAt.IsZero())

	require.NotNil(t, first.Key, "feed entries carry their entry key")
	assert.Equal(t, "feed-src", first.Key.SourceID)
	assert.Equal(t, "https://example.com/harbor", first.Key.Link)
	assert.NotZero(t, first.Key.Updated)
}

func TestRSS_SeenEntriesSkipped(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.respond("https://example.com/rss", feedXML, feedXML)

	rss, err := crawl.NewRSS(rssSource(), fetcher, 100)
	require.NoError(t, err)

	items, err := rss.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	items, err = rss.Tick(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items, "unchanged entries must not re-emit")
}

func TestRSS_DelegatesToWebsiteExtraction(t *testing.T) {
	source := rssSource()
	source.Regex = `council approved the \w+ expansion\.`

	fetcher := newFakeFetcher()
	fetcher.respond("https://example.com/rss", feedXML, feedXML)

	rss, err := crawl.NewRSS(source, fetcher, 100)
	require.NoError(t, err)

	items, err := rss.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1, "only the matching entry yields a candidate")

	candidate := items[0].Candidate
	assert.Equal(t, "Harbor expansion approved", candidate.Title, "entry title wins over extracted title")
	assert.Equal(t, "council approved the harbor expansion.", candidate.Body)
	assert.Equal(t, "https://example.com/harbor", candidate.Link)
	assert.Nil(t, items[0].Key, "delegated extraction bypasses the entry key fast path")

	// Delegation does not consult the entry cache, so entries re-emit.
	items, err = rss.Tick(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRSS_UnparsableFeed(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.respond("https://example.com/rss", "not a feed at all")

	rss, err := crawl.NewRSS(rssSource(), fetcher, 100)
	require.NoError(t, err)

	_, err = rss.Tick(context.Background())
	assert.Error(t, err)
}
