package sources_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsward/ingest/internal/config"
	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/logger"
	"github.com/newsward/ingest/internal/sources"
)

const sourcesYAML = `sources:
  - id: city-rss
    name: City Desk Feed
    uri: https://example.com/rss
    content_type: rss
  - id: city-web
    name: City Desk
    uri: https://example.com/news
    content_type: website
    xpath: //div[@class="article"]
    blacklist:
      - spam alert
feeds:
  - id: harbor
    name: Harbor news
    source_ids: [city-rss, city-web]
    keywords: [harbor, port]
    blacklist: [advertisement]
`

func writeSourcesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileStore_GetSources(t *testing.T) {
	store := sources.NewFileStore(writeSourcesFile(t, sourcesYAML), logger.NewNoOp())

	srcs, err := store.GetSources(context.Background())
	require.NoError(t, err)
	require.Len(t, srcs, 2)

	assert.Equal(t, "city-rss", srcs[0].ID)
	assert.Equal(t, domain.ContentTypeRss, srcs[0].ContentType)
	assert.False(t, srcs[0].HasExtraction())

	assert.Equal(t, "city-web", srcs[1].ID)
	assert.Equal(t, domain.ContentTypeWebsite, srcs[1].ContentType)
	assert.True(t, srcs[1].HasExtraction())
	assert.Equal(t, []string{"spam alert"}, srcs[1].Blacklist)
}

func TestFileStore_GetFeedsAndFilters(t *testing.T) {
	store := sources.NewFileStore(writeSourcesFile(t, sourcesYAML), logger.NewNoOp())

	feeds, err := store.GetFeeds(context.Background())
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "harbor", feeds[0].ID)
	assert.Equal(t, []string{"city-rss", "city-web"}, feeds[0].SourceIDs)
	assert.Equal(t, []string{"harbor", "port"}, feeds[0].Filter.Keywords)

	filters, err := store.GetAllFeedFilters(context.Background())
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "harbor", filters[0].FeedID)
	assert.Equal(t, []string{"advertisement"}, filters[0].Blacklist)
}

func TestFileStore_EmptySources(t *testing.T) {
	store := sources.NewFileStore(writeSourcesFile(t, "sources: []\n"), logger.NewNoOp())

	_, err := store.GetSources(context.Background())
	assert.ErrorIs(t, err, sources.ErrNoSources)
}

func TestFileStore_MissingFile(t *testing.T) {
	store := sources.NewFileStore(filepath.Join(t.TempDir(), "absent.yaml"), logger.NewNoOp())

	_, err := store.GetSources(context.Background())
	assert.Error(t, err)
}

func TestNewStore_SelectsBackend(t *testing.T) {
	path := writeSourcesFile(t, sourcesYAML)

	store, err := sources.NewStore(&config.SourcesConfig{Backend: "file", File: path}, logger.NewNoOp())
	require.NoError(t, err)
	assert.IsType(t, &sources.FileStore{}, store)

	_, err = sources.NewStore(&config.SourcesConfig{Backend: "carrier-pigeon"}, logger.NewNoOp())
	assert.Error(t, err)
}
