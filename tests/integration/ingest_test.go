// Package integration_test verifies the indexing engine against a real
// Elasticsearch instance.
package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsward/ingest/internal/config"
	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/index"
	"github.com/newsward/ingest/internal/logger"
	"github.com/newsward/ingest/internal/metrics"
	"github.com/newsward/ingest/internal/storage"
	"github.com/newsward/ingest/tests/helpers"
)

// staticStore serves a fixed source/feed configuration.
type staticStore struct {
	sources []domain.Source
	filters []domain.FeedFilter
	feeds   []domain.Feed
}

func (s *staticStore) GetSources(context.Context) ([]domain.Source, error) {
	return s.sources, nil
}

func (s *staticStore) GetAllFeedFilters(context.Context) ([]domain.FeedFilter, error) {
	return s.filters, nil
}

func (s *staticStore) GetFeeds(context.Context) ([]domain.Feed, error) {
	return s.feeds, nil
}

func TestIntegration_IndexingEngine(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	esContainer, err := helpers.StartElasticsearch(ctx)
	require.NoError(t, err, "failed to start Elasticsearch container")
	defer func() {
		_ = esContainer.Stop(ctx)
	}()

	esConfig := &config.ElasticsearchConfig{
		Addresses:   esContainer.GetAddresses(),
		Username:    "elastic",
		Password:    helpers.ElasticsearchPassword,
		IndexPrefix: "ingest_test",
	}

	log := logger.NewNoOp()
	client, err := storage.NewClient(ctx, esConfig, log)
	require.NoError(t, err, "failed to create Elasticsearch client")
	store := storage.New(client, log)

	configStore := &staticStore{
		sources: []domain.Source{
			{ID: "src-1", Name: "Example", URI: "https://example.com", ContentType: domain.ContentTypeWebsite},
		},
		filters: []domain.FeedFilter{
			{FeedID: "feed-1", Keywords: []string{"golang"}},
		},
		feeds: []domain.Feed{
			{
				ID:        "feed-1",
				Name:      "Go news",
				SourceIDs: []string{"src-1"},
				Filter:    domain.FeedFilter{FeedID: "feed-1", Keywords: []string{"golang"}},
			},
		},
	}

	indices := storage.NewIndices(esConfig.IndexPrefix)
	superset := index.NewSuperset(configStore, 30*time.Second, log)
	engine := index.NewEngine(store, indices, superset, &config.IndexerConfig{
		SupersetTTL:     30 * time.Second,
		FeedQueryWindow: 30 * 24 * time.Hour,
	}, log, metrics.New())

	require.NoError(t, engine.EnsureIndexes(ctx), "failed to ensure indexes")
	for _, idx := range indices.All() {
		exists, existsErr := store.IndexExists(ctx, idx)
		require.NoError(t, existsErr)
		assert.True(t, exists, "index %s should exist", idx)
	}

	relevant := &domain.Candidate{
		SourceID:     "src-1",
		Title:        "New golang release",
		Body:         "The golang team shipped a new release with faster builds.",
		Link:         "https://example.com/golang-release",
		PublishedAt:  time.Now().UTC(),
		DiscoveredAt: time.Now().UTC(),
	}
	require.NoError(t, engine.IndexWebArticle(ctx, relevant), "failed to index web article")

	irrelevant := &domain.Candidate{
		SourceID:     "src-1",
		Title:        "Gardening tips",
		Body:         "How to keep tomatoes alive through a dry summer.",
		Link:         "https://example.com/tomatoes",
		PublishedAt:  time.Now().UTC(),
		DiscoveredAt: time.Now().UTC(),
	}
	require.NoError(t, engine.IndexWebArticle(ctx, irrelevant), "failed to process irrelevant article")

	// Re-submitting the same web article must be suppressed as a duplicate.
	require.NoError(t, engine.IndexWebArticle(ctx, relevant))

	articles, err := engine.GetFeed(ctx, &configStore.feeds[0], time.Time{}, 0, 10, nil)
	require.NoError(t, err, "failed to read feed")
	require.Len(t, articles, 1, "only the relevant article should be promoted, exactly once")
	assert.Equal(t, "New golang release", articles[0].Title)

	fetched, err := engine.GetArticleByID(ctx, articles[0].ID)
	require.NoError(t, err, "failed to fetch article by id")
	assert.Equal(t, articles[0].Text, fetched.Text)

	// Syndication path: the same entry key is indexed only once.
	key := domain.ShortArticleKey{
		RssKey:   domain.RssKey{Updated: time.Now().Unix(), Link: "https://example.com/feed-item"},
		SourceID: "src-1",
	}
	entry := &domain.Candidate{
		SourceID:     "src-1",
		Title:        "golang feed entry",
		Body:         "A golang article delivered over the feed.",
		Link:         "https://example.com/feed-item",
		PublishedAt:  time.Now().UTC(),
		DiscoveredAt: time.Now().UTC(),
	}
	require.NoError(t, engine.IndexSyndicationArticle(ctx, entry, key))
	require.NoError(t, engine.IndexSyndicationArticle(ctx, entry, key))

	articles, err = engine.GetFeed(ctx, &configStore.feeds[0], time.Time{}, 0, 10, nil)
	require.NoError(t, err)
	require.Len(t, articles, 2, "feed entry should be indexed exactly once")

	// Clearing drops everything but leaves the indexes usable.
	require.NoError(t, engine.ClearAllIndexes(ctx), "failed to clear indexes")
	articles, err = engine.GetFeed(ctx, &configStore.feeds[0], time.Time{}, 0, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, articles, "cleared store should serve an empty feed")
}
