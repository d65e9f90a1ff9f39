package crawl_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsward/ingest/internal/config"
	"github.com/newsward/ingest/internal/crawl"
	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/logger"
	"github.com/newsward/ingest/internal/metrics"
)

func controllerConfig() *config.CrawlerConfig {
	return &config.CrawlerConfig{
		RssInterval:     time.Minute,
		WebsiteInterval: time.Minute,
		FetchTimeout:    5 * time.Second,
		KeyCacheSize:    100,
		DispatchWorkers: 2,
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestController_RoutesCandidates(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.respond("https://example.com/rss", feedXML)
	fetcher.respond("https://example.com/news", articlePage)

	store := &fakeSourceStore{sources: []domain.Source{
		*rssSource(),
		*websiteSource("", ""),
	}}
	indexer := &fakeIndexer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controller := crawl.NewController(controllerConfig(), store, indexer, fetcher, logger.NewNoOp(), metrics.New())
	require.NoError(t, controller.Start(ctx))
	defer controller.Stop()

	assert.Equal(t, 2, controller.CrawlerCount())

	waitFor(t, func() bool {
		return indexer.syndicationCount() == 2 && indexer.webCount() == 1
	}, "expected 2 feed candidates and 1 website candidate")
}

func TestController_BlacklistDropsCandidates(t *testing.T) {
	const page = `<html><head><title>Hello</title></head>
<body><p>This page is a spam alert in disguise.</p></body></html>`

	source := websiteSource("", "")
	source.Blacklist = []string{"spam alert"}

	fetcher := newFakeFetcher()
	fetcher.respond("https://example.com/news", page)

	store := &fakeSourceStore{sources: []domain.Source{*source}}
	indexer := &fakeIndexer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	controller := crawl.NewController(controllerConfig(), store, indexer, fetcher, logger.NewNoOp(), m)
	require.NoError(t, controller.Start(ctx))
	defer controller.Stop()

	waitFor(t, func() bool {
		return m.Snapshot().CandidatesBlacklisted == 1
	}, "expected the candidate to be dropped by the blacklist")
	assert.Zero(t, indexer.webCount(), "blacklisted candidate must not reach the indexer")
}

func TestController_RestartRebuildsCrawlers(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.respond("https://example.com/rss", feedXML, feedXML)

	store := &fakeSourceStore{sources: []domain.Source{*rssSource()}}
	indexer := &fakeIndexer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controller := crawl.NewController(controllerConfig(), store, indexer, fetcher, logger.NewNoOp(), metrics.New())
	require.NoError(t, controller.Start(ctx))
	defer controller.Stop()

	waitFor(t, func() bool { return indexer.syndicationCount() == 2 }, "initial crawl did not run")

	// A restart builds fresh crawlers with empty entry caches, so the same
	// feed emits again.
	require.NoError(t, controller.Restart(ctx))
	assert.Equal(t, 1, controller.CrawlerCount())

	waitFor(t, func() bool { return indexer.syndicationCount() == 4 }, "restarted crawler did not run")
}

func TestController_RestartOutlivesCallerContext(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.respond("https://example.com/rss", feedXML, feedXML)

	store := &fakeSourceStore{sources: []domain.Source{*rssSource()}}
	indexer := &fakeIndexer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controller := crawl.NewController(controllerConfig(), store, indexer, fetcher, logger.NewNoOp(), metrics.New())
	require.NoError(t, controller.Start(ctx))
	defer controller.Stop()

	waitFor(t, func() bool { return indexer.syndicationCount() == 2 }, "initial crawl did not run")

	// Restart from a short-lived context, as the HTTP restart route does.
	// The rebuilt crawlers must keep polling after it is cancelled.
	reqCtx, reqCancel := context.WithCancel(context.Background())
	require.NoError(t, controller.Restart(reqCtx))
	reqCancel()

	waitFor(t, func() bool { return indexer.syndicationCount() == 4 }, "restarted crawler did not run")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, controller.RunningCrawlerCount(), "crawler must survive the restart caller's context")
}

func TestController_RestartBeforeStartFails(t *testing.T) {
	controller := crawl.NewController(controllerConfig(), &fakeSourceStore{}, &fakeIndexer{}, newFakeFetcher(), logger.NewNoOp(), metrics.New())
	assert.Error(t, controller.Restart(context.Background()))
}

func TestController_StartFailsOnSourceError(t *testing.T) {
	store := &fakeSourceStore{err: errFetch}
	controller := crawl.NewController(controllerConfig(), store, &fakeIndexer{}, newFakeFetcher(), logger.NewNoOp(), metrics.New())

	assert.Error(t, controller.Start(context.Background()))
}

func TestController_StopIsIdempotent(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.respond("https://example.com/rss", feedXML)

	store := &fakeSourceStore{sources: []domain.Source{*rssSource()}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controller := crawl.NewController(controllerConfig(), store, &fakeIndexer{}, fetcher, logger.NewNoOp(), metrics.New())
	require.NoError(t, controller.Start(ctx))

	controller.Stop()
	controller.Stop()
	assert.Zero(t, controller.CrawlerCount())
}
