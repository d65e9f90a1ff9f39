package crawl

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/newsward/ingest/internal/config"
	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/logger"
	"github.com/newsward/ingest/internal/metrics"
	"github.com/newsward/ingest/internal/sources"
)

// Indexer is the controller's view of the indexing engine: one write entry
// point per crawler variant.
type Indexer interface {
	IndexWebArticle(ctx context.Context, candidate *domain.Candidate) error
	IndexSyndicationArticle(ctx context.Context, candidate *domain.Candidate, key domain.ShortArticleKey) error
}

// envelope pairs an item with the WaitGroup of its dispatch call, so the
// dispatching crawler can block until its whole batch is processed.
type envelope struct {
	item Item
	wg   *sync.WaitGroup
}

// Controller owns the crawler set. It builds one crawler per configured
// source, funnels their candidates through a worker pool into the indexing
// engine, and applies each source's blacklist before indexing. Restart is
// serialized so concurrent restart requests cannot interleave teardown and
// rebuild.
type Controller struct {
	cfg     *config.CrawlerConfig
	store   sources.Store
	indexer Indexer
	fetcher Fetcher
	logger  logger.Interface
	metrics *metrics.Metrics

	mu       sync.Mutex
	crawlers []*Crawler
	ch       chan envelope
	started  bool
	// runCtx is the context Start was given; crawlers rebuilt on Restart
	// run on it, not on the restart caller's (often request-scoped) context.
	runCtx context.Context
}

// NewController wires a controller; Start must be called before it does
// anything.
func NewController(
	cfg *config.CrawlerConfig,
	store sources.Store,
	indexer Indexer,
	fetcher Fetcher,
	log logger.Interface,
	m *metrics.Metrics,
) *Controller {
	return &Controller{
		cfg:     cfg,
		store:   store,
		indexer: indexer,
		fetcher: fetcher,
		logger:  log.WithComponent("crawler-controller"),
		metrics: m,
		ch:      make(chan envelope),
	}
}

// Start loads the sources, builds and launches the crawlers, and starts the
// dispatch workers. It returns an error only when sources cannot be loaded
// or a source configuration is invalid; crawl failures afterwards are
// absorbed by the individual crawlers.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		c.runCtx = ctx
		for i := 0; i < c.cfg.DispatchWorkers; i++ {
			go c.worker(ctx)
		}
		c.started = true
	}

	return c.buildAndStart(ctx)
}

// Stop halts all crawlers, waiting for in-flight polls to finish.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopAll()
}

// Restart tears the crawler set down, reloads the source configuration and
// brings a fresh set up. Concurrent restarts are serialized; each caller's
// restart fully completes before the next begins. The caller's context
// scopes the source reload only; the new crawlers run on the context Start
// was given.
func (c *Controller) Restart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return fmt.Errorf("controller: restart before start")
	}

	c.logger.Info("Restarting crawlers")
	c.stopAll()
	return c.buildAndStart(ctx)
}

// CrawlerCount returns the number of managed crawlers.
func (c *Controller) CrawlerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.crawlers)
}

// RunningCrawlerCount returns how many managed crawlers are actively
// polling.
func (c *Controller) RunningCrawlerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, crawler := range c.crawlers {
		if crawler.Running() {
			n++
		}
	}
	return n
}

// Dispatch hands a poll cycle's items to the worker pool and blocks until
// every item has been processed.
func (c *Controller) Dispatch(ctx context.Context, items []Item) {
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		select {
		case c.ch <- envelope{item: items[i], wg: &wg}:
		case <-ctx.Done():
			wg.Done()
		}
	}
	wg.Wait()
}

// buildAndStart creates and launches one crawler per source. Callers hold
// c.mu.
func (c *Controller) buildAndStart(ctx context.Context) error {
	srcs, err := c.store.GetSources(ctx)
	if err != nil {
		return fmt.Errorf("controller: load sources: %w", err)
	}

	crawlers := make([]*Crawler, 0, len(srcs))
	for i := range srcs {
		source := &srcs[i]
		strategy, strategyErr := c.newStrategy(source, c.fetcher)
		if strategyErr != nil {
			return strategyErr
		}
		interval := c.cfg.Interval(string(source.ContentType))
		crawlers = append(crawlers, NewCrawler(source, strategy, interval, c, c.logger, c.metrics))
	}

	c.crawlers = crawlers
	for _, crawler := range c.crawlers {
		crawler.Start(c.runCtx)
	}
	c.logger.Info("Crawlers started", "count", len(c.crawlers))
	return nil
}

func (c *Controller) newStrategy(source *domain.Source, fetcher Fetcher) (Strategy, error) {
	switch source.ContentType {
	case domain.ContentTypeRss:
		return NewRSS(source, fetcher, c.cfg.KeyCacheSize)
	case domain.ContentTypeWebsite:
		return NewWebsite(source, fetcher)
	default:
		return nil, fmt.Errorf("controller: source %s: unknown content type %q", source.ID, source.ContentType)
	}
}

// stopAll halts every crawler and forgets the set. Callers hold c.mu.
func (c *Controller) stopAll() {
	for _, crawler := range c.crawlers {
		crawler.Stop()
	}
	c.crawlers = nil
}

func (c *Controller) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-c.ch:
			c.process(ctx, env.item)
			env.wg.Done()
		}
	}
}

// process applies the source blacklist and forwards the candidate to the
// matching indexing entry point. Indexing failures are logged and dropped;
// one bad candidate must not sink the batch.
func (c *Controller) process(ctx context.Context, item Item) {
	c.metrics.CandidateExtracted()

	if hit := blacklisted(item.Source.Blacklist, &item.Candidate); hit != "" {
		c.metrics.CandidateBlacklisted()
		c.logger.Debug("Candidate blacklisted",
			"source_id", item.Source.ID,
			"title", item.Candidate.Title,
			"term", hit)
		return
	}

	var err error
	if item.Key != nil {
		err = c.indexer.IndexSyndicationArticle(ctx, &item.Candidate, *item.Key)
	} else {
		err = c.indexer.IndexWebArticle(ctx, &item.Candidate)
	}
	if err != nil {
		c.logger.Error("Indexing candidate failed",
			"source_id", item.Source.ID,
			"title", item.Candidate.Title,
			"error", err)
	}
}

// blacklisted returns the first blacklist term found in the candidate's
// title or body, or "". Matching is case-sensitive substring containment.
func blacklisted(terms []string, candidate *domain.Candidate) string {
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(candidate.Title, term) || strings.Contains(candidate.Body, term) {
			return term
		}
	}
	return ""
}
