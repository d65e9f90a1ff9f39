package crawl

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/logger"
	"github.com/newsward/ingest/internal/metrics"
)

// Crawler lifecycle states.
const (
	stateStopped int32 = iota
	stateRunning
	stateHalted
)

// Item is one candidate travelling from a crawler to the controller. Key is
// set only for entries taken off a feed's fast path; it selects the speed
// index duplicate check instead of the permanent store check.
type Item struct {
	Source    *domain.Source
	Candidate domain.Candidate
	Key       *domain.ShortArticleKey
}

// Strategy produces the items of one poll cycle for a source.
type Strategy interface {
	Name() string
	Tick(ctx context.Context) ([]Item, error)
}

// Dispatcher receives the items of one poll cycle and returns once every
// item has been fully processed.
type Dispatcher interface {
	Dispatch(ctx context.Context, items []Item)
}

// Crawler runs one source on an independent schedule: poll, hand the results
// to the dispatcher, wait for processing to finish, then sleep the full
// interval before the next poll. Slow processing therefore stretches the
// effective period instead of stacking polls. A Crawler is single-use; the
// controller builds a fresh set on every restart.
type Crawler struct {
	source     *domain.Source
	strategy   Strategy
	interval   time.Duration
	dispatcher Dispatcher
	logger     logger.Interface
	metrics    *metrics.Metrics

	state  atomic.Int32
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewCrawler creates a crawler for the source with the given poll interval.
func NewCrawler(
	source *domain.Source,
	strategy Strategy,
	interval time.Duration,
	dispatcher Dispatcher,
	log logger.Interface,
	m *metrics.Metrics,
) *Crawler {
	return &Crawler{
		source:     source,
		strategy:   strategy,
		interval:   interval,
		dispatcher: dispatcher,
		logger:     log.WithSource(source.ID).With("strategy", strategy.Name()),
		metrics:    m,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the polling goroutine. Calling Start on a crawler that is
// already running or has been stopped is a no-op.
func (c *Crawler) Start(ctx context.Context) {
	if !c.state.CompareAndSwap(stateStopped, stateRunning) {
		return
	}
	c.logger.Info("Starting crawler", "interval", c.interval.String())
	go c.run(ctx)
}

// Stop halts the crawler and blocks until an in-flight poll has finished.
// Stopping an idle or already-stopped crawler is a no-op.
func (c *Crawler) Stop() {
	if !c.state.CompareAndSwap(stateRunning, stateHalted) {
		return
	}
	close(c.stopCh)
	<-c.doneCh
	c.logger.Info("Crawler stopped")
}

// Running reports whether the polling goroutine is active.
func (c *Crawler) Running() bool {
	return c.state.Load() == stateRunning
}

func (c *Crawler) run(ctx context.Context) {
	defer close(c.doneCh)

	for {
		c.tick(ctx)

		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			c.state.Store(stateHalted)
			return
		case <-time.After(c.interval):
		}
	}
}

// tick runs one poll cycle. Failures are logged and swallowed so the
// schedule keeps running.
func (c *Crawler) tick(ctx context.Context) {
	items, err := c.strategy.Tick(ctx)
	if err != nil {
		c.metrics.FetchError()
		c.logger.Warn("Poll failed", "error", err)
		return
	}
	if len(items) == 0 {
		c.logger.Debug("Poll produced no new candidates")
		return
	}

	c.logger.Debug("Dispatching candidates", "count", len(items))
	c.dispatcher.Dispatch(ctx, items)
}
