package index

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/robfig/cron/v3"

	"github.com/newsward/ingest/internal/config"
	"github.com/newsward/ingest/internal/logger"
	"github.com/newsward/ingest/internal/metrics"
	"github.com/newsward/ingest/internal/storage"
)

// Compactor periodically scans the permanent store for duplicate articles
// that slipped past the write-time checks and deletes all but one of each
// group. Documents are first bucketed by a cheap hash of title and excerpt;
// only buckets with more than one member are compared exactly.
type Compactor struct {
	storage  storage.Interface
	indices  storage.Indices
	pageSize int
	schedule string
	logger   logger.Interface
	metrics  *metrics.Metrics

	cron *cron.Cron
}

// compactDoc is the slice of an article the compactor compares on, fetched
// per contended bucket rather than held for the whole scan.
type compactDoc struct {
	ID        string `json:"id"`
	SourceID  string `json:"source_id"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	ImageLink string `json:"image_link"`
}

// exactKey groups documents that are true duplicates of each other.
type exactKey struct {
	text      string
	imageLink string
	sourceID  string
	title     string
}

// NewCompactor wires a compactor; Start schedules it, Run executes one pass.
func NewCompactor(
	store storage.Interface,
	indices storage.Indices,
	cfg *config.CompactorConfig,
	log logger.Interface,
	m *metrics.Metrics,
) *Compactor {
	return &Compactor{
		storage:  store,
		indices:  indices,
		pageSize: cfg.PageSize,
		schedule: cfg.Schedule,
		logger:   log.WithComponent("compactor"),
		metrics:  m,
		cron:     cron.New(),
	}
}

// Start registers the compaction pass on its cron schedule and starts the
// scheduler.
func (c *Compactor) Start(ctx context.Context) error {
	_, err := c.cron.AddFunc(c.schedule, func() {
		if runErr := c.Run(ctx); runErr != nil {
			c.logger.Error("Compaction pass failed", "error", runErr)
		}
	})
	if err != nil {
		return fmt.Errorf("compactor: invalid schedule %q: %w", c.schedule, err)
	}
	c.cron.Start()
	c.logger.Info("Compactor scheduled", "schedule", c.schedule)
	return nil
}

// Stop halts the scheduler; a pass already running finishes.
func (c *Compactor) Stop() {
	<-c.cron.Stop().Done()
}

// Run executes one compaction pass over the permanent store. The scroll
// scan keeps only document IDs per hash bucket so memory stays bounded by
// the store's ID count, not its content; full fields are re-fetched for the
// buckets that actually contend.
func (c *Compactor) Run(ctx context.Context) error {
	buckets := make(map[uint64][]string)

	scanErr := c.storage.ScrollAll(ctx, c.indices.Permanent, c.pageSize, func(hits []storage.Hit) error {
		for i := range hits {
			key := cheapHash(stringField(&hits[i], "title"), stringField(&hits[i], "short_text"))
			buckets[key] = append(buckets[key], hits[i].ID)
		}
		return nil
	})
	if scanErr != nil {
		return fmt.Errorf("compactor scan: %w", scanErr)
	}

	var deleted int64
	for _, ids := range buckets {
		if len(ids) < 2 {
			continue
		}
		n, delErr := c.compactBucket(ctx, ids)
		deleted += n
		if delErr != nil {
			return delErr
		}
	}

	if deleted > 0 {
		c.metrics.CompactorDeleted(deleted)
	}
	c.logger.Info("Compaction pass finished", "deleted", deleted, "buckets", len(buckets))
	return nil
}

// compactBucket fetches a hash bucket's documents, regroups them by exact
// equality and deletes every member of each exact group but the first.
func (c *Compactor) compactBucket(ctx context.Context, ids []string) (int64, error) {
	groups := make(map[exactKey][]compactDoc)
	for _, id := range ids {
		var doc compactDoc
		err := c.storage.GetDocument(ctx, c.indices.Permanent, id, &doc)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("compactor fetch %s: %w", id, err)
		}
		doc.ID = id
		key := exactKey{text: doc.Text, imageLink: doc.ImageLink, sourceID: doc.SourceID, title: doc.Title}
		groups[key] = append(groups[key], doc)
	}

	var deleted int64
	for _, group := range groups {
		for _, doc := range group[1:] {
			if err := c.storage.DeleteDocument(ctx, c.indices.Permanent, doc.ID); err != nil {
				return deleted, fmt.Errorf("compactor delete %s: %w", doc.ID, err)
			}
			deleted++
			c.logger.Debug("Duplicate article deleted", "id", doc.ID, "title", doc.Title)
		}
	}
	return deleted, nil
}

func stringField(hit *storage.Hit, field string) string {
	if v, ok := hit.Source[field].(string); ok {
		return v
	}
	return ""
}

// cheapHash buckets documents by title and excerpt before the exact
// comparison.
func cheapHash(title, shortText string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(shortText))
	return h.Sum64()
}
