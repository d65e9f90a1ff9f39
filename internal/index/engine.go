// Package index implements the indexing engine: duplicate suppression, the
// temporary-index promotion protocol with its relevance gate, the feed read
// queries and the duplicate compactor.
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newsward/ingest/internal/config"
	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/logger"
	"github.com/newsward/ingest/internal/metrics"
	"github.com/newsward/ingest/internal/storage"
)

// Engine is the single write funnel into the article indexes. Every
// candidate enters through IndexWebArticle or IndexSyndicationArticle,
// passes the variant's duplicate check, and then runs the promotion
// protocol: stage in the temporary index, test relevance against the
// keyword superset, copy to the permanent index when relevant, and always
// remove the staged copy.
type Engine struct {
	storage  storage.Interface
	indices  storage.Indices
	superset *Superset
	// feedWindow bounds how far back the feed queries look.
	feedWindow time.Duration
	logger     logger.Interface
	metrics    *metrics.Metrics

	// writeMu serializes promotions when configured; nil otherwise.
	writeMu *sync.Mutex
}

// NewEngine wires an indexing engine.
func NewEngine(
	store storage.Interface,
	indices storage.Indices,
	superset *Superset,
	cfg *config.IndexerConfig,
	log logger.Interface,
	m *metrics.Metrics,
) *Engine {
	e := &Engine{
		storage:    store,
		indices:    indices,
		superset:   superset,
		feedWindow: cfg.FeedQueryWindow,
		logger:     log.WithComponent("indexer"),
		metrics:    m,
	}
	if cfg.SerializeWrites {
		e.writeMu = &sync.Mutex{}
	}
	return e
}

// IndexWebArticle indexes a candidate extracted from a web page. The
// duplicate check searches the permanent store for an article with the same
// source, title, text and image link; a backend failure during the check is
// treated as "no duplicate" so indexing never stalls on a flaky search.
func (e *Engine) IndexWebArticle(ctx context.Context, candidate *domain.Candidate) error {
	dup, err := e.existsInPermanent(ctx, candidate)
	if err != nil {
		e.logger.Warn("Permanent-store duplicate check failed, indexing anyway",
			"source_id", candidate.SourceID,
			"title", candidate.Title,
			"error", err)
	}
	if dup {
		e.metrics.DuplicateSuppressed()
		e.logger.Debug("Duplicate web article suppressed",
			"source_id", candidate.SourceID,
			"title", candidate.Title)
		return nil
	}
	return e.promote(ctx, candidate)
}

// IndexSyndicationArticle indexes a candidate taken off a feed's fast path.
// The duplicate check is a single lookup in the speed index by the entry
// key's deterministic document ID; a backend failure again fails open. After
// the promotion attempt the entry key is recorded so the same feed entry is
// not reconsidered, whether or not it proved relevant.
func (e *Engine) IndexSyndicationArticle(ctx context.Context, candidate *domain.Candidate, key domain.ShortArticleKey) error {
	docID := key.DocumentID()

	var entry domain.SpeedIndexEntry
	err := e.storage.GetDocument(ctx, e.indices.Speed, docID, &entry)
	switch {
	case err == nil:
		e.metrics.DuplicateSuppressed()
		e.logger.Debug("Duplicate feed entry suppressed",
			"source_id", candidate.SourceID,
			"link", key.Link)
		return nil
	case errors.Is(err, storage.ErrNotFound):
	default:
		e.logger.Warn("Speed-index duplicate check failed, indexing anyway",
			"source_id", candidate.SourceID,
			"link", key.Link,
			"error", err)
	}

	if promoteErr := e.promote(ctx, candidate); promoteErr != nil {
		return promoteErr
	}

	record := domain.SpeedIndexEntry{SourceID: key.SourceID, Updated: key.Updated, Link: key.Link}
	if writeErr := e.storage.IndexDocument(ctx, e.indices.Speed, docID, record); writeErr != nil {
		return fmt.Errorf("record speed-index entry: %w", writeErr)
	}
	return nil
}

// promote runs the staging protocol for one candidate. The staged document
// is removed on every path out, including failures after the staging write.
func (e *Engine) promote(ctx context.Context, candidate *domain.Candidate) error {
	if e.writeMu != nil {
		e.writeMu.Lock()
		defer e.writeMu.Unlock()
	}

	id := uuid.NewString()
	article := domain.NewArticle(id, candidate)

	if err := e.storage.IndexDocument(ctx, e.indices.Temporary, id, article); err != nil {
		return fmt.Errorf("stage article: %w", err)
	}
	defer func() {
		if err := e.storage.DeleteDocument(ctx, e.indices.Temporary, id); err != nil {
			e.logger.Warn("Removing staged article failed", "id", id, "error", err)
		}
	}()

	if !e.isRelevant(ctx, article) {
		e.metrics.ArticleIrrelevant()
		e.logger.Debug("Article not relevant to any feed",
			"source_id", article.SourceID,
			"title", article.Title)
		return nil
	}

	if err := e.storage.IndexDocument(ctx, e.indices.Permanent, id, article); err != nil {
		return fmt.Errorf("promote article: %w", err)
	}

	e.metrics.ArticlePromoted()
	e.logger.Info("Article indexed",
		"id", id,
		"source_id", article.SourceID,
		"title", article.Title)
	return nil
}

// isRelevant searches the temporary index for the staged article under the
// superset keyword filter. The query is pinned to the article's own document
// ID, so concurrent stagings of other matching articles cannot crowd it out
// of the result page. An empty superset or a failed search counts as not
// relevant.
func (e *Engine) isRelevant(ctx context.Context, article *domain.Article) bool {
	keywords := e.superset.Keywords(ctx)
	if len(keywords) == 0 {
		return false
	}

	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []map[string]any{
					{"ids": map[string]any{"values": []string{article.ID}}},
					{"term": map[string]any{"source_id": article.SourceID}},
				},
				"must": []map[string]any{
					keywordQuery(keywords),
				},
			},
		},
		"size": 1,
	}

	hits, err := e.storage.Search(ctx, e.indices.Temporary, query)
	if err != nil {
		e.logger.Warn("Relevance check failed", "id", article.ID, "error", err)
		return false
	}
	for i := range hits {
		if hits[i].ID == article.ID {
			return true
		}
	}
	return false
}

// existsInPermanent reports whether the permanent store already holds an
// article matching the candidate on all of source, title, text digest and
// image link. The body is compared through its hash so the check works for
// bodies of any length; image_link is always serialized, so the term matches
// imageless articles too.
func (e *Engine) existsInPermanent(ctx context.Context, candidate *domain.Candidate) (bool, error) {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []map[string]any{
					{"term": map[string]any{"source_id": candidate.SourceID}},
					{"term": map[string]any{"title.keyword": candidate.Title}},
					{"term": map[string]any{"text_hash": domain.TextHash(candidate.Body)}},
					{"term": map[string]any{"image_link": candidate.ImageLink()}},
				},
			},
		},
		"size": 1,
	}

	hits, err := e.storage.Search(ctx, e.indices.Permanent, query)
	if err != nil {
		return false, err
	}
	return len(hits) > 0, nil
}

// EnsureIndexes creates any of the three article indexes that do not exist
// yet.
func (e *Engine) EnsureIndexes(ctx context.Context) error {
	for _, index := range e.indices.All() {
		exists, err := e.storage.IndexExists(ctx, index)
		if err != nil {
			return fmt.Errorf("check index %s: %w", index, err)
		}
		if exists {
			continue
		}
		if err := e.storage.CreateIndex(ctx, index, e.indices.Mapping(index)); err != nil {
			return fmt.Errorf("create index %s: %w", index, err)
		}
		e.logger.Info("Index created", "index", index)
	}
	return nil
}

// ClearAllIndexes drops and recreates all three article indexes, losing
// their contents.
func (e *Engine) ClearAllIndexes(ctx context.Context) error {
	for _, index := range e.indices.All() {
		if err := e.storage.DeleteIndex(ctx, index); err != nil {
			return fmt.Errorf("delete index %s: %w", index, err)
		}
		if err := e.storage.CreateIndex(ctx, index, e.indices.Mapping(index)); err != nil {
			return fmt.Errorf("recreate index %s: %w", index, err)
		}
		e.logger.Info("Index cleared", "index", index)
	}
	return nil
}

// keywordQuery builds a simple_query_string clause matching any of the
// keywords in an article's title or text.
func keywordQuery(keywords []string) map[string]any {
	quoted := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		quoted = append(quoted, `"`+keyword+`"`)
	}
	return map[string]any{
		"simple_query_string": map[string]any{
			"query":            strings.Join(quoted, " | "),
			"fields":           []string{"title", "text"},
			"default_operator": "or",
		},
	}
}
