package index

import (
	"context"
	"fmt"
	"time"

	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/storage"
)

// overFetchFactor compensates for rows lost to in-memory deduplication: each
// page is fetched at twice the requested size before duplicates are dropped.
const overFetchFactor = 2

// GetFeed returns one page of a feed: articles from the feed's sources
// indexed at or after since, matching the feed's keywords, minus the union
// of the feed's blacklist and the caller-supplied unit blacklist, newest
// first. A zero since falls back to the configured feed query window.
// Near-duplicate rows sharing a title and excerpt are collapsed to one.
func (e *Engine) GetFeed(
	ctx context.Context,
	feed *domain.Feed,
	since time.Time,
	page, pageSize int,
	unitBlacklist []string,
) ([]domain.Article, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("get feed: page size must be positive, got %d", pageSize)
	}
	if page < 0 {
		page = 0
	}

	query := e.pagedQuery(feedClause(feed, unitBlacklist), since, page, pageSize)
	hits, err := e.storage.Search(ctx, e.indices.Permanent, query)
	if err != nil {
		return nil, fmt.Errorf("get feed %s: %w", feed.ID, err)
	}

	articles, err := decodeArticles(hits)
	if err != nil {
		return nil, fmt.Errorf("get feed %s: %w", feed.ID, err)
	}

	type listKey struct{ title, shortText string }
	deduped := dedupe(articles, func(a *domain.Article) listKey {
		return listKey{a.Title, a.ShortText}
	})
	return truncate(deduped, pageSize), nil
}

// GetCombinedFeed returns one merged page across all of a user's feeds. No
// blacklist is applied at this level; callers wanting exclusions filter per
// feed. Deduplication additionally compares the full text, so two feeds
// surfacing articles that differ only beyond the excerpt both stay visible.
func (e *Engine) GetCombinedFeed(
	ctx context.Context,
	settings *domain.UserSettings,
	since time.Time,
	page, pageSize int,
) ([]domain.Article, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("get combined feed: page size must be positive, got %d", pageSize)
	}
	if page < 0 {
		page = 0
	}
	if len(settings.Feeds) == 0 {
		return []domain.Article{}, nil
	}

	should := make([]map[string]any, 0, len(settings.Feeds))
	for i := range settings.Feeds {
		should = append(should, combinedFeedClause(&settings.Feeds[i]))
	}
	clause := map[string]any{
		"bool": map[string]any{
			"should":               should,
			"minimum_should_match": 1,
		},
	}

	query := e.pagedQuery(clause, since, page, pageSize)
	hits, err := e.storage.Search(ctx, e.indices.Permanent, query)
	if err != nil {
		return nil, fmt.Errorf("get combined feed: %w", err)
	}

	articles, err := decodeArticles(hits)
	if err != nil {
		return nil, fmt.Errorf("get combined feed: %w", err)
	}

	type combinedKey struct{ title, shortText, text string }
	deduped := dedupe(articles, func(a *domain.Article) combinedKey {
		return combinedKey{a.Title, a.ShortText, a.Text}
	})
	return truncate(deduped, pageSize), nil
}

// GetArticleByID fetches one article from the permanent store. Returns
// storage.ErrNotFound when no such article exists.
func (e *Engine) GetArticleByID(ctx context.Context, id string) (*domain.Article, error) {
	var article domain.Article
	if err := e.storage.GetDocument(ctx, e.indices.Permanent, id, &article); err != nil {
		return nil, fmt.Errorf("get article %s: %w", id, err)
	}
	return &article, nil
}

// pagedQuery wraps a match clause with the recency bound, sort order and
// over-fetched pagination shared by the feed reads. The offset advances by
// the requested page size; only the fetch size is doubled, so consecutive
// pages overlap instead of skipping articles.
func (e *Engine) pagedQuery(clause map[string]any, since time.Time, page, pageSize int) map[string]any {
	if since.IsZero() {
		since = time.Now().Add(-e.feedWindow)
	}

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{clause},
				"filter": []map[string]any{
					{"range": map[string]any{"indexed_at": map[string]any{"gte": since.UTC().Format(time.RFC3339)}}},
				},
			},
		},
		"sort": []map[string]any{
			{"published_at": map[string]any{"order": "desc"}},
		},
		"from": page * pageSize,
		"size": pageSize * overFetchFactor,
	}
}

// feedClause builds the match clause for one feed: its sources, its
// keywords, minus its own blacklist and any caller-supplied terms.
func feedClause(feed *domain.Feed, unitBlacklist []string) map[string]any {
	inner := sourceKeywordClause(feed)

	blacklist := make([]string, 0, len(feed.Filter.Blacklist)+len(unitBlacklist))
	blacklist = append(blacklist, feed.Filter.Blacklist...)
	blacklist = append(blacklist, unitBlacklist...)
	if len(blacklist) > 0 {
		inner["must_not"] = []map[string]any{keywordQuery(blacklist)}
	}
	return map[string]any{"bool": inner}
}

// combinedFeedClause builds the blacklist-free clause one feed contributes
// to the combined read.
func combinedFeedClause(feed *domain.Feed) map[string]any {
	return map[string]any{"bool": sourceKeywordClause(feed)}
}

func sourceKeywordClause(feed *domain.Feed) map[string]any {
	inner := map[string]any{
		"filter": []map[string]any{
			{"terms": map[string]any{"source_id": feed.SourceIDs}},
		},
	}
	if len(feed.Filter.Keywords) > 0 {
		inner["must"] = []map[string]any{keywordQuery(feed.Filter.Keywords)}
	}
	return inner
}

func decodeArticles(hits []storage.Hit) ([]domain.Article, error) {
	articles := make([]domain.Article, 0, len(hits))
	for i := range hits {
		var article domain.Article
		if err := hits[i].Decode(&article); err != nil {
			return nil, fmt.Errorf("decode article %s: %w", hits[i].ID, err)
		}
		if article.ID == "" {
			article.ID = hits[i].ID
		}
		articles = append(articles, article)
	}
	return articles, nil
}

// dedupe keeps the first article per key, preserving order.
func dedupe[K comparable](articles []domain.Article, key func(*domain.Article) K) []domain.Article {
	seen := make(map[K]struct{}, len(articles))
	out := make([]domain.Article, 0, len(articles))
	for i := range articles {
		k := key(&articles[i])
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, articles[i])
	}
	return out
}

func truncate(articles []domain.Article, n int) []domain.Article {
	if len(articles) > n {
		return articles[:n]
	}
	return articles
}
