package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/logger"
	"github.com/newsward/ingest/internal/storage"
)

// FeedReader is the read side of the indexing engine.
type FeedReader interface {
	GetFeed(ctx context.Context, feed *domain.Feed, since time.Time, page, pageSize int, unitBlacklist []string) ([]domain.Article, error)
	GetCombinedFeed(ctx context.Context, settings *domain.UserSettings, since time.Time, page, pageSize int) ([]domain.Article, error)
	GetArticleByID(ctx context.Context, id string) (*domain.Article, error)
}

// FeedLookup resolves feed definitions from the configuration store.
type FeedLookup interface {
	GetFeeds(ctx context.Context) ([]domain.Feed, error)
}

// AdminController exposes the administrative operations.
type AdminController interface {
	RestartCrawlers(ctx context.Context) error
	ClearAllIndexes(ctx context.Context) error
}

// feedHandler handles the feed and article routes.
type feedHandler struct {
	reader FeedReader
	lookup FeedLookup
	log    logger.Interface
}

func newFeedHandler(reader FeedReader, lookup FeedLookup, log logger.Interface) *feedHandler {
	return &feedHandler{reader: reader, lookup: lookup, log: log}
}

// GetFeed handles GET /api/v1/feed?feed_id=&since=&page=&page_size=&blacklist=
func (h *feedHandler) GetFeed(c *gin.Context) {
	feedID := c.Query("feed_id")
	if feedID == "" {
		respondBadRequest(c, "feed_id is required")
		return
	}

	since, ok := parseSince(c)
	if !ok {
		return
	}

	feed, err := h.findFeed(c.Request.Context(), feedID)
	if err != nil {
		respondInternalError(c, "loading feeds failed")
		return
	}
	if feed == nil {
		respondNotFound(c, "feed")
		return
	}

	page, pageSize := parsePaging(c)
	articles, err := h.reader.GetFeed(c.Request.Context(), feed, since, page, pageSize, c.QueryArray("blacklist"))
	if err != nil {
		h.log.Error("Feed query failed", "feed_id", feedID, "error", err)
		respondInternalError(c, "feed query failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feed_id":   feedID,
		"page":      page,
		"page_size": pageSize,
		"articles":  articles,
	})
}

// GetCombinedFeed handles GET /api/v1/feed/combined?feed_id=a&feed_id=b&since=&page=&page_size=
func (h *feedHandler) GetCombinedFeed(c *gin.Context) {
	ids := c.QueryArray("feed_id")
	if len(ids) == 0 {
		respondBadRequest(c, "at least one feed_id is required")
		return
	}

	since, ok := parseSince(c)
	if !ok {
		return
	}

	feeds, err := h.lookup.GetFeeds(c.Request.Context())
	if err != nil {
		respondInternalError(c, "loading feeds failed")
		return
	}

	settings := domain.UserSettings{}
	for _, id := range ids {
		for i := range feeds {
			if feeds[i].ID == id {
				settings.Feeds = append(settings.Feeds, feeds[i])
				break
			}
		}
	}
	if len(settings.Feeds) == 0 {
		respondNotFound(c, "feed")
		return
	}

	page, pageSize := parsePaging(c)
	articles, err := h.reader.GetCombinedFeed(c.Request.Context(), &settings, since, page, pageSize)
	if err != nil {
		h.log.Error("Combined feed query failed", "error", err)
		respondInternalError(c, "feed query failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page":      page,
		"page_size": pageSize,
		"articles":  articles,
	})
}

// GetArticle handles GET /api/v1/articles/:id
func (h *feedHandler) GetArticle(c *gin.Context) {
	id := c.Param("id")

	article, err := h.reader.GetArticleByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondNotFound(c, "article")
			return
		}
		h.log.Error("Article lookup failed", "id", id, "error", err)
		respondInternalError(c, "article lookup failed")
		return
	}

	c.JSON(http.StatusOK, article)
}

func (h *feedHandler) findFeed(ctx context.Context, id string) (*domain.Feed, error) {
	feeds, err := h.lookup.GetFeeds(ctx)
	if err != nil {
		return nil, err
	}
	for i := range feeds {
		if feeds[i].ID == id {
			return &feeds[i], nil
		}
	}
	return nil, nil
}

// adminHandler handles the administrative routes.
type adminHandler struct {
	admin AdminController
	log   logger.Interface
}

func newAdminHandler(admin AdminController, log logger.Interface) *adminHandler {
	return &adminHandler{admin: admin, log: log}
}

// RestartCrawlers handles POST /api/v1/crawlers/restart
func (h *adminHandler) RestartCrawlers(c *gin.Context) {
	if err := h.admin.RestartCrawlers(c.Request.Context()); err != nil {
		h.log.Error("Crawler restart failed", "error", err)
		respondInternalError(c, "restart failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "restarted"})
}

// ClearIndexes handles POST /api/v1/indexes/clear
func (h *adminHandler) ClearIndexes(c *gin.Context) {
	if err := h.admin.ClearAllIndexes(c.Request.Context()); err != nil {
		h.log.Error("Clearing indexes failed", "error", err)
		respondInternalError(c, "clearing indexes failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
