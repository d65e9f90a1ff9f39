// Package api implements the HTTP API of the ingest service: feed reads,
// article lookup, crawler restart and index administration.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/newsward/ingest/internal/config"
	"github.com/newsward/ingest/internal/logger"
	"github.com/newsward/ingest/internal/metrics"
)

const readHeaderTimeout = 10 * time.Second

// Server hosts the HTTP API.
type Server struct {
	cfg    *config.ServerConfig
	logger logger.Interface
	http   *http.Server
}

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	TestConnection(ctx context.Context) error
}

// Params holds the collaborators the API routes depend on.
type Params struct {
	Config     *config.ServerConfig
	Logger     logger.Interface
	Feeds      FeedReader
	Admin      AdminController
	FeedLookup FeedLookup
	Health     Pinger
	Metrics    *metrics.Metrics
}

// NewServer builds the router and an unstarted server around it.
func NewServer(p Params) *Server {
	router := setupRouter(p)
	return &Server{
		cfg:    p.Config,
		logger: p.Logger.WithComponent("api"),
		http: &http.Server{
			Addr:              p.Config.Address,
			Handler:           router,
			ReadTimeout:       p.Config.ReadTimeout,
			WriteTimeout:      p.Config.WriteTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info("Starting API server", "address", s.cfg.Address)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	return s.http.Shutdown(ctx)
}

// setupRouter creates and configures the Gin router with all routes.
func setupRouter(p Params) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(p.Logger))

	router.GET("/healthz", func(c *gin.Context) {
		if p.Health != nil {
			if err := p.Health.TestConnection(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "storage unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, p.Metrics.Snapshot())
	})

	feeds := newFeedHandler(p.Feeds, p.FeedLookup, p.Logger)
	admin := newAdminHandler(p.Admin, p.Logger)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/feed", feeds.GetFeed)
		v1.GET("/feed/combined", feeds.GetCombinedFeed)
		v1.GET("/articles/:id", feeds.GetArticle)
		v1.POST("/crawlers/restart", admin.RestartCrawlers)
		v1.POST("/indexes/clear", admin.ClearIndexes)
	}

	return router
}

// loggingMiddleware logs each request with method, path, status and latency.
func loggingMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String())
	}
}
