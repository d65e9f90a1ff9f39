// Package sources provides access to the source and feed configuration
// store. The ingestion core reads this configuration at controller
// start/restart and on relevance-cache refresh; it never writes it.
package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/newsward/ingest/internal/config"
	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/logger"
)

// ErrNoSources is returned when the store holds no source definitions.
var ErrNoSources = errors.New("no sources configured")

// Store is the configuration collaborator consumed by the pipeline.
type Store interface {
	// GetSources returns every configured source.
	GetSources(ctx context.Context) ([]domain.Source, error)
	// GetAllFeedFilters returns every feed's keyword/blacklist filter.
	GetAllFeedFilters(ctx context.Context) ([]domain.FeedFilter, error)
	// GetFeeds returns every configured feed definition.
	GetFeeds(ctx context.Context) ([]domain.Feed, error)
}

// NewStore builds the store selected by the configuration.
func NewStore(cfg *config.SourcesConfig, log logger.Interface) (Store, error) {
	switch cfg.Backend {
	case "file":
		return NewFileStore(cfg.File, log), nil
	case "postgres":
		return NewPostgresStore(cfg.DSN, log)
	default:
		return nil, fmt.Errorf("unknown sources backend %q", cfg.Backend)
	}
}
