package sources

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/logger"
)

// fileDocument is the on-disk shape of a sources file.
type fileDocument struct {
	Sources []domain.Source `yaml:"sources" mapstructure:"sources"`
	Feeds   []fileFeed      `yaml:"feeds" mapstructure:"feeds"`
}

// fileFeed is the on-disk shape of one feed definition.
type fileFeed struct {
	ID        string   `yaml:"id" mapstructure:"id"`
	Name      string   `yaml:"name" mapstructure:"name"`
	SourceIDs []string `yaml:"source_ids" mapstructure:"source_ids"`
	Keywords  []string `yaml:"keywords" mapstructure:"keywords"`
	Blacklist []string `yaml:"blacklist" mapstructure:"blacklist"`
}

// FileStore reads source and feed definitions from a YAML file. The file is
// re-read on every call, so edits take effect on the next crawler restart
// or relevance-cache refresh without reloading the process.
type FileStore struct {
	path   string
	logger logger.Interface
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed configuration store.
func NewFileStore(path string, log logger.Interface) *FileStore {
	return &FileStore{path: path, logger: log}
}

// load parses the file.
func (s *FileStore) load() (*fileDocument, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var doc fileDocument
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("unmarshal sources file: %w", err)
	}

	return &doc, nil
}

// GetSources returns every configured source.
func (s *FileStore) GetSources(ctx context.Context) ([]domain.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(doc.Sources) == 0 {
		return nil, ErrNoSources
	}

	s.logger.Debug("Loaded sources from file",
		"path", s.path,
		"count", len(doc.Sources),
	)
	return doc.Sources, nil
}

// GetAllFeedFilters returns every feed's keyword/blacklist filter.
func (s *FileStore) GetAllFeedFilters(ctx context.Context) ([]domain.FeedFilter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	filters := make([]domain.FeedFilter, 0, len(doc.Feeds))
	for _, feed := range doc.Feeds {
		filters = append(filters, domain.FeedFilter{
			FeedID:    feed.ID,
			Keywords:  feed.Keywords,
			Blacklist: feed.Blacklist,
		})
	}

	return filters, nil
}

// GetFeeds returns every configured feed definition.
func (s *FileStore) GetFeeds(ctx context.Context) ([]domain.Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	feeds := make([]domain.Feed, 0, len(doc.Feeds))
	for _, f := range doc.Feeds {
		feeds = append(feeds, domain.Feed{
			ID:        f.ID,
			Name:      f.Name,
			SourceIDs: f.SourceIDs,
			Filter: domain.FeedFilter{
				FeedID:    f.ID,
				Keywords:  f.Keywords,
				Blacklist: f.Blacklist,
			},
		})
	}

	return feeds, nil
}
