package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/logger"
)

// Connection pool limits for the configuration store. Reads are infrequent
// (controller restart, relevance-cache refresh), so the pool stays small.
const (
	pgMaxOpenConns    = 4
	pgMaxIdleConns    = 2
	pgConnMaxLifetime = 30 * time.Minute
)

// PostgresStore reads source and feed definitions from Postgres.
type PostgresStore struct {
	db     *sqlx.DB
	logger logger.Interface
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to Postgres and returns the store.
func NewPostgresStore(dsn string, log logger.Interface) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(pgMaxOpenConns)
	db.SetMaxIdleConns(pgMaxIdleConns)
	db.SetConnMaxLifetime(pgConnMaxLifetime)

	return &PostgresStore{db: db, logger: log}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// sourceRow is the sources table shape.
type sourceRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	URI         string         `db:"uri"`
	ContentType string         `db:"content_type"`
	Regex       string         `db:"regex"`
	XPath       string         `db:"xpath"`
	Blacklist   pq.StringArray `db:"blacklist"`
}

// feedRow is the feeds table shape.
type feedRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	SourceIDs pq.StringArray `db:"source_ids"`
	Keywords  pq.StringArray `db:"keywords"`
	Blacklist pq.StringArray `db:"blacklist"`
}

// GetSources returns every configured source.
func (s *PostgresStore) GetSources(ctx context.Context) ([]domain.Source, error) {
	query := `
		SELECT id, name, uri, content_type,
		       COALESCE(regex, '') AS regex,
		       COALESCE(xpath, '') AS xpath,
		       COALESCE(blacklist, '{}') AS blacklist
		FROM sources
		WHERE enabled
		ORDER BY id
	`

	var rows []sourceRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoSources
	}

	srcs := make([]domain.Source, 0, len(rows))
	for _, row := range rows {
		srcs = append(srcs, domain.Source{
			ID:          row.ID,
			Name:        row.Name,
			URI:         row.URI,
			ContentType: domain.ContentType(row.ContentType),
			Regex:       row.Regex,
			XPath:       row.XPath,
			Blacklist:   row.Blacklist,
		})
	}

	s.logger.Debug("Loaded sources from postgres", "count", len(srcs))
	return srcs, nil
}

// GetAllFeedFilters returns every feed's keyword/blacklist filter.
func (s *PostgresStore) GetAllFeedFilters(ctx context.Context) ([]domain.FeedFilter, error) {
	query := `
		SELECT id,
		       COALESCE(keywords, '{}')  AS keywords,
		       COALESCE(blacklist, '{}') AS blacklist
		FROM feeds
		ORDER BY id
	`

	var rows []struct {
		ID        string         `db:"id"`
		Keywords  pq.StringArray `db:"keywords"`
		Blacklist pq.StringArray `db:"blacklist"`
	}
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list feed filters: %w", err)
	}

	filters := make([]domain.FeedFilter, 0, len(rows))
	for _, row := range rows {
		filters = append(filters, domain.FeedFilter{
			FeedID:    row.ID,
			Keywords:  row.Keywords,
			Blacklist: row.Blacklist,
		})
	}

	return filters, nil
}

// GetFeeds returns every configured feed definition.
func (s *PostgresStore) GetFeeds(ctx context.Context) ([]domain.Feed, error) {
	query := `
		SELECT id, name,
		       COALESCE(source_ids, '{}') AS source_ids,
		       COALESCE(keywords, '{}')   AS keywords,
		       COALESCE(blacklist, '{}')  AS blacklist
		FROM feeds
		ORDER BY id
	`

	var rows []feedRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}

	feeds := make([]domain.Feed, 0, len(rows))
	for _, row := range rows {
		feeds = append(feeds, domain.Feed{
			ID:        row.ID,
			Name:      row.Name,
			SourceIDs: row.SourceIDs,
			Filter: domain.FeedFilter{
				FeedID:    row.ID,
				Keywords:  row.Keywords,
				Blacklist: row.Blacklist,
			},
		})
	}

	return feeds, nil
}
