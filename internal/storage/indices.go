package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Indices holds the names of the three indices the pipeline manages.
type Indices struct {
	// Temporary is the staging area of the promotion protocol.
	Temporary string
	// Permanent is the durable searchable store.
	Permanent string
	// Speed is the secondary fast-duplicate index for syndication entries.
	Speed string
}

// NewIndices derives the index names from a deployment prefix.
func NewIndices(prefix string) Indices {
	return Indices{
		Temporary: prefix + "_articles_temp",
		Permanent: prefix + "_articles",
		Speed:     prefix + "_articles_speed",
	}
}

// All returns every managed index name.
func (i Indices) All() []string {
	return []string{i.Temporary, i.Permanent, i.Speed}
}

// Mapping returns the mapping for the given managed index.
func (i Indices) Mapping(index string) map[string]any {
	if index == i.Speed {
		return SpeedMapping()
	}
	return ArticleMapping()
}

// CreateIndex creates a new index with the specified mapping.
func (s *Storage) CreateIndex(ctx context.Context, index string, mapping map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultIndexTimeout)
	defer cancel()

	// Elasticsearch allows creating an index without a body.
	var res *esapi.Response
	var err error

	if len(mapping) > 0 {
		var buf bytes.Buffer
		if encodeErr := json.NewEncoder(&buf).Encode(mapping); encodeErr != nil {
			return fmt.Errorf("error encoding mapping: %w", encodeErr)
		}
		res, err = s.client.Indices.Create(
			index,
			s.client.Indices.Create.WithContext(ctx),
			s.client.Indices.Create.WithBody(&buf),
		)
	} else {
		res, err = s.client.Indices.Create(
			index,
			s.client.Indices.Create.WithContext(ctx),
		)
	}
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer s.closeResponse(res, "CreateIndex", index, "")

	if res.IsError() {
		return fmt.Errorf("failed to create index: %s", res.String())
	}

	s.logger.Info("Created index", "index", index)
	return nil
}

// DeleteIndex deletes an index.
func (s *Storage) DeleteIndex(ctx context.Context, index string) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultIndexTimeout)
	defer cancel()

	res, err := s.client.Indices.Delete(
		[]string{index},
		s.client.Indices.Delete.WithContext(ctx),
		s.client.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("error deleting index: %w", err)
	}
	defer s.closeResponse(res, "DeleteIndex", index, "")

	if res.IsError() {
		return fmt.Errorf("error deleting index: %s", res.String())
	}

	s.logger.Info("Deleted index", "index", index)
	return nil
}

// IndexExists checks if the specified index exists.
func (s *Storage) IndexExists(ctx context.Context, index string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	res, err := s.client.Indices.Exists(
		[]string{index},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("failed to check index existence: %w", err)
	}
	defer s.closeResponse(res, "IndexExists", index, "")

	return res.StatusCode == http.StatusOK, nil
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (s *Storage) EnsureIndex(ctx context.Context, index string, mapping map[string]any) error {
	exists, err := s.IndexExists(ctx, index)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.CreateIndex(ctx, index, mapping)
}

// IndexStats describes one index for operational listings.
type IndexStats struct {
	Name   string
	Health string
	Docs   int64
}

// GetIndexStats returns health and document count for an index.
func (s *Storage) GetIndexStats(ctx context.Context, index string) (IndexStats, error) {
	stats := IndexStats{Name: index}

	health, err := s.getIndexHealth(ctx, index)
	if err != nil {
		return stats, err
	}
	stats.Health = health

	count, err := s.getIndexDocCount(ctx, index)
	if err != nil {
		return stats, err
	}
	stats.Docs = count

	return stats, nil
}

// getIndexHealth retrieves the health status of an index.
func (s *Storage) getIndexHealth(ctx context.Context, index string) (string, error) {
	res, err := s.client.Cluster.Health(
		s.client.Cluster.Health.WithContext(ctx),
		s.client.Cluster.Health.WithIndex(index),
	)
	if err != nil {
		return "", fmt.Errorf("failed to get index health: %w", err)
	}
	defer s.closeResponse(res, "GetIndexHealth", index, "")

	if res.IsError() {
		return "", fmt.Errorf("error getting index health: %s", res.String())
	}

	var health map[string]any
	if decodeErr := json.NewDecoder(res.Body).Decode(&health); decodeErr != nil {
		return "", fmt.Errorf("error decoding index health: %w", decodeErr)
	}

	status, ok := health["status"].(string)
	if !ok {
		return "", fmt.Errorf("%w: health status missing", ErrInvalidResponse)
	}

	return status, nil
}

// getIndexDocCount retrieves the document count for an index.
func (s *Storage) getIndexDocCount(ctx context.Context, index string) (int64, error) {
	res, err := s.client.Count(
		s.client.Count.WithContext(ctx),
		s.client.Count.WithIndex(index),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to get document count: %w", err)
	}
	defer s.closeResponse(res, "GetIndexDocCount", index, "")

	if res.IsError() {
		return 0, fmt.Errorf("error getting document count: %s", res.String())
	}

	var count map[string]any
	if decodeErr := json.NewDecoder(res.Body).Decode(&count); decodeErr != nil {
		return 0, fmt.Errorf("error decoding document count: %w", decodeErr)
	}

	countValue, ok := count["count"].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: count missing", ErrInvalidResponse)
	}

	return int64(countValue), nil
}
