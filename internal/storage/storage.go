// Package storage wraps the Elasticsearch backend behind the small
// document/index interface the indexing engine consumes.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/mitchellh/mapstructure"

	"github.com/newsward/ingest/internal/logger"
)

// Constants for timeout durations.
const (
	DefaultIndexTimeout  = 10 * time.Second
	DefaultSearchTimeout = 10 * time.Second
	DefaultPingTimeout   = 5 * time.Second
)

// Hit is a single search result.
type Hit struct {
	// ID is the document ID.
	ID string
	// Source is the raw document body.
	Source map[string]any
}

// Decode unmarshals the hit's source into result, converting RFC3339
// strings to time.Time along the way.
func (h *Hit) Decode(result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		Result:     result,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if decodeErr := decoder.Decode(h.Source); decodeErr != nil {
		return fmt.Errorf("decode hit source: %w", decodeErr)
	}
	return nil
}

// Interface defines the storage operations the pipeline depends on.
type Interface interface {
	// IndexDocument writes a document and waits for it to become visible
	// to subsequent searches.
	IndexDocument(ctx context.Context, index, id string, document any) error
	// GetDocument retrieves a document by ID; returns ErrNotFound when it
	// does not exist.
	GetDocument(ctx context.Context, index, id string, result any) error
	// DeleteDocument removes a document by ID.
	DeleteDocument(ctx context.Context, index, id string) error
	// Search executes a query and returns the matching hits.
	Search(ctx context.Context, index string, query map[string]any) ([]Hit, error)
	// ScrollAll pages through every document of an index, invoking fn per
	// page until exhaustion or error.
	ScrollAll(ctx context.Context, index string, pageSize int, fn func(hits []Hit) error) error
	// CreateIndex creates an index with the given mapping.
	CreateIndex(ctx context.Context, index string, mapping map[string]any) error
	// DeleteIndex removes an index.
	DeleteIndex(ctx context.Context, index string) error
	// IndexExists reports whether an index exists.
	IndexExists(ctx context.Context, index string) (bool, error)
	// TestConnection pings the backend.
	TestConnection(ctx context.Context) error
}

// Storage implements Interface on Elasticsearch.
type Storage struct {
	client *es.Client
	logger logger.Interface
}

// Ensure Storage implements Interface.
var _ Interface = (*Storage)(nil)

// New creates a new storage instance.
func New(client *es.Client, log logger.Interface) *Storage {
	return &Storage{
		client: client,
		logger: log,
	}
}

// IndexDocument indexes a document in Elasticsearch. The write refreshes
// the index so the document is visible to searches issued after this call
// returns (read-after-write, required by the promotion protocol).
func (s *Storage) IndexDocument(ctx context.Context, index, id string, document any) error {
	if s.client == nil {
		return errors.New("elasticsearch client is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultIndexTimeout)
	defer cancel()

	body, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to marshal document for indexing: %w", err)
	}

	res, err := s.client.Index(
		index,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(id),
		s.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer s.closeResponse(res, "IndexDocument", index, id)

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}

	s.logger.Debug("Document indexed",
		"index", index,
		"docID", id,
	)
	return nil
}

// GetDocument retrieves a document from Elasticsearch by ID.
func (s *Storage) GetDocument(ctx context.Context, index, id string, result any) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultSearchTimeout)
	defer cancel()

	res, err := s.client.Get(
		index,
		id,
		s.client.Get.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("error getting document: %w", err)
	}
	defer s.closeResponse(res, "GetDocument", index, id)

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, index, id)
	}

	if res.IsError() {
		return fmt.Errorf("error getting document: %s", res.String())
	}

	var doc struct {
		Source json.RawMessage `json:"_source"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&doc); decodeErr != nil {
		return fmt.Errorf("error decoding response: %w", decodeErr)
	}

	if doc.Source == nil {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, index, id)
	}

	if unmarshalErr := json.Unmarshal(doc.Source, result); unmarshalErr != nil {
		return fmt.Errorf("error unmarshaling document: %w", unmarshalErr)
	}

	return nil
}

// DeleteDocument deletes a document from Elasticsearch. The deletion
// refreshes the index so it is visible immediately.
func (s *Storage) DeleteDocument(ctx context.Context, index, id string) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultIndexTimeout)
	defer cancel()

	res, err := s.client.Delete(
		index,
		id,
		s.client.Delete.WithContext(ctx),
		s.client.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("error deleting document: %w", err)
	}
	defer s.closeResponse(res, "DeleteDocument", index, id)

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, index, id)
	}

	if res.IsError() {
		return fmt.Errorf("error deleting document: %s", res.String())
	}

	s.logger.Debug("Deleted document", "index", index, "docID", id)
	return nil
}

// searchResponse models the subset of the search reply the pipeline reads.
type searchResponse struct {
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// toHits flattens the response envelope.
func (r *searchResponse) toHits() []Hit {
	hits := make([]Hit, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		hits = append(hits, Hit{ID: h.ID, Source: h.Source})
	}
	return hits
}

// Search performs a search query against the given index.
func (s *Storage) Search(ctx context.Context, index string, query map[string]any) ([]Hit, error) {
	if s.client == nil {
		return nil, errors.New("elasticsearch client is not initialized")
	}

	exists, err := s.IndexExists(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("failed to check index existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, index)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultSearchTimeout)
	defer cancel()

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("error marshaling search query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("error executing search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var result searchResponse
	if decodeErr := json.NewDecoder(res.Body).Decode(&result); decodeErr != nil {
		return nil, fmt.Errorf("error decoding search response: %w", decodeErr)
	}

	return result.toHits(), nil
}

// closeResponse closes an API response body, logging close failures.
func (s *Storage) closeResponse(res *esapi.Response, operation, index, id string) {
	if closeErr := res.Body.Close(); closeErr != nil {
		s.logger.Error("Failed to close response body",
			"error", closeErr,
			"operation", operation,
			"index", index,
			"docID", id,
		)
	}
}

// TestConnection tests the connection to the storage backend.
func (s *Storage) TestConnection(ctx context.Context) error {
	if s.client == nil {
		return errors.New("elasticsearch client is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error pinging storage: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error pinging storage: %s", res.String())
	}

	return nil
}
