package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// scrollKeepAlive is how long Elasticsearch keeps a scroll cursor open
// between pages.
const scrollKeepAlive = 2 * time.Minute

// ScrollAll pages through every document of index using the scroll API,
// invoking fn once per page. Iteration stops at the first fn error. The
// scroll cursor is cleared when iteration finishes.
func (s *Storage) ScrollAll(
	ctx context.Context,
	index string,
	pageSize int,
	fn func(hits []Hit) error,
) error {
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{"match_all": map[string]any{}},
		"size":  pageSize,
		"sort":  []string{"_doc"},
	})
	if err != nil {
		return fmt.Errorf("error marshaling scroll query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(bytes.NewReader(body)),
		s.client.Search.WithScroll(scrollKeepAlive),
	)
	if err != nil {
		return fmt.Errorf("error starting scroll: %w", err)
	}

	var page searchResponse
	decodeErr := json.NewDecoder(res.Body).Decode(&page)
	closeErr := res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("scroll error: %s", res.String())
	}
	if decodeErr != nil {
		return fmt.Errorf("error decoding scroll response: %w", decodeErr)
	}
	if closeErr != nil {
		s.logger.Error("Failed to close scroll response body", "error", closeErr)
	}

	scrollID := page.ScrollID
	defer s.clearScroll(ctx, scrollID)

	for len(page.Hits.Hits) > 0 {
		if fnErr := fn(page.toHits()); fnErr != nil {
			return fnErr
		}

		page, err = s.nextScrollPage(ctx, scrollID)
		if err != nil {
			return err
		}
		if page.ScrollID != "" {
			scrollID = page.ScrollID
		}
	}

	return nil
}

// nextScrollPage fetches the next page for an open scroll cursor.
func (s *Storage) nextScrollPage(ctx context.Context, scrollID string) (searchResponse, error) {
	var page searchResponse

	res, err := s.client.Scroll(
		s.client.Scroll.WithContext(ctx),
		s.client.Scroll.WithScrollID(scrollID),
		s.client.Scroll.WithScroll(scrollKeepAlive),
	)
	if err != nil {
		return page, fmt.Errorf("error continuing scroll: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return page, fmt.Errorf("scroll error: %s", res.String())
	}

	if decodeErr := json.NewDecoder(res.Body).Decode(&page); decodeErr != nil {
		return page, fmt.Errorf("error decoding scroll response: %w", decodeErr)
	}

	return page, nil
}

// clearScroll releases the server-side scroll cursor.
func (s *Storage) clearScroll(ctx context.Context, scrollID string) {
	if scrollID == "" {
		return
	}

	res, err := s.client.ClearScroll(
		s.client.ClearScroll.WithContext(ctx),
		s.client.ClearScroll.WithScrollID(scrollID),
	)
	if err != nil {
		s.logger.Warn("Failed to clear scroll", "error", err)
		return
	}

	if closeErr := res.Body.Close(); closeErr != nil {
		s.logger.Error("Failed to close clear-scroll response body", "error", closeErr)
	}
}
