package index_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/storage"
)

var errBackend = errors.New("backend unavailable")

// fakeStorage is an in-memory stand-in for the Elasticsearch layer. Search
// behavior is scripted per test through searchFn; document operations work
// against plain maps.
type fakeStorage struct {
	mu      sync.Mutex
	docs    map[string]map[string]map[string]any
	indices map[string]bool

	searchFn func(index string, query map[string]any) ([]storage.Hit, error)

	indexErr  error
	getErr    error
	deleteErr error

	searches []string
	deletes  []string
	gets     []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		docs:    make(map[string]map[string]map[string]any),
		indices: make(map[string]bool),
	}
}

func (f *fakeStorage) IndexDocument(_ context.Context, index, id string, document any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexErr != nil {
		return f.indexErr
	}

	raw, err := json.Marshal(document)
	if err != nil {
		return err
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return err
	}

	if f.docs[index] == nil {
		f.docs[index] = make(map[string]map[string]any)
	}
	f.docs[index][id] = asMap
	return nil
}

func (f *fakeStorage) GetDocument(_ context.Context, index, id string, result any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, index+"/"+id)
	if f.getErr != nil {
		return f.getErr
	}

	doc, ok := f.docs[index][id]
	if !ok {
		return storage.ErrNotFound
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

func (f *fakeStorage) DeleteDocument(_ context.Context, index, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, index+"/"+id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.docs[index], id)
	return nil
}

func (f *fakeStorage) Search(_ context.Context, index string, query map[string]any) ([]storage.Hit, error) {
	f.mu.Lock()
	searchFn := f.searchFn
	f.searches = append(f.searches, index)
	f.mu.Unlock()

	if searchFn == nil {
		return nil, nil
	}
	return searchFn(index, query)
}

func (f *fakeStorage) ScrollAll(_ context.Context, index string, _ int, fn func(hits []storage.Hit) error) error {
	return fn(f.allHits(index))
}

func (f *fakeStorage) CreateIndex(_ context.Context, index string, _ map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indices[index] = true
	if f.docs[index] == nil {
		f.docs[index] = make(map[string]map[string]any)
	}
	return nil
}

func (f *fakeStorage) DeleteIndex(_ context.Context, index string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indices, index)
	delete(f.docs, index)
	return nil
}

func (f *fakeStorage) IndexExists(_ context.Context, index string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indices[index], nil
}

func (f *fakeStorage) TestConnection(context.Context) error {
	return nil
}

// allHits returns every document of an index as search hits.
func (f *fakeStorage) allHits(index string) []storage.Hit {
	f.mu.Lock()
	defer f.mu.Unlock()

	var hits []storage.Hit
	for id, doc := range f.docs[index] {
		hits = append(hits, storage.Hit{ID: id, Source: doc})
	}
	return hits
}

func (f *fakeStorage) docCount(index string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs[index])
}

func (f *fakeStorage) getCount(index string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, g := range f.gets {
		if len(g) > len(index) && g[:len(index)] == index {
			n++
		}
	}
	return n
}

func (f *fakeStorage) searchCount(index string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.searches {
		if s == index {
			n++
		}
	}
	return n
}

// filterStore serves feed filters and feeds for the superset and query
// tests.
type filterStore struct {
	mu      sync.Mutex
	filters []domain.FeedFilter
	feeds   []domain.Feed
	err     error
	calls   int
}

func (s *filterStore) GetSources(context.Context) ([]domain.Source, error) {
	return nil, nil
}

func (s *filterStore) GetAllFeedFilters(context.Context) ([]domain.FeedFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.filters, nil
}

func (s *filterStore) GetFeeds(context.Context) ([]domain.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feeds, nil
}

func (s *filterStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *filterStore) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
