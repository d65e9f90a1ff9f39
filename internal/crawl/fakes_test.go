package crawl_test

import (
	"context"
	"errors"
	"sync"

	"github.com/newsward/ingest/internal/crawl"
	"github.com/newsward/ingest/internal/domain"
)

var errFetch = errors.New("fetch failed")

// fakeFetcher serves canned responses per URL; consecutive calls walk
// through the response list, repeating the last one.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]string
	err       error
	calls     int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{responses: make(map[string][]string)}
}

func (f *fakeFetcher) respond(url string, bodies ...string) {
	f.responses[url] = bodies
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return "", f.err
	}

	bodies := f.responses[url]
	if len(bodies) == 0 {
		return "", errFetch
	}
	body := bodies[0]
	if len(bodies) > 1 {
		f.responses[url] = bodies[1:]
	}
	return body, nil
}

// fakeIndexer records every candidate it receives.
type fakeIndexer struct {
	mu          sync.Mutex
	web         []domain.Candidate
	syndication []domain.Candidate
	keys        []domain.ShortArticleKey
	err         error
}

func (f *fakeIndexer) IndexWebArticle(_ context.Context, candidate *domain.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.web = append(f.web, *candidate)
	return nil
}

func (f *fakeIndexer) IndexSyndicationArticle(_ context.Context, candidate *domain.Candidate, key domain.ShortArticleKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.syndication = append(f.syndication, *candidate)
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeIndexer) webCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.web)
}

func (f *fakeIndexer) syndicationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.syndication)
}

// fakeSourceStore serves a fixed source list.
type fakeSourceStore struct {
	mu      sync.Mutex
	sources []domain.Source
	err     error
}

func (f *fakeSourceStore) GetSources(context.Context) ([]domain.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Source, len(f.sources))
	copy(out, f.sources)
	return out, nil
}

func (f *fakeSourceStore) GetAllFeedFilters(context.Context) ([]domain.FeedFilter, error) {
	return nil, nil
}

func (f *fakeSourceStore) GetFeeds(context.Context) ([]domain.Feed, error) {
	return nil, nil
}

// collectDispatcher gathers dispatched items synchronously.
type collectDispatcher struct {
	mu    sync.Mutex
	items []crawl.Item
}

func (d *collectDispatcher) Dispatch(_ context.Context, items []crawl.Item) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = append(d.items, items...)
}

func (d *collectDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}
