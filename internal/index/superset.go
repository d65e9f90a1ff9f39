package index

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/logger"
	"github.com/newsward/ingest/internal/sources"
)

// supersetEntry is one immutable generation of the cached keyword set.
type supersetEntry struct {
	keywords  []string
	fetchedAt time.Time
}

// Superset caches the union of every feed filter's keywords, minus each
// filter's own blacklist. The relevance check during promotion runs against
// this superset, so an article matching any feed's interest survives.
//
// Reads go through an atomic pointer and never block; a single refresher
// rebuilds the set when it expires while concurrent readers keep serving the
// previous generation. When a refresh fails the stale set stays in place.
type Superset struct {
	store  sources.Store
	ttl    time.Duration
	logger logger.Interface

	current   atomic.Pointer[supersetEntry]
	refreshMu sync.Mutex
}

// NewSuperset creates a superset cache with the given time-to-live.
func NewSuperset(store sources.Store, ttl time.Duration, log logger.Interface) *Superset {
	return &Superset{
		store:  store,
		ttl:    ttl,
		logger: log.WithComponent("superset"),
	}
}

// Keywords returns the current superset, refreshing it when expired. The
// returned slice must not be modified.
func (s *Superset) Keywords(ctx context.Context) []string {
	if entry := s.current.Load(); entry != nil && !s.expired(entry) {
		return entry.keywords
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if entry := s.current.Load(); entry != nil && !s.expired(entry) {
		return entry.keywords
	}

	filters, err := s.store.GetAllFeedFilters(ctx)
	if err != nil {
		s.logger.Warn("Refreshing keyword superset failed, serving stale set", "error", err)
		if entry := s.current.Load(); entry != nil {
			return entry.keywords
		}
		return nil
	}

	entry := &supersetEntry{
		keywords:  buildSuperset(filters),
		fetchedAt: time.Now(),
	}
	s.current.Store(entry)
	s.logger.Debug("Keyword superset refreshed", "keywords", len(entry.keywords))
	return entry.keywords
}

// Invalidate forces the next read to rebuild the set.
func (s *Superset) Invalidate() {
	s.current.Store(nil)
}

func (s *Superset) expired(entry *supersetEntry) bool {
	return time.Since(entry.fetchedAt) >= s.ttl
}

// buildSuperset folds the filters into a sorted, lowercased, deduplicated
// keyword list. A keyword blacklisted by its own filter does not enter the
// superset on that filter's behalf.
func buildSuperset(filters []domain.FeedFilter) []string {
	set := make(map[string]struct{})
	for _, filter := range filters {
		blocked := make(map[string]struct{}, len(filter.Blacklist))
		for _, term := range filter.Blacklist {
			blocked[strings.ToLower(term)] = struct{}{}
		}
		for _, keyword := range filter.Keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword == "" {
				continue
			}
			if _, ok := blocked[keyword]; ok {
				continue
			}
			set[keyword] = struct{}{}
		}
	}

	keywords := make([]string, 0, len(set))
	for keyword := range set {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)
	return keywords
}
