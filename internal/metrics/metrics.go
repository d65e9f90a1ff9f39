// Package metrics provides metrics collection and reporting functionality.
package metrics

import (
	"sync"
	"time"
)

// Metrics holds the ingestion pipeline counters. All methods are safe for
// concurrent use from crawler timer goroutines.
type Metrics struct {
	mu sync.Mutex

	// candidatesExtracted is the number of candidates produced by crawlers.
	candidatesExtracted int64
	// candidatesBlacklisted is the number of candidates dropped by the
	// source blacklist gate.
	candidatesBlacklisted int64
	// duplicatesSuppressed is the number of candidates rejected by the
	// duplicate checks (short-term cache hits excluded).
	duplicatesSuppressed int64
	// articlesPromoted is the number of articles copied to the permanent store.
	articlesPromoted int64
	// articlesIrrelevant is the number of articles rejected by the
	// relevance gate.
	articlesIrrelevant int64
	// fetchErrors is the number of failed source fetches.
	fetchErrors int64
	// compactorDeletions is the number of duplicates removed by compaction.
	compactorDeletions int64
	// lastPromotedAt is the time of the most recent promotion.
	lastPromotedAt time.Time
	// startTime is when metrics collection began.
	startTime time.Time
}

// New creates a new Metrics instance.
func New() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// CandidateExtracted records one extracted candidate.
func (m *Metrics) CandidateExtracted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidatesExtracted++
}

// CandidateBlacklisted records one blacklist rejection.
func (m *Metrics) CandidateBlacklisted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidatesBlacklisted++
}

// DuplicateSuppressed records one duplicate rejection.
func (m *Metrics) DuplicateSuppressed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicatesSuppressed++
}

// ArticlePromoted records one promotion to the permanent store.
func (m *Metrics) ArticlePromoted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articlesPromoted++
	m.lastPromotedAt = time.Now()
}

// ArticleIrrelevant records one relevance-gate rejection.
func (m *Metrics) ArticleIrrelevant() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articlesIrrelevant++
}

// FetchError records one failed source fetch.
func (m *Metrics) FetchError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErrors++
}

// CompactorDeleted records n documents removed by the compactor.
func (m *Metrics) CompactorDeleted(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compactorDeletions += n
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	CandidatesExtracted   int64     `json:"candidates_extracted"`
	CandidatesBlacklisted int64     `json:"candidates_blacklisted"`
	DuplicatesSuppressed  int64     `json:"duplicates_suppressed"`
	ArticlesPromoted      int64     `json:"articles_promoted"`
	ArticlesIrrelevant    int64     `json:"articles_irrelevant"`
	FetchErrors           int64     `json:"fetch_errors"`
	CompactorDeletions    int64     `json:"compactor_deletions"`
	LastPromotedAt        time.Time `json:"last_promoted_at"`
	StartTime             time.Time `json:"start_time"`
}

// Snapshot returns a consistent copy of the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		CandidatesExtracted:   m.candidatesExtracted,
		CandidatesBlacklisted: m.candidatesBlacklisted,
		DuplicatesSuppressed:  m.duplicatesSuppressed,
		ArticlesPromoted:      m.articlesPromoted,
		ArticlesIrrelevant:    m.articlesIrrelevant,
		FetchErrors:           m.fetchErrors,
		CompactorDeletions:    m.compactorDeletions,
		LastPromotedAt:        m.lastPromotedAt,
		StartTime:             m.startTime,
	}
}
