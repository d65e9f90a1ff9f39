package metrics_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/newsward/ingest/internal/metrics"
)

func TestMetrics_Counters(t *testing.T) {
	m := metrics.New()

	m.CandidateExtracted()
	m.CandidateExtracted()
	m.CandidateBlacklisted()
	m.DuplicateSuppressed()
	m.ArticlePromoted()
	m.ArticleIrrelevant()
	m.FetchError()
	m.CompactorDeleted(3)

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.CandidatesExtracted)
	assert.EqualValues(t, 1, snap.CandidatesBlacklisted)
	assert.EqualValues(t, 1, snap.DuplicatesSuppressed)
	assert.EqualValues(t, 1, snap.ArticlesPromoted)
	assert.EqualValues(t, 1, snap.ArticlesIrrelevant)
	assert.EqualValues(t, 1, snap.FetchErrors)
	assert.EqualValues(t, 3, snap.CompactorDeletions)
	assert.False(t, snap.LastPromotedAt.IsZero())
	assert.False(t, snap.StartTime.IsZero())
}

func TestMetrics_ConcurrentUpdates(t *testing.T) {
	m := metrics.New()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.CandidateExtracted()
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1000, m.Snapshot().CandidatesExtracted)
}
