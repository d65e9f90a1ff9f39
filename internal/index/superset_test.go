package index_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/newsward/ingest/internal/domain"
	"github.com/newsward/ingest/internal/index"
	"github.com/newsward/ingest/internal/logger"
)

func TestSuperset_UnionMinusOwnBlacklist(t *testing.T) {
	store := &filterStore{filters: []domain.FeedFilter{
		{FeedID: "f1", Keywords: []string{"Harbor", "airport"}, Blacklist: []string{"airport"}},
		{FeedID: "f2", Keywords: []string{"harbor", "weather"}},
	}}

	superset := index.NewSuperset(store, time.Minute, logger.NewNoOp())
	keywords := superset.Keywords(context.Background())

	// Lowercased, deduplicated, sorted; f1's own blacklist removes its
	// "airport" but f2's keywords are untouched by it.
	assert.Equal(t, []string{"harbor", "weather"}, keywords)
}

func TestSuperset_CachedWithinTTL(t *testing.T) {
	store := &filterStore{filters: []domain.FeedFilter{
		{FeedID: "f1", Keywords: []string{"harbor"}},
	}}

	superset := index.NewSuperset(store, time.Minute, logger.NewNoOp())
	superset.Keywords(context.Background())
	superset.Keywords(context.Background())
	superset.Keywords(context.Background())

	assert.Equal(t, 1, store.callCount(), "fresh cache must not hit the store")
}

func TestSuperset_RefreshAfterExpiry(t *testing.T) {
	store := &filterStore{filters: []domain.FeedFilter{
		{FeedID: "f1", Keywords: []string{"harbor"}},
	}}

	superset := index.NewSuperset(store, time.Nanosecond, logger.NewNoOp())
	superset.Keywords(context.Background())
	time.Sleep(time.Millisecond)
	superset.Keywords(context.Background())

	assert.Equal(t, 2, store.callCount())
}

func TestSuperset_StaleServedOnRefreshError(t *testing.T) {
	store := &filterStore{filters: []domain.FeedFilter{
		{FeedID: "f1", Keywords: []string{"harbor"}},
	}}

	superset := index.NewSuperset(store, time.Nanosecond, logger.NewNoOp())
	assert.Equal(t, []string{"harbor"}, superset.Keywords(context.Background()))

	store.setError(errBackend)
	time.Sleep(time.Millisecond)
	assert.Equal(t, []string{"harbor"}, superset.Keywords(context.Background()),
		"a failed refresh keeps serving the previous set")
}

func TestSuperset_NoFiltersYieldsEmpty(t *testing.T) {
	superset := index.NewSuperset(&filterStore{}, time.Minute, logger.NewNoOp())
	assert.Empty(t, superset.Keywords(context.Background()))
}

func TestSuperset_Invalidate(t *testing.T) {
	store := &filterStore{filters: []domain.FeedFilter{
		{FeedID: "f1", Keywords: []string{"harbor"}},
	}}

	superset := index.NewSuperset(store, time.Hour, logger.NewNoOp())
	superset.Keywords(context.Background())
	superset.Invalidate()
	superset.Keywords(context.Background())

	assert.Equal(t, 2, store.callCount())
}
