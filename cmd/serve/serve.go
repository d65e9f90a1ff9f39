// Package serve implements the serve command: the full ingest service with
// crawlers, indexing engine, compactor and HTTP API.
package serve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/newsward/ingest/cmd/common"
	"github.com/newsward/ingest/internal/api"
	"github.com/newsward/ingest/internal/crawl"
	"github.com/newsward/ingest/internal/index"
	"github.com/newsward/ingest/internal/metrics"
	"github.com/newsward/ingest/internal/sources"
	"github.com/newsward/ingest/internal/storage"
)

const shutdownTimeout = 30 * time.Second

// adminOps bridges the HTTP admin routes to the controller and engine.
type adminOps struct {
	controller *crawl.Controller
	engine     *index.Engine
}

func (a adminOps) RestartCrawlers(ctx context.Context) error {
	return a.controller.Restart(ctx)
}

func (a adminOps) ClearAllIndexes(ctx context.Context) error {
	return a.engine.ClearAllIndexes(ctx)
}

// Command returns the serve command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ingest service",
		Long:  `Starts the crawlers, the indexing engine, the duplicate compactor and the HTTP API, and runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps(*cfgFile, *debug)
			if err != nil {
				return err
			}
			return run(cmd.Context(), deps)
		},
	}
}

func run(parent context.Context, deps *common.Deps) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := common.NewStorage(ctx, deps)
	if err != nil {
		return err
	}

	sourceStore, err := sources.NewStore(deps.Config.Sources, deps.Logger)
	if err != nil {
		return fmt.Errorf("create source store: %w", err)
	}

	m := metrics.New()
	indices := storage.NewIndices(deps.Config.Elasticsearch.IndexPrefix)
	superset := index.NewSuperset(sourceStore, deps.Config.Indexer.SupersetTTL, deps.Logger)
	engine := index.NewEngine(store, indices, superset, deps.Config.Indexer, deps.Logger, m)

	if ensureErr := engine.EnsureIndexes(ctx); ensureErr != nil {
		return fmt.Errorf("ensure indexes: %w", ensureErr)
	}

	fetcher := crawl.NewHTTPFetcher(deps.Config.Crawler.FetchTimeout)
	controller := crawl.NewController(deps.Config.Crawler, sourceStore, engine, fetcher, deps.Logger, m)
	if startErr := controller.Start(ctx); startErr != nil {
		return fmt.Errorf("start crawlers: %w", startErr)
	}
	defer controller.Stop()

	if deps.Config.Compactor.Enabled {
		compactor := index.NewCompactor(store, indices, deps.Config.Compactor, deps.Logger, m)
		if compErr := compactor.Start(ctx); compErr != nil {
			return fmt.Errorf("start compactor: %w", compErr)
		}
		defer compactor.Stop()
	}

	server := api.NewServer(api.Params{
		Config:     deps.Config.Server,
		Logger:     deps.Logger,
		Feeds:      engine,
		Admin:      adminOps{controller: controller, engine: engine},
		FeedLookup: sourceStore,
		Health:     store,
		Metrics:    m,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err = <-serverErr:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	deps.Logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if stopErr := server.Stop(shutdownCtx); stopErr != nil {
		deps.Logger.Error("API server shutdown failed", "error", stopErr)
	}
	return nil
}
