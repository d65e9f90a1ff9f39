package index

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newsward/ingest/cmd/common"
	"github.com/newsward/ingest/internal/config"
	"github.com/newsward/ingest/internal/index"
	"github.com/newsward/ingest/internal/logger"
	"github.com/newsward/ingest/internal/metrics"
	"github.com/newsward/ingest/internal/sources"
	"github.com/newsward/ingest/internal/storage"
)

// errNotConfirmed is returned when clear runs without --confirm.
var errNotConfirmed = errors.New("refusing to clear indexes without --confirm")

func clearCommand(cfgFile *string, debug *bool) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop and recreate all article indexes",
		Long:  `Deletes the temporary, permanent and speed indexes and recreates them empty. All indexed articles are lost.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errNotConfirmed
			}

			deps, err := common.NewCommandDeps(*cfgFile, *debug)
			if err != nil {
				return err
			}

			store, err := common.NewStorage(cmd.Context(), deps)
			if err != nil {
				return err
			}

			engine, err := newEngine(deps, store)
			if err != nil {
				return err
			}
			if clearErr := engine.ClearAllIndexes(cmd.Context()); clearErr != nil {
				return fmt.Errorf("clear indexes: %w", clearErr)
			}

			deps.Logger.Info("All article indexes cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm the destructive operation")
	return cmd
}

func newEngine(deps *common.Deps, store *storage.Storage) (*index.Engine, error) {
	sourceStore, err := sources.NewStore(deps.Config.Sources, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("create source store: %w", err)
	}
	return buildEngine(deps.Config, store, sourceStore, deps.Logger), nil
}

func buildEngine(cfg *config.Config, store *storage.Storage, sourceStore sources.Store, log logger.Interface) *index.Engine {
	indices := storage.NewIndices(cfg.Elasticsearch.IndexPrefix)
	superset := index.NewSuperset(sourceStore, cfg.Indexer.SupersetTTL, log)
	return index.NewEngine(store, indices, superset, cfg.Indexer, log, metrics.New())
}
