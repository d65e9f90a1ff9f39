package index

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/newsward/ingest/cmd/common"
	"github.com/newsward/ingest/internal/storage"
)

func listCommand(cfgFile *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the article indexes with health and document counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps(*cfgFile, *debug)
			if err != nil {
				return err
			}

			store, err := common.NewStorage(cmd.Context(), deps)
			if err != nil {
				return err
			}

			indices := storage.NewIndices(deps.Config.Elasticsearch.IndexPrefix)
			return renderIndexTable(cmd.Context(), store, indices.All())
		},
	}
}

// renderIndexTable prints one row per index: name, health, document count.
func renderIndexTable(ctx context.Context, store *storage.Storage, indices []string) error {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Index", "Health", "Docs"})

	for _, index := range indices {
		exists, err := store.IndexExists(ctx, index)
		if err != nil {
			return fmt.Errorf("check index %s: %w", index, err)
		}
		if !exists {
			t.AppendRow(table.Row{index, "missing", "-"})
			continue
		}

		stats, err := store.GetIndexStats(ctx, index)
		if err != nil {
			return fmt.Errorf("stats for index %s: %w", index, err)
		}
		t.AppendRow(table.Row{stats.Name, stats.Health, strconv.FormatInt(stats.Docs, 10)})
	}

	t.Render()
	return nil
}
