// Package sources implements the sources listing command.
package sources

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/newsward/ingest/cmd/common"
	"github.com/newsward/ingest/internal/sources"
)

// Command returns the sources command.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage content sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(listCommand(cfgFile, debug))
	return cmd
}

func listCommand(cfgFile *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps(*cfgFile, *debug)
			if err != nil {
				return err
			}

			store, err := sources.NewStore(deps.Config.Sources, deps.Logger)
			if err != nil {
				return err
			}

			srcs, err := store.GetSources(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"ID", "Name", "Type", "URI", "Blacklist"})
			for _, src := range srcs {
				t.AppendRow(table.Row{
					src.ID,
					src.Name,
					string(src.ContentType),
					src.URI,
					strings.Join(src.Blacklist, ", "),
				})
			}
			t.Render()
			return nil
		},
	}
}
