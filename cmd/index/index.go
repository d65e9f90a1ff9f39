// Package index implements the index management commands: listing the
// article indexes and clearing them.
package index

import (
	"github.com/spf13/cobra"
)

// Command returns the index command with its subcommands.
func Command(cfgFile *string, debug *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the article indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(listCommand(cfgFile, debug))
	cmd.AddCommand(clearCommand(cfgFile, debug))
	return cmd
}
