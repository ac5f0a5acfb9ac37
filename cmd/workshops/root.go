package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "workshops",
		Short:   "Workshop registration portal",
		Long:    `Serves the workshop catalog and admits registrations without ever exceeding a workshop's capacity.`,
		Version: version,
		// Serving is the default action.
		RunE:         runServe,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newMigrateCmd(), newTokenCmd())
	return root
}
