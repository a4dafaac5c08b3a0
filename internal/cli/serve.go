package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/library/internal/entrypoint"
)

func newServeCommand(opts *rootOptions, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default if no command given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entrypoint.Run(opts.config(), version)
			return nil
		},
	}
}
