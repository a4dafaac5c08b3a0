package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entrypoint"
)

func newInitDBCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the database tables and the default administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.config()
			db, err := entrypoint.OpenDatabase(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Database initialized successfully")
			if db.Driver == config.DriverPostgres {
				fmt.Fprintln(out, "  Driver: postgres")
			} else {
				fmt.Fprintf(out, "  Path: %s\n", cfg.Database.Path)
			}
			fmt.Fprintf(out, "  Admin user: %s\n", cfg.Auth.AdminUsername)
			return nil
		},
	}
}
