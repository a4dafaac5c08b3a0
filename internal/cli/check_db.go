package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mrlokans/library/internal/database"
)

func newCheckDBCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Report tables, administrator presence and row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.NewDatabase(opts.config().Database)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()

			tables, err := db.Tables()
			if err != nil {
				return fmt.Errorf("failed to list tables: %w", err)
			}
			sort.Strings(tables)
			fmt.Fprintln(out, "Tables:")
			for _, table := range tables {
				fmt.Fprintf(out, "  %s\n", table)
			}

			hasAdmin, err := db.AdminExists()
			if err != nil {
				return fmt.Errorf("failed to check admin user: %w", err)
			}
			if hasAdmin {
				fmt.Fprintln(out, "Admin user: present")
			} else {
				fmt.Fprintln(out, "Admin user: MISSING (run init-db or create-user --role admin)")
			}

			counts, err := db.TableCounts()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Rows:")
			for _, table := range database.CountedTables {
				fmt.Fprintf(out, "  %-13s %d\n", table, counts[table])
			}
			return nil
		},
	}
}
