// Package cli defines the library command line: the web server and a few
// database administration commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrlokans/library/internal/config"
)

type rootOptions struct {
	databasePath string
}

// NewRootCommand builds the command tree. Running it without a sub-command
// starts the server.
func NewRootCommand(version, commit string) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "library",
		Short: "Library - lend books to patrons over the web",
		Long: `library runs a small lending library: patrons search the catalog, borrow
and return books, and administrators manage books, accounts and the
activity log.

Configuration is read from the environment and an optional .env file.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.databasePath, "database", "", "SQLite database path (overrides DATABASE_PATH)")

	serve := newServeCommand(opts, version)
	root.RunE = serve.RunE

	root.AddCommand(
		serve,
		newInitDBCommand(opts),
		newCheckDBCommand(opts),
		newCreateUserCommand(opts),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main().
func Execute(version, commit string) {
	if err := NewRootCommand(version, commit).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (o *rootOptions) config() *config.Config {
	cfg := config.NewConfig()
	if o.databasePath != "" {
		cfg.Database.Path = o.databasePath
	}
	return cfg
}
