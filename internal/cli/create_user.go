package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/entrypoint"
)

type createUserOptions struct {
	username string
	password string
	role     string
}

func newCreateUserCommand(opts *rootOptions) *cobra.Command {
	userOpts := &createUserOptions{}

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a patron or administrator account",
		Example: `  library create-user --username alice
  library create-user --username boss --role admin --password 's3cretpass'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role := entities.UserRole(userOpts.role)
			if !role.Valid() {
				return fmt.Errorf("invalid role %q, expected %q or %q", userOpts.role, entities.UserRoleUser, entities.UserRoleAdmin)
			}

			password := userOpts.password
			if password == "" {
				var err error
				password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
			}

			cfg := opts.config()
			db, err := database.NewDatabase(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			services := entrypoint.NewServices(db, cfg)
			user, err := services.Admin.CreateUser(userOpts.username, password, role)
			if errors.Is(err, auth.ErrUserExists) {
				if id, resolveErr := services.Auth.ResolveUserID(userOpts.username); resolveErr == nil {
					return fmt.Errorf("account %s already exists (id %d): %w", userOpts.username, id, err)
				}
			}
			if err != nil {
				return fmt.Errorf("failed to create user %s: %w", userOpts.username, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s account %s (id %d)\n", user.Role, user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userOpts.username, "username", "", "account name (required)")
	cmd.Flags().StringVar(&userOpts.password, "password", "", "account password, prompted for when omitted")
	cmd.Flags().StringVar(&userOpts.role, "role", string(entities.UserRoleUser), "account role: user or admin")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

// readPassword prompts without echo on a terminal and reads a single line otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}
