package main

import (
	"context"
	"fmt"
	"io"

	"github.com/phrazzld/jiralike-api/internal/platform/postgres"
	"github.com/phrazzld/jiralike-api/internal/service"
	"github.com/phrazzld/jiralike-api/internal/service/auth"
	"github.com/phrazzld/jiralike-api/internal/store"
	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer user accounts",
	}

	cmd.AddCommand(
		userSubcommand("promote <email>", "Grant superuser rights", func(ctx context.Context, users service.UserService, email string, out io.Writer) error {
			return setSuperuser(ctx, users, email, true, out)
		}),
		userSubcommand("demote <email>", "Revoke superuser rights", func(ctx context.Context, users service.UserService, email string, out io.Writer) error {
			return setSuperuser(ctx, users, email, false, out)
		}),
		userSubcommand("delete <email>", "Delete a user; their tasks, comments and files become ownerless", deleteUser),
	)
	return cmd
}

type userAction func(ctx context.Context, users service.UserService, email string, out io.Writer) error

// userSubcommand builds a command that opens the database and runs action
// against the user service.
func userSubcommand(use, short string, action userAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := postgres.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			users := service.NewUserService(
				postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost, log),
				auth.NewBcryptVerifier(),
				store.NewSQLTxManager(db),
				log,
			)
			return action(ctx, users, args[0], cmd.OutOrStdout())
		},
	}
}

func setSuperuser(ctx context.Context, users service.UserService, email string, superuser bool, out io.Writer) error {
	user, err := users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%s: %w", email, err)
	}
	if err := users.SetSuperuser(ctx, user.ID, superuser); err != nil {
		return fmt.Errorf("%s: %w", email, err)
	}

	state := "is now a superuser"
	if !superuser {
		state = "is no longer a superuser"
	}
	_, _ = fmt.Fprintf(out, "%s %s\n", user.Email, state)
	return nil
}

func deleteUser(ctx context.Context, users service.UserService, email string, out io.Writer) error {
	user, err := users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%s: %w", email, err)
	}
	if err := users.DeleteUser(ctx, user.ID); err != nil {
		return fmt.Errorf("%s: %w", email, err)
	}

	_, _ = fmt.Fprintf(out, "deleted %s\n", user.Email)
	return nil
}
