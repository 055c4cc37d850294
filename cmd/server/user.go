package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"go-token-auth/internal/database"
	"go-token-auth/internal/model"
	"go-token-auth/internal/repository"
	"go-token-auth/internal/service"
)

func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage directory users",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var input model.NewUser

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user that can log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateNewUser(input); err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBConnectRetries)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
			}
			defer db.Close()

			directory := service.NewUserDirectory(repository.NewUserRepository(db.Pool), cfg.BcryptCost)
			user, err := directory.CreateUser(ctx, input)
			if errors.Is(err, model.ErrUserAlreadyExists) {
				return fmt.Errorf("user %q already exists", input.Username)
			}
			if err != nil {
				return oops.Code("USER_CREATE_FAILED").With("username", input.Username).Wrap(err)
			}

			cmd.Printf("Created user %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input.Username, "username", "", "login name (required)")
	flags.StringVar(&input.Password, "password", "", "initial password (required)")
	flags.StringVar(&input.Email, "email", "", "email address, also accepted as login")
	flags.StringVar(&input.FirstName, "first-name", "", "given name")
	flags.StringVar(&input.LastName, "last-name", "", "family name")
	flags.StringVar(&input.DisplayName, "display-name", "", "display name")
	flags.StringVar(&input.AvatarURL, "avatar-url", "", "profile image URL")

	return cmd
}

func validateNewUser(input model.NewUser) error {
	var missing []string
	if strings.TrimSpace(input.Username) == "" {
		missing = append(missing, "--username")
	}
	if input.Password == "" {
		missing = append(missing, "--password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return nil
}
