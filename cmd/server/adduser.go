package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"profeamigo/services"
	"profeamigo/structs"
)

func newAddUserCommand(configPath *string) *cobra.Command {
	var request structs.RegisterRequest

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a learner account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if cfg.Database.Host == "" {
				return errors.New("database.host is not configured")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			b, err := connectBackends(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			user, err := services.NewUserService(b.users).Register(ctx, request)
			var verr *services.ValidationError
			if errors.As(err, &verr) {
				return errors.Errorf("invalid account: %s", verr.Error())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&request.Username, "username", "u", "", "username (required)")
	cmd.Flags().StringVarP(&request.DisplayName, "name", "n", "", "display name, defaults to the username")
	cmd.Flags().StringVarP(&request.Password, "password", "p", "", "password (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
