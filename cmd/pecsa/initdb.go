package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pecsa/pecsa-admin/internal/app"
	"github.com/pecsa/pecsa-admin/internal/platform/db"
)

var errInitDBNotForced = errors.New("initdb drops every table; re-run with --force to confirm")

func newInitDBCommand(envFile *string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Drop and recreate the schema, then load the seed data",
		Long: `initdb drops the collaborators, users, roles and user_roles tables, recreates
them and inserts the stock roles, collaborators and users. All existing data is lost.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return errInitDBNotForced
			}
			return initDB(cmd.Context(), *envFile)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm that existing data may be destroyed")
	return cmd
}

func initDB(ctx context.Context, envFile string) error {
	cfg, err := app.LoadConfig(envFile)
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return err
	}
	defer pool.Close()

	seed := db.DefaultSeed()
	if err := db.Reset(ctx, pool, seed); err != nil {
		logger.Error("initialize database", slog.Any("error", err))
		return fmt.Errorf("initdb: %w", err)
	}
	logger.Info("database initialized",
		slog.Int("roles", len(seed.Roles)),
		slog.Int("collaborators", len(seed.Collaborators)),
		slog.Int("users", len(seed.Users)))
	return nil
}
