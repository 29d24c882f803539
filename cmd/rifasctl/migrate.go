package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/epicstrade/rifas/internal/config"
	"github.com/epicstrade/rifas/internal/database"
)

func newMigrateCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SurrealDB migrations",
		Long:  "Connects with the DB_* environment (or .env) and applies every embedded migration not yet recorded in schema_migration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				names, err := database.Migrations()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db := database.NewSurrealDB(database.Config{
				Host:      cfg.Database.Host,
				Port:      cfg.Database.Port,
				User:      cfg.Database.User,
				Password:  cfg.Database.Password,
				Namespace: cfg.Database.Namespace,
				Database:  cfg.Database.Database,
			})
			ctx := cmd.Context()
			if err := db.Connect(ctx); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer func() { _ = db.Close() }()

			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			fmt.Fprintf(out, "Migrations applied to %s/%s\n", cfg.Database.Namespace, cfg.Database.Database)
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "Print the embedded migrations and exit")
	return cmd
}
