package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/graydb/internal/dbal"
	"github.com/nerrad567/graydb/internal/infrastructure/database"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply, roll back or list schema migrations",
		Long:      "up (the default) applies every pending migration, down rolls back the latest one and status lists both.",
		Args:      migrateArgs,
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			ctx := cmd.Context()

			return a.withConn(ctx, func(conn *dbal.Conn) error {
				switch action {
				case "down":
					rolled, err := database.MigrateDown(ctx, conn)
					if err != nil {
						return err
					}
					if !rolled {
						fmt.Fprintln(a.stdout, "nothing to roll back")
						return nil
					}
					fmt.Fprintln(a.stdout, "rolled back latest migration")
					return nil

				case "status":
					applied, pending, err := database.MigrationStatus(ctx, conn)
					if err != nil {
						return err
					}
					for _, m := range applied {
						fmt.Fprintf(a.stdout, "applied\t%s\t%s\n", m.Version, m.AppliedAt.UTC().Format(time.RFC3339))
					}
					for _, m := range pending {
						fmt.Fprintf(a.stdout, "pending\t%s\t%s\n", m.Version, m.Name)
					}
					return nil
				}

				if err := database.Migrate(ctx, conn); err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, "migrations up to date")
				return nil
			})
		},
	}
}

// migrateArgs accepts at most one of the ValidArgs actions.
func migrateArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
		return err
	}
	return cobra.OnlyValidArgs(cmd, args)
}
