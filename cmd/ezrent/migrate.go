package main

import (
	"fmt"

	"github.com/livefire2015/ez-rent/src/config"
	"github.com/livefire2015/ez-rent/src/database"
	"github.com/spf13/cobra"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(database.Up), string(database.Down), string(database.Status)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			db, err := database.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(cmd.Context(), db, database.Direction(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", args[0])
			return nil
		},
	}
}
