package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"meetingflow/config"
	"meetingflow/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Store != config.StorePostgres {
				return fmt.Errorf("migrate requires STORE=%s", config.StorePostgres)
			}

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := db.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				_, err = fmt.Fprintln(out, "schema is up to date")
				return err
			}
			for _, name := range applied {
				if _, err := fmt.Fprintf(out, "applied %s\n", name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
