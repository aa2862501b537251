package main

import (
	"context"
	"fmt"

	"tour-routing-service/internal/adapters/cache"
	"tour-routing-service/internal/adapters/repositories"
	"tour-routing-service/internal/config"
	"tour-routing-service/internal/platform/db"

	"github.com/spf13/cobra"
)

func newInitCmd(opts *options) *cobra.Command {
	var (
		dbPath   string
		postgres string
	)

	c := &cobra.Command{
		Use:   "init",
		Short: "Create the sqlite schema, and the distance cache table in postgres when --postgres is set",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := initSQLite(ctx, dbPath); err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "sqlite schema ready path=%s\n", dbPath)

			if postgres == "" {
				return nil
			}
			pg, err := db.OpenPostgres(ctx, postgres)
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := cache.InitSchema(ctx, pg); err != nil {
				return err
			}
			fmt.Fprintln(opts.out, "postgres distance cache ready")
			return nil
		},
	}
	c.Flags().StringVar(&dbPath, "db", config.Get("DB_PATH", "data/app.db"), "sqlite database path")
	c.Flags().StringVar(&postgres, "postgres", config.Get("DATABASE_URL", ""), "postgres URL for the shared distance cache")
	return c
}

func initSQLite(ctx context.Context, path string) error {
	conn, err := db.OpenSQLite(ctx, path)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := repositories.InitSchema(ctx, conn); err != nil {
		return err
	}
	return cache.InitSchema(ctx, conn)
}

func newSeedCmd(opts *options) *cobra.Command {
	var dbPath, file string

	c := &cobra.Command{
		Use:   "seed",
		Short: "Load the host pool from a JSON file into sqlite, replacing hosts with the same id",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, err := db.OpenSQLite(ctx, dbPath)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := repositories.InitSchema(ctx, conn); err != nil {
				return err
			}
			n, err := repositories.SeedFromJSON(ctx, conn, file)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "seeded hosts=%d path=%s\n", n, dbPath)
			return nil
		},
	}
	c.Flags().StringVar(&dbPath, "db", config.Get("DB_PATH", "data/app.db"), "sqlite database path")
	c.Flags().StringVar(&file, "file", config.Get("SEED_PATH", "data/seeds/hosts.json"), "host seed file")
	return c
}
