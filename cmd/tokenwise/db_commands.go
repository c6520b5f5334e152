package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Taksh113/tokenwise-popcat/service/db"
	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations",
		Action: func(c *cli.Context) error {
			dbURL := c.String("database-url")
			if dbURL == "" {
				dbURL = os.Getenv("DATABASE_URL")
			}
			if dbURL == "" {
				return fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, dbURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.RunMigrations(ctx, pool); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			fmt.Println("migrations applied")
			return nil
		},
	}
}

func listHoldersCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "List tracked holders, richest first",
		Aliases: []string{"ls"},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			holders, err := store.ListHoldersByBalance(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list holders: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(holders)
			}

			// Pretty table output
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tBALANCE\tUPDATED")
			for _, h := range holders {
				fmt.Fprintf(w, "%s\t%.4f\t%s\n",
					h.Address,
					h.Balance,
					h.UpdatedAt.Format(time.RFC3339),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d holders\n", len(holders))
			return nil
		},
	}
}
