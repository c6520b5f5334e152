package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/Taksh113/tokenwise-popcat/service/db"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "tokenwise",
		Usage: "POPCAT holder tracking service CLI",
		Description: `A command-line tool for running and debugging the tokenwise service.

Use this CLI to run tracking passes, manage the Temporal schedule, inspect
the movement ledgers, and serve the HTTP API.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			// Database commands
			{
				Name:  "db",
				Usage: "Database management commands",
				Subcommands: []*cli.Command{
					migrateCommand(),
				},
			},
			// Holder snapshot commands
			{
				Name:  "holders",
				Usage: "Tracked holder commands",
				Subcommands: []*cli.Command{
					snapshotHoldersCommand(),
					listHoldersCommand(),
				},
			},
			// Tracking pass commands
			{
				Name:  "track",
				Usage: "Tracking pass commands",
				Subcommands: []*cli.Command{
					trackRunCommand(),
					trackLoopCommand(),
				},
			},
			// Temporal worker and schedule commands
			workerCommand(),
			{
				Name:  "schedule",
				Usage: "Temporal schedule commands",
				Subcommands: []*cli.Command{
					createScheduleCommand(),
					deleteScheduleCommand(),
					triggerPassCommand(),
				},
			},
			// HTTP API server
			serveCommand(),
			// Ledger query commands
			historyCommand(),
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// getStore connects to the database using the global flag or environment.
func getStore(c *cli.Context) (*db.PostgresStore, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := db.NewPool(context.Background(), dbURL)
	if err != nil {
		return nil, nil, err
	}

	store := db.NewPostgresStore(pool, setupLogger(c.String("log-level")))
	closer := func() { pool.Close() }

	return store, closer, nil
}

// outputJSON prints indented JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
