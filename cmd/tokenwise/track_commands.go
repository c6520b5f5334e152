package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/Taksh113/tokenwise-popcat/service/config"
	"github.com/Taksh113/tokenwise-popcat/service/db"
	natspkg "github.com/Taksh113/tokenwise-popcat/service/nats"
	"github.com/Taksh113/tokenwise-popcat/service/pricing"
	solanaclient "github.com/Taksh113/tokenwise-popcat/service/solana"
	"github.com/Taksh113/tokenwise-popcat/service/tracker"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/urfave/cli/v2"
)

// buildTracker wires up a full tracker from environment configuration.
// Returns the tracker and a cleanup function.
func buildTracker(c *cli.Context) (*tracker.Tracker, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := setupLogger(c.String("log-level"))

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	store := db.NewPostgresStore(pool, logger)

	reader := solanaclient.NewClient(rpc.New(cfg.SolanaRPCURL), cfg.SolanaRPCURL, nil, logger)
	pricer := pricing.NewCoinGeckoClient(cfg.CoinGeckoBaseURL, cfg.CoinGeckoCoinID, logger)

	var publisher natspkg.Publisher
	if cfg.NATSURL != "" {
		p, err := natspkg.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to initialize NATS publisher: %w", err)
		}
		publisher = p
	}

	t := tracker.New(cfg, reader, store, pricer, publisher, nil, logger)

	cleanup := func() {
		if publisher != nil {
			publisher.Close()
		}
		pool.Close()
	}

	return t, cleanup, nil
}

func snapshotHoldersCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Refresh the tracked top-holder set from the chain",
		Action: func(c *cli.Context) error {
			t, cleanup, err := buildTracker(c)
			if err != nil {
				return err
			}
			defer cleanup()

			holders, err := t.SnapshotHolders(context.Background())
			if err != nil {
				return fmt.Errorf("failed to snapshot holders: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(holders)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tADDRESS\tBALANCE")
			for i, h := range holders {
				fmt.Fprintf(w, "%d\t%s\t%.4f\n", i+1, h.Address, h.Balance)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nSnapshotted %d holders\n", len(holders))
			return nil
		},
	}
}

func trackRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one tracking pass over the tracked holders",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "snapshot",
				Usage: "Refresh the holder set before the pass",
			},
		},
		Action: func(c *cli.Context) error {
			t, cleanup, err := buildTracker(c)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			if c.Bool("snapshot") {
				if _, err := t.SnapshotHolders(ctx); err != nil {
					return fmt.Errorf("failed to snapshot holders: %w", err)
				}
			}

			stats, err := t.RunPass(ctx)
			if err != nil {
				return fmt.Errorf("tracking pass failed: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(stats)
			}

			fmt.Printf("Wallets:     %d\n", stats.Wallets)
			fmt.Printf("Abandoned:   %d\n", stats.Abandoned)
			fmt.Printf("Classified:  %d\n", stats.Classified)
			fmt.Printf("Written:     %d\n", stats.Written)
			fmt.Printf("Duplicates:  %d\n", stats.Duplicates)
			fmt.Printf("Skipped:     %d\n", stats.Skipped)
			return nil
		},
	}
}

func trackLoopCommand() *cli.Command {
	return &cli.Command{
		Name:  "loop",
		Usage: "Run tracking passes forever at the configured interval",
		Action: func(c *cli.Context) error {
			t, cleanup, err := buildTracker(c)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-shutdown
				cancel()
			}()

			if err := t.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}
