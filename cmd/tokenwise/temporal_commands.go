package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Taksh113/tokenwise-popcat/service/config"
	"github.com/Taksh113/tokenwise-popcat/service/temporal"
	"github.com/urfave/cli/v2"
)

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Run the Temporal worker processing tracking pass workflows",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			t, cleanup, err := buildTracker(c)
			if err != nil {
				return err
			}
			defer cleanup()

			w, err := temporal.NewWorker(temporal.WorkerConfig{
				TemporalHost:      cfg.TemporalHost,
				TemporalNamespace: cfg.TemporalNamespace,
				TaskQueue:         cfg.TemporalTaskQueue,
				Tracker:           t,
				Logger:            setupLogger(c.String("log-level")),
			})
			if err != nil {
				return fmt.Errorf("failed to create worker: %w", err)
			}
			defer w.Stop()

			return w.Start()
		},
	}
}

// getTemporalClient connects to Temporal using environment configuration.
func getTemporalClient(c *cli.Context) (*temporal.Client, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	tc, err := temporal.NewClient(cfg.TemporalHost, cfg.TemporalNamespace, cfg.TemporalTaskQueue, setupLogger(c.String("log-level")))
	if err != nil {
		return nil, nil, err
	}
	return tc, cfg, nil
}

func createScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create the recurring tracking pass schedule",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Pass interval (defaults to PASS_INTERVAL)",
			},
			&cli.BoolFlag{
				Name:  "refresh-holders",
				Usage: "Re-snapshot the holder set at the start of each pass",
				Value: true,
			},
		},
		Action: func(c *cli.Context) error {
			tc, cfg, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			interval := c.Duration("interval")
			if interval == 0 {
				interval = cfg.PassInterval
			}

			if err := tc.CreateTrackingSchedule(context.Background(), interval, c.Bool("refresh-holders")); err != nil {
				return err
			}

			fmt.Printf("schedule created (interval %s)\n", interval)
			return nil
		},
	}
}

func deleteScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "Delete the recurring tracking pass schedule",
		Action: func(c *cli.Context) error {
			tc, _, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			if err := tc.DeleteTrackingSchedule(context.Background()); err != nil {
				return err
			}

			fmt.Println("schedule deleted")
			return nil
		},
	}
}

func triggerPassCommand() *cli.Command {
	return &cli.Command{
		Name:  "trigger",
		Usage: "Start one tracking pass workflow immediately",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "refresh-holders",
				Usage: "Re-snapshot the holder set before the pass",
				Value: true,
			},
		},
		Action: func(c *cli.Context) error {
			tc, _, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			workflowID, err := tc.TriggerTrackingPass(ctx, c.Bool("refresh-holders"))
			if err != nil {
				return err
			}

			fmt.Printf("started workflow %s\n", workflowID)
			return nil
		},
	}
}
