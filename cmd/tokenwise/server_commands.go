package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Taksh113/tokenwise-popcat/service/config"
	"github.com/Taksh113/tokenwise-popcat/service/db"
	"github.com/Taksh113/tokenwise-popcat/service/metrics"
	"github.com/Taksh113/tokenwise-popcat/service/server"
	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server over the ledgers",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger := setupLogger(c.String("log-level"))

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := db.NewPostgresStore(pool, logger)
			m := metrics.NewMetrics(nil)

			httpServer := server.New(cfg.ServerAddr, store, m, logger)

			serverErrors := make(chan error, 1)
			go func() {
				serverErrors <- httpServer.Start()
			}()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-serverErrors:
				return err
			case sig := <-shutdown:
				logger.Info("shutdown signal received", "signal", sig.String())

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("failed to shutdown server gracefully: %w", err)
				}
			}

			return nil
		},
	}
}
