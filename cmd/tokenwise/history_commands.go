package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Taksh113/tokenwise-popcat/service/classify"
	"github.com/Taksh113/tokenwise-popcat/service/db"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

// ANSI colors for direction highlighting in terminal output.
const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Query the movement ledgers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "ledger",
				Usage: "Ledger to query (movements or all_movements)",
				Value: string(db.LedgerTracked),
			},
			&cli.Int64Flag{
				Name:  "start",
				Usage: "Range start in epoch milliseconds",
			},
			&cli.Int64Flag{
				Name:  "end",
				Usage: "Range end in epoch milliseconds (defaults to now)",
			},
			&cli.DurationFlag{
				Name:  "since",
				Usage: "Shorthand for --start relative to now (e.g. 24h)",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "gojq filter applied to the movement list (e.g. '.[] | select(.direction == \"buy\")')",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored direction output",
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			ledger := db.Ledger(c.String("ledger"))
			start := c.Int64("start")
			end := c.Int64("end")
			if end == 0 {
				end = time.Now().UnixMilli()
			}
			if since := c.Duration("since"); since > 0 {
				start = time.Now().Add(-since).UnixMilli()
			}

			movements, err := store.ListMovements(context.Background(), ledger, start, end)
			if err != nil {
				return fmt.Errorf("failed to list movements: %w", err)
			}

			if expr := c.String("jq"); expr != "" {
				return runFilter(expr, movements)
			}

			if c.Bool("json") {
				return outputJSON(movements)
			}

			printMovementTable(movements, !c.Bool("no-color"))
			return nil
		},
	}
}

// runFilter applies a gojq expression to the movement list and prints each
// result as a JSON line.
func runFilter(expr string, movements []*classify.Movement) error {
	query, err := gojq.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid jq expression: %w", err)
	}

	// Round-trip through JSON so gojq sees plain maps and slices.
	raw, err := json.Marshal(movements)
	if err != nil {
		return fmt.Errorf("failed to marshal movements: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("failed to unmarshal movements: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq evaluation failed: %w", err)
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}

	return nil
}

// printMovementTable renders movements as a table, buys green and sells red.
func printMovementTable(movements []*classify.Movement, colored bool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tWALLET\tDIRECTION\tAMOUNT\tMINT\tVENUE\tPRICE")
	for _, m := range movements {
		ts := "unknown"
		if m.OccurredAt != 0 {
			ts = time.UnixMilli(m.OccurredAt).UTC().Format(time.RFC3339)
		}

		direction := string(m.Direction)
		if colored {
			switch m.Direction {
			case classify.DirectionBuy:
				direction = colorGreen + direction + colorReset
			case classify.DirectionSell:
				direction = colorRed + direction + colorReset
			}
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%.6f\t%s\t%s\t%.6f\n",
			ts,
			shortAddress(m.WalletAddress),
			direction,
			m.Amount,
			shortAddress(m.Mint),
			m.Venue,
			m.Price,
		)
	}
	w.Flush()

	fmt.Fprintf(os.Stderr, "\nTotal: %d movements\n", len(movements))
}

// shortAddress abbreviates long base58 strings for table output.
func shortAddress(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-4:]
}
