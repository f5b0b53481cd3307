package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/igdb-proxy/internal/domain"
	"github.com/igdb-proxy/internal/postgres"
)

func newLookupsCommand(ctx *commandContext, verbose *bool) *cobra.Command {
	var top bool
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "lookups",
		Short: "Show recorded lookups",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("limit must be positive")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			repo, err := postgres.NewRepository(&cfg.Postgres, ctx.logger(cmd, *verbose))
			if err != nil {
				return err
			}
			defer repo.Close()

			if top {
				counts, err := repo.TopGames(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, counts)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTopGames(counts))
				return nil
			}

			events, err := repo.RecentLookups(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, events)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderLookups(events))
			return nil
		},
	}

	cmd.Flags().BoolVar(&top, "top", false, "Show the most requested games instead of recent lookups")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func renderLookups(events []domain.LookupEvent) string {
	if len(events) == 0 {
		return "No lookups recorded"
	}
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		cached := ""
		if e.Cached {
			cached = "yes"
		}
		rows = append(rows, []string{
			e.Timestamp.Local().Format(time.DateTime),
			string(e.Endpoint),
			e.Param,
			string(e.Status),
			cached,
			strconv.FormatInt(e.DurationMS, 10) + "ms",
		})
	}
	return renderTable(
		[]string{"Time", "Endpoint", "Param", "Status", "Cached", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func renderTopGames(counts []domain.GameLookupCount) string {
	if len(counts) == 0 {
		return "No successful game lookups recorded"
	}
	rows := make([][]string, 0, len(counts))
	for i, c := range counts {
		rows = append(rows, []string{strconv.Itoa(i + 1), c.GameID, strconv.FormatInt(c.Count, 10)})
	}
	return renderTable(
		[]string{"#", "Game", "Lookups"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight},
	)
}
