package main

import (
	"fmt"
	"strconv"

	"github.com/asaskevich/govalidator"
	"github.com/spf13/cobra"

	"github.com/igdb-proxy/internal/kafka"
)

func newPrefetchCommand(ctx *commandContext, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "prefetch <game-id>...",
		Short: "Ask running proxies to warm the cache for games",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := validateGameIDs(args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			publisher, err := kafka.NewPublisher(&cfg.Kafka, ctx.logger(cmd, *verbose))
			if err != nil {
				return err
			}
			if err := publisher.RequestPrefetch(cmd.Context(), ids...); err != nil {
				_ = publisher.Close()
				return err
			}
			if err := publisher.Close(); err != nil {
				return err
			}

			sent, failed := publisher.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %d prefetch requests on %s (failed: %d)\n", sent, cfg.Kafka.PrefetchTopic, failed)
			if failed > 0 {
				return fmt.Errorf("%d prefetch requests failed", failed)
			}
			return nil
		},
	}
}

func validateGameIDs(args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		if !govalidator.IsNumeric(arg) {
			return nil, fmt.Errorf("invalid game id %q", arg)
		}
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid game id %q", arg)
		}
		ids = append(ids, strconv.FormatInt(n, 10))
	}
	return ids, nil
}
