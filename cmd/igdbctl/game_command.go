package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/igdb-proxy/internal/domain"
	"github.com/igdb-proxy/internal/igdb"
	"github.com/igdb-proxy/internal/service"
	"github.com/igdb-proxy/internal/transform"
	"github.com/igdb-proxy/internal/twitch"
)

func newGameCommand(ctx *commandContext, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "game <id>",
		Short: "Fetch a game summary straight from IGDB",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := ctx.logger(cmd, *verbose)

			formatter, err := transform.NewFormatter(cfg.Format.Locale, cfg.Format.TimeZone)
			if err != nil {
				return err
			}
			tokens, err := twitch.NewTokenCache(cfg.Twitch.ClientID, cfg.Twitch.ClientSecret, logger,
				twitch.WithTokenURL(cfg.Twitch.TokenURL),
				twitch.WithHTTPClient(&http.Client{Timeout: cfg.Twitch.Timeout}),
			)
			if err != nil {
				return err
			}
			client, err := igdb.New(cfg.Twitch.ClientID, tokens,
				igdb.WithBaseURL(cfg.IGDB.BaseURL),
				igdb.WithHTTPClient(&http.Client{Timeout: cfg.IGDB.Timeout}),
			)
			if err != nil {
				return err
			}

			svc := service.NewGameService(client, transform.New(formatter), &cfg.IGDB, logger)
			summary, err := svc.GetGame(cmd.Context(), args[0])
			switch {
			case errors.Is(err, domain.ErrInvalidID):
				return fmt.Errorf("invalid game id %q", args[0])
			case errors.Is(err, domain.ErrGameNotFound):
				return fmt.Errorf("game %s not found", args[0])
			case err != nil:
				return err
			}
			return writeJSON(cmd, summary)
		},
	}
}
