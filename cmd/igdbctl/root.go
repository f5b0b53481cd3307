package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/igdb-proxy/internal/config"
)

type commandContext struct {
	configFlag *string
	envFlag    *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, envFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		envFlag:    envFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if c.envFlag != nil {
			if err := config.LoadDotEnv(strings.TrimSpace(*c.envFlag)); err != nil {
				c.configErr = err
				return
			}
		}
		path := ""
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path == "" {
			// Without an explicit file, a missing config.yaml means defaults
			cfg, err := config.Load("config.yaml")
			if errors.Is(err, os.ErrNotExist) {
				cfg, err = config.DefaultConfig(), nil
			}
			c.config, c.configErr = cfg, err
			return
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// logger writes library logs to stderr so stdout stays parseable
func (c *commandContext) logger(cmd *cobra.Command, verbose bool) *slog.Logger {
	var w io.Writer = io.Discard
	if verbose {
		w = cmd.ErrOrStderr()
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var envFlag string
	var verbose bool

	ctx := newCommandContext(&configFlag, &envFlag)

	rootCmd := &cobra.Command{
		Use:           "igdbctl",
		Short:         "Operate the IGDB proxy from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", ".env", "Optional .env file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(newGameCommand(ctx, &verbose))
	rootCmd.AddCommand(newPrefetchCommand(ctx, &verbose))
	rootCmd.AddCommand(newLookupsCommand(ctx, &verbose))

	return rootCmd
}
