package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nitrogenlogic/logicclient"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// exitFailure is the status for any failed operation.
const exitFailure = 7

var (
	configPath string
	hostFlag   string
	timeout    time.Duration
	verbose    bool

	cfg    settings
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "logicctl",
	Short:         "Query and update a running logic system",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = defaultSettings()
		if configPath != "" {
			loaded, err := loadSettings(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
		}

		if cmd.Flags().Changed("host") {
			cfg.Host = hostFlag
		}
		if cmd.Flags().Changed("timeout") {
			cfg.CommandTimeout = timeout
		}
		if verbose {
			cfg.LogLevel = zerolog.DebugLevel
		}

		logger = newLogger(cfg.LogLevel)
		return nil
	},
}

// Execute runs the CLI and exits with status 7 on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	rootCmd.PersistentFlags().StringVarP(&hostFlag, "host", "H", "localhost", "logic system host, with optional :port")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", logicclient.DefaultCommandTimeout, "command timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log protocol diagnostics")
}

func newLogger(level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	l := zerolog.New(output).Level(level).With().Timestamp().Str("app", "logicctl").Logger()
	log.Logger = l
	return l
}

// withClient connects to the configured host, runs fn, and ends the session.
func withClient(ctx context.Context, fn func(ctx context.Context, c *logicclient.Client) error) error {
	registry := logicclient.NewRegistry(cfg.clientConfig(&logger))

	c, err := registry.Connect(ctx, cfg.Host)
	if err != nil {
		return fmt.Errorf("connection to the server failed: %w", err)
	}

	runErr := fn(ctx, c)

	closeCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := c.Close(closeCtx); err != nil {
		logger.Debug().Err(err).Msg("bye failed")
	}

	return runErr
}
