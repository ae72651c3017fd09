package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "scorelab"
	version = "v0.4.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Composite buy/sell scoring and explosive move backtests",
		Version: version,
		Long: `scorelab scores instruments across resampled timeframes and two
denominations (USD and gold), backtests the score against historical
explosive moves and tunes per-category parameters against the result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config-dir", "config", "Directory holding universe.yaml, categories.yaml, timeframes.yaml and regime.yaml")
	flags.String("env-file", ".env", "Optional dotenv file (REDIS_ADDR, PG_DSN, SCORELAB_DATA_DIR)")
	flags.String("log-level", "info", "Log level (debug|info|warn|error)")
	flags.Bool("json-logs", false, "Emit JSON logs instead of console output")
	flags.String("metrics-textfile", "", "Write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(
		newScoreCmd(),
		newBacktestCmd(),
		newTuneCmd(),
		newFetchCmd(),
		newServeCmd(),
	)
	return rootCmd
}

func setupLogging(cmd *cobra.Command) error {
	levelName, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	envFile, _ := cmd.Flags().GetString("env-file")

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(strings.ToLower(levelName))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", levelName, err)
	}
	zerolog.SetGlobalLevel(level)

	if !jsonLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
		})
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			log.Warn().Str("file", envFile).Err(err).Msg("Failed to load env file")
		}
	}
	return nil
}
