// framectl is the companion CLI for a framesink server: push payloads,
// replay recorded directories, tail the event stream, and save snapshots.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/framewell/framesink/internal/client"
	"github.com/framewell/framesink/internal/config"
)

var (
	cfgFile string
	verbose bool
	logger  *zap.Logger
	cfg     *config.Config
)

func setupLogger(verbose bool, level string) (*zap.Logger, error) {
	var zapConfig zap.Config
	if verbose {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.DisableStacktrace = true
	}

	if level != "" {
		var parsed zapcore.Level
		if err := parsed.UnmarshalText([]byte(level)); err == nil {
			zapConfig.Level = zap.NewAtomicLevelAt(parsed)
		}
	}

	return zapConfig.Build()
}

func newClient() *client.Client {
	return client.New(
		cfg.Server.BaseURL,
		cfg.Server.RatePerSecond,
		time.Duration(cfg.Server.TimeoutSec)*time.Second,
		time.Duration(cfg.Server.RetryDelaySec)*time.Second,
		cfg.Server.RetryCount,
		logger,
	)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "framectl",
		Short: "Push payloads to and stream updates from a framesink server",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip config loading for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				var err error
				logger, err = setupLogger(verbose, "")
				return err
			}

			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return err
			}

			logger, err = setupLogger(verbose, cfg.Logging.Level)
			return err
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("FRAMECTL_CONFIG"), "config file path (or set FRAMECTL_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(pushCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(snapshotCmd())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
