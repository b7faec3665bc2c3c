package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lia-lab/lia-sync/internal/app"
	corecfg "github.com/lia-lab/lia-sync/internal/core/config"
)

// exitTempFail is returned by one-shot commands when the run should be
// retried later (sysexits EX_TEMPFAIL), so a cron wrapper can re-arm.
const exitTempFail = 75

// exitError carries a specific process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "lia-sync",
	Short: "Hourly health-data aggregation and upload agent",
	Long: `lia-sync collects device health samples, aggregates them into hourly
buckets, encrypts each value and uploads the payload to the receiving server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// loadApp loads configuration and wires the agent.
func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := corecfg.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
