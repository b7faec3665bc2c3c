package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/lia-lab/lia-sync/internal/pipeline"
)

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Upload the last completed hour unless it was already sent",
	Long: `Runs the scheduled upload path once for the last completed local hour and
prints the run report. Exits 75 when the run failed and should be retried.`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runOnceCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	// Close drains a fire-and-forget dispatch before exit.
	defer a.Close()

	report, err := a.Pipeline.RunScheduled(cmd.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrRetryable) {
			return &exitError{code: exitTempFail, err: err}
		}
		return err
	}
	return printJSON(cmd.OutOrStdout(), report)
}
