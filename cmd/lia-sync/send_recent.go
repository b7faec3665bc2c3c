package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lia-lab/lia-sync/internal/pipeline"
)

var sendRecentCmd = &cobra.Command{
	Use:   "send-recent",
	Short: "Upload the recent span now, ignoring upload history",
	RunE:  runSendRecent,
}

func init() {
	rootCmd.AddCommand(sendRecentCmd)
}

func runSendRecent(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Pipeline.RunRecent(cmd.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrRetryable) {
			return &exitError{code: exitTempFail, err: err}
		}
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if report.Outcome == pipeline.OutcomeNoAccess {
		return fmt.Errorf("required data access not granted")
	}
	return nil
}
