package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// resetWarning is asked before the daily target is reset.
func resetWarning(threshold float64) string {
	return fmt.Sprintf("WARNING: Resetting daily target allows continued trading beyond the %g%% target.\n\n"+
		"Continuing beyond daily target increases risks of financial loss, emotional stress, and suboptimal performance.\n\n"+
		"Are you sure you want to reset the daily target and continue trading?", threshold)
}

// NewResetTargetCommand creates the reset-target command.
func NewResetTargetCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset-target",
		Short: "Reset the reached daily target and unlock the capital",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts, true)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			percent, threshold := app.Tracker.Percent(), app.Tracker.Threshold()
			if !app.Tracker.CanUnlock() {
				fmt.Fprintf(out, "Daily target not reached (%.2f%% of %.2f%%), nothing to reset.\n", percent, threshold)
				return ErrRejected
			}

			var preset *bool
			if yes {
				preset = &yes
			}
			confirmed := NewPrompter(out, preset).Confirm(resetWarning(threshold))

			b, err := newBot(app, nil)
			if err != nil {
				return err
			}
			ok, err := b.ResetDailyTarget(confirmed)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Daily target kept.")
				return ErrRejected
			}
			fmt.Fprintf(out, "Daily target has been reset to 0%% (was %.2f%%). You can now update your capital.\n", percent)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm without asking")
	return cmd
}
