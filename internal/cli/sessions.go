package cli

import (
	"fmt"
	"osenaabo-go/internal/reporter"
	"osenaabo-go/internal/session"
	"time"

	"github.com/spf13/cobra"
)

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the sessions of one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts, false)
			if err != nil {
				return err
			}
			defer app.Close()

			day := app.Ledger.Today()
			if date != "" {
				t, err := time.ParseInLocation(session.DayLayout, date, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
				day = session.DayKey(t)
			}
			reporter.RenderSessions(cmd.OutOrStdout(), day, app.Ledger.Load(day))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to show, YYYY-MM-DD (default today)")
	return cmd
}
