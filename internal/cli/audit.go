package cli

import (
	"errors"
	"osenaabo-go/internal/reporter"
	"osenaabo-go/internal/session"
	"time"

	"github.com/spf13/cobra"
)

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit trail of one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts, true)
			if err != nil {
				return err
			}
			defer app.Close()
			if app.Audit() == nil {
				return errors.New("audit trail unavailable (is another osenaabo process running?)")
			}

			now := time.Now()
			since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
			if date != "" {
				since, err = time.ParseInLocation(session.DayLayout, date, time.Local)
				if err != nil {
					return errors.New("invalid --date, want YYYY-MM-DD")
				}
			}
			events, err := app.Audit().List(since, since.AddDate(0, 0, 1))
			if err != nil {
				return err
			}
			reporter.RenderAudit(cmd.OutOrStdout(), events)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to show, YYYY-MM-DD (default today)")
	return cmd
}
