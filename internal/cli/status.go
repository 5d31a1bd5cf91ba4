package cli

import (
	"osenaabo-go/internal/bot"
	"osenaabo-go/internal/reporter"
	"osenaabo-go/internal/schedule"
	"time"

	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show license, today's sessions and the daily target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts, false)
			if err != nil {
				return err
			}
			defer app.Close()

			b, err := newBot(app, nil)
			if err != nil {
				return err
			}
			sched, err := schedule.Parse(app.Config.BettingHours)
			if err != nil {
				return err
			}

			day := app.Ledger.Today()
			ledger := app.Ledger.Load(day)
			status := reporter.Status{
				Platform:      app.Config.Platform,
				HardwareID:    app.Activator.HardwareID(),
				License:       app.Activator.Check(),
				Record:        app.Activator.Record(),
				Day:           day,
				Ledger:        ledger,
				TargetPercent: app.Tracker.Percent(),
				Threshold:     app.Tracker.Threshold(),
				CapitalLocked: b.CapitalLocked(),
				BettingHours:  sched.Strings(),
				WithinHours:   sched.Within(time.Now()),
			}
			if last, ok := ledger.Last(); ok {
				status.BaseBet = b.BaseBet(last.CapitalAfter)
			}
			reporter.RenderStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

// newBot builds a run controller on the app's stores.
func newBot(app *App, trader bot.Trader) (*bot.Bot, error) {
	return bot.NewBot(app.Config, bot.Deps{
		License:    app.Activator,
		Ledger:     app.Ledger,
		Artifacts:  app.Artifacts,
		Tracker:    app.Tracker,
		Validation: app.Validation,
		Trader:     trader,
		Audit:      app.Sink(),
		Logger:     app.Logger,
	})
}
