package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"osenaabo-go/internal/bot"
	"osenaabo-go/internal/config"
	"osenaabo-go/internal/models"
	"osenaabo-go/internal/reporter"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RunOptions holds the run flags.
type RunOptions struct {
	Capital  float64
	Yes      bool
	No       bool
	Steps    int
	Interval time.Duration
	Profit   float64
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a trading run in simulation mode",
		Long: `Start a trading run. The license must be bound to this computer.

If sessions were already recorded today you are asked whether to continue
from the last one; if today's target was already reached you are asked
whether to reset the day. The run stops after --steps steps, when the daily
target is reached, or on Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Capital, "capital", 0, "starting capital for a fresh session")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "answer yes to every question")
	cmd.Flags().BoolVar(&opts.No, "no", false, "answer no to every question")
	cmd.Flags().IntVar(&opts.Steps, "steps", 10, "steps before the session closes (0 runs until stopped)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", time.Second, "time per step")
	cmd.Flags().Float64Var(&opts.Profit, "profit", 0, "profit realised when the session closes")

	return cmd
}

func runRun(rootOpts *RootOptions, opts *RunOptions, cmd *cobra.Command) error {
	preset, err := presetFromFlags(opts.Yes, opts.No)
	if err != nil {
		return err
	}
	app, err := openApp(rootOpts, true)
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	trader := &bot.SimTrader{Steps: opts.Steps, Interval: opts.Interval, SessionProfit: opts.Profit}
	b, err := newBot(app, trader)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = config.Watch(ctx, app.ConfigPath, app.Logger, func(cfg *models.Config) {
		if err := b.SetConfig(cfg); err != nil {
			app.Logger.Warn("config change not applied", zap.Error(err))
		}
	})
	if err != nil {
		app.Logger.Warn("config hot reload disabled", zap.Error(err))
	}

	snap, err := b.Start(bot.StartOptions{Capital: opts.Capital, Confirm: NewPrompter(out, preset)})
	switch {
	case errors.Is(err, bot.ErrDeferred):
		fmt.Fprintln(out, "Today's target is already reached. See you tomorrow.")
		return ErrRejected
	case errors.Is(err, bot.ErrOutsideHours):
		fmt.Fprintln(out, "Not started: outside betting hours.")
		return ErrRejected
	case err != nil:
		return err
	}
	fmt.Fprintf(out, "Run %s started (%s): capital %.2f, base bet %.2f\n", snap.ID, snap.Decision, snap.Capital, snap.BaseBet)

	select {
	case <-ctx.Done():
		fmt.Fprintln(out, "Stopping...")
		b.Stop()
	case <-b.Done():
	}

	snap = b.Snapshot()
	fmt.Fprintf(out, "Run %s finished (%s) after %d steps, capital %.2f\n", snap.ID, snap.StopReason, snap.Steps, snap.Capital)
	reporter.RenderSessions(out, snap.Day, app.Ledger.Load(snap.Day))
	return nil
}
